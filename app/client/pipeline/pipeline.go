package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"jarvis/app/config"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/samber/do"
)

// requestTimeout covers the whole round trip: the pipeline transcribes and
// analyzes the audio before answering.
const requestTimeout = 300 * time.Second

type Client struct {
	cfg  *config.Config
	http *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
		http: &http.Client{
			Timeout: requestTimeout,
		},
	}, nil
}

// Configured reports whether the fast-path endpoint is set. The orchestrator
// goes straight to fallback storage when it is not.
func (c *Client) Configured() bool {
	return c.cfg.Pipeline.URL != ""
}

// Process submits raw audio for synchronous transcription and analysis.
func (c *Client) Process(ctx context.Context, audio []byte, filename, username string) (*Result, error) {
	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = part.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write audio: %w", err)
	}

	if err = writer.WriteField("username", username); err != nil {
		return nil, fmt.Errorf("failed to write username field: %w", err)
	}

	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Pipeline.URL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pipeline request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pipeline returned %d: %s", resp.StatusCode, payload)
	}

	var result Result
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline response: %w", err)
	}

	return &result, nil
}
