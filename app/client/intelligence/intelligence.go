package intelligence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"jarvis/app/config"
	"net/http"
	"time"

	"github.com/samber/do"
)

const requestTimeout = 30 * time.Second

// ErrNotConfigured is returned when the intelligence endpoint is not set in
// the config. Callers surface it to the user instead of retrying.
var ErrNotConfigured = errors.New("intelligence endpoint is not configured")

type Candidate struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
}

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

// Link associates a meeting record with an existing contact. Returns the
// contact's company for display, which may be empty.
func (c *Client) Link(ctx context.Context, meetingID, contactID string) (string, error) {
	var response struct {
		Company string `json:"company,omitempty"`
	}

	err := c.post(ctx, "/contacts/link", map[string]any{
		"meeting_id": meetingID,
		"contact_id": contactID,
	}, &response)
	if err != nil {
		return "", err
	}

	return response.Company, nil
}

// Search looks up contacts by a free-text query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	var response struct {
		Contacts []Candidate `json:"contacts"`
	}

	err := c.post(ctx, "/contacts/search", map[string]any{
		"query": query,
		"limit": limit,
	}, &response)
	if err != nil {
		return nil, err
	}

	return response.Contacts, nil
}

// Create registers a new contact and links it to the given meeting record
// immediately. Returns the created contact's display name.
func (c *Client) Create(ctx context.Context, firstName, lastName, meetingID string) (string, error) {
	var response struct {
		Name string `json:"name"`
	}

	err := c.post(ctx, "/contacts/create", map[string]any{
		"first_name": firstName,
		"last_name":  lastName,
		"meeting_id": meetingID,
	}, &response)
	if err != nil {
		return "", err
	}

	return response.Name, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	if c.cfg.Intelligence.URL == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Intelligence.URL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Intelligence.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Intelligence.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("intelligence request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("intelligence returned %d: %s", resp.StatusCode, data)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode intelligence response: %w", err)
	}

	return nil
}
