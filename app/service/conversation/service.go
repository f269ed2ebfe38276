package conversation

import (
	"context"
	"jarvis/app/config"
	"log/slog"
	"sync"
	"time"

	_ "embed"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

//go:embed system_prompt.txt
var systemPrompt string

const (
	replyTimeout = 120 * time.Second
	maxTokens    = 1000

	apologyReply = "😔 Sorry, I can't answer right now. Please try again in a bit."
)

type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Service is the general-purpose conversational fallback used when no
// disambiguation session is open for the user.
type Service struct {
	cfg    *config.Config
	client completionAPI
	now    func() time.Time

	mu        sync.Mutex
	histories map[int64]*history
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg, createClient(cfg.OpenAI)), nil
}

func NewService(cfg *config.Config, client completionAPI) *Service {
	return &Service{
		cfg:       cfg,
		client:    client,
		now:       time.Now,
		histories: make(map[int64]*history),
	}
}

// Reply answers one free-text message. Failures never propagate: the user
// gets a generic apology and the history is left untouched.
func (s *Service) Reply(ctx context.Context, user int64, text string) (string, error) {
	if s.cfg.OpenAI.Token == "" {
		return apologyReply, nil
	}

	messages := s.buildMessages(user, text)

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               s.cfg.OpenAI.Model,
		Messages:            messages,
		MaxCompletionTokens: maxTokens,
	})
	if err != nil {
		slog.Warn("Chat completion failed", "user", user, "error", err)
		return apologyReply, nil
	}

	if len(resp.Choices) == 0 {
		slog.Warn("Chat completion returned no choices", "user", user)
		return apologyReply, nil
	}

	reply := resp.Choices[0].Message.Content

	s.mu.Lock()
	h := s.userHistory(user)
	h.add(openai.ChatMessageRoleUser, text, s.now())
	h.add(openai.ChatMessageRoleAssistant, reply, s.now())
	s.mu.Unlock()

	return reply, nil
}

func (s *Service) buildMessages(user int64, text string) []openai.ChatCompletionMessage {
	s.mu.Lock()
	h := s.userHistory(user)
	h.trim(s.now())
	turns := h.snapshot()
	s.mu.Unlock()

	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    t.Role,
			Content: t.Text,
		})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
}

// userHistory must be called with the mutex held.
func (s *Service) userHistory(user int64) *history {
	h, ok := s.histories[user]
	if !ok {
		h = &history{}
		s.histories[user] = h
	}

	return h
}
