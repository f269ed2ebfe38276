package router

import (
	"context"
	"jarvis/app/service/conversation"
	"jarvis/app/service/pending"

	"github.com/samber/do"
)

// Dialog is the open-session surface of the pending link queue.
type Dialog interface {
	Has(user int64) bool
	HandleInput(ctx context.Context, user int64, text string) (string, error)
}

// Talker is the general-purpose conversational fallback.
type Talker interface {
	Reply(ctx context.Context, user int64, text string) (string, error)
}

// Service decides what an inbound free-text message means. While a
// disambiguation session is open all text belongs to it exclusively; only
// otherwise does the message fall through to general conversation.
type Service struct {
	dialog Dialog
	chat   Talker
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*pending.Service](di),
		do.MustInvoke[*conversation.Service](di),
	), nil
}

func NewService(dialog Dialog, chat Talker) *Service {
	return &Service{
		dialog: dialog,
		chat:   chat,
	}
}

func (s *Service) Route(ctx context.Context, user int64, text string) (string, error) {
	if s.dialog.Has(user) {
		return s.dialog.HandleInput(ctx, user, text)
	}

	return s.chat.Reply(ctx, user, text)
}
