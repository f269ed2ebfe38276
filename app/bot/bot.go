package bot

import (
	"context"
	"fmt"
	"io"
	"jarvis/app/config"
	"jarvis/app/service/actions"
	"jarvis/app/service/ingest"
	"jarvis/app/service/pending"
	"jarvis/app/service/router"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/do"
)

const (
	updateTimeout   = 30
	downloadTimeout = 60 * time.Second
)

// Service is the Telegram transport binding: it receives updates, applies
// the allow-list, and hands everything to the dialog/dispatch core.
type Service struct {
	cfg        *config.Config
	api        *tgbotapi.BotAPI
	ingestSvc  *ingest.Service
	routerSvc  *router.Service
	actionsSvc *actions.Service
	pendingSvc *pending.Service
	http       *http.Client
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}

	return &Service{
		cfg:        cfg,
		api:        api,
		ingestSvc:  do.MustInvoke[*ingest.Service](di),
		routerSvc:  do.MustInvoke[*router.Service](di),
		actionsSvc: do.MustInvoke[*actions.Service](di),
		pendingSvc: do.MustInvoke[*pending.Service](di),
		http: &http.Client{
			Timeout: downloadTimeout,
		},
	}, nil
}

// Run polls for updates until the context is cancelled. Each update is
// handled on its own goroutine; all shared state lives behind the core
// services' own locks.
func (s *Service) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeout

	updates := s.api.GetUpdatesChan(u)

	slog.Info("Telegram bot started", "username", s.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			s.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			go s.handleUpdate(ctx, update)
		}
	}
}

func (s *Service) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)

	if _, err := s.api.Send(msg); err != nil {
		slog.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (s *Service) sendWithKeyboard(chatID int64, text string, buttons []ingest.Button) {
	msg := tgbotapi.NewMessage(chatID, text)

	if len(buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, b := range buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token),
			))
		}

		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	if _, err := s.api.Send(msg); err != nil {
		slog.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (s *Service) edit(chatID int64, messageID int, text string) {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)

	if _, err := s.api.Send(msg); err != nil {
		slog.Error("Failed to edit message", "chat_id", chatID, "error", err)
	}
}

// download fetches a file's bytes from the Telegram file API.
func (s *Service) download(ctx context.Context, fileID string) ([]byte, error) {
	file, err := s.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(s.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}

	return data, nil
}
