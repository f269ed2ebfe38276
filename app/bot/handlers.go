package bot

import (
	"context"
	"fmt"
	"jarvis/app/service/ingest"
	"log/slog"

	"github.com/elliotchance/pie/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	startReply = "Hi! 👋\n\n" +
		"I'm Jarvis, your voice memo assistant.\n\n" +
		"Send me a voice message and I'll process it for you:\n" +
		"• Transcribe it\n" +
		"• Extract key information\n" +
		"• Save it to your knowledge base\n\n" +
		"Just hold the microphone button and speak!"

	helpReply = "🎙️ How to use Jarvis:\n\n" +
		"1. Send a voice message (hold mic button)\n" +
		"2. I'll transcribe and analyze it\n" +
		"3. Answer my questions when someone you mentioned is ambiguous\n\n" +
		"Tips:\n" +
		"• Speak clearly\n" +
		"• Start with context: 'Meeting with John...'\n" +
		"• Mention names and dates clearly"

	unauthorizedReply  = "❌ Sorry, you're not authorized to use this bot."
	expiredActionReply = "⌛ This action has expired. Please send the voice message again."
	genericErrorReply  = "❌ Something went wrong. Please try again."
	duplicateReply     = "⚠️ I already received this file, skipping it."
)

func (s *Service) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		s.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		s.handleMessage(ctx, update.Message)
	}
}

// authorized checks allow-list membership. An empty list means no
// restrictions, matching the original deployment behavior.
func (s *Service) authorized(userID int64) bool {
	if len(s.cfg.Telegram.AllowedUserIDs) == 0 {
		return true
	}

	return pie.Contains(s.cfg.Telegram.AllowedUserIDs, userID)
}

func (s *Service) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if !s.authorized(msg.From.ID) {
		slog.Warn("Unauthorized access attempt",
			"user_id", msg.From.ID,
			"username", msg.From.UserName,
		)
		s.send(msg.Chat.ID, unauthorizedReply)

		return
	}

	switch {
	case msg.IsCommand():
		s.handleCommand(msg)

	case msg.Voice != nil:
		s.handleIngest(ctx, msg, ingest.Audio{
			Kind:     ingest.KindVoice,
			FileID:   msg.Voice.FileUniqueID,
			MimeType: msg.Voice.MimeType,
			Duration: msg.Voice.Duration,
		}, msg.Voice.FileID, "🎙️ Receiving voice message...")

	case msg.Audio != nil:
		s.handleIngest(ctx, msg, ingest.Audio{
			Kind:     ingest.KindAudio,
			FileID:   msg.Audio.FileUniqueID,
			MimeType: msg.Audio.MimeType,
			Duration: msg.Audio.Duration,
		}, msg.Audio.FileID, "🎵 Receiving audio file...")

	case msg.Text != "":
		s.handleText(ctx, msg)
	}
}

func (s *Service) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		s.send(msg.Chat.ID, startReply)
	case "help":
		s.send(msg.Chat.ID, helpReply)
	default:
		s.send(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (s *Service) handleIngest(ctx context.Context, msg *tgbotapi.Message, audio ingest.Audio, transportFileID, statusText string) {
	slog.Info("Received audio message",
		"user_id", msg.From.ID,
		"username", msg.From.UserName,
		"kind", audio.Kind,
		"duration", audio.Duration,
	)

	status, err := s.api.Send(tgbotapi.NewMessage(msg.Chat.ID, statusText))
	if err != nil {
		slog.Error("Failed to send status message", "error", err)
		return
	}

	data, err := s.download(ctx, transportFileID)
	if err != nil {
		slog.Error("Failed to download audio", "user_id", msg.From.ID, "error", err)
		s.edit(msg.Chat.ID, status.MessageID, genericErrorReply)

		return
	}
	audio.Data = data

	outcome, err := s.ingestSvc.Ingest(ctx, ingest.User{
		ID:       msg.From.ID,
		Username: msg.From.UserName,
	}, audio)
	if err != nil {
		slog.Error("Ingest failed", "user_id", msg.From.ID, "error", err)
		s.edit(msg.Chat.ID, status.MessageID, fmt.Sprintf("❌ Error processing the message: %v", err))

		return
	}

	switch outcome.Status {
	case ingest.StatusDuplicate:
		s.edit(msg.Chat.ID, status.MessageID, duplicateReply)

	case ingest.StatusDeferred:
		s.edit(msg.Chat.ID, status.MessageID, fmt.Sprintf(
			"✅ Audio uploaded!\n\n📁 File: %s\n\nProcessing will begin shortly, check your knowledge base in a few minutes.",
			outcome.StoredAs,
		))

	case ingest.StatusCompleted:
		s.edit(msg.Chat.ID, status.MessageID, "✅ "+outcome.Summary)

		if outcome.Prompt != "" {
			s.sendWithKeyboard(msg.Chat.ID, outcome.Prompt, outcome.Buttons)
		}
	}
}

func (s *Service) handleText(ctx context.Context, msg *tgbotapi.Message) {
	reply, err := s.routerSvc.Route(ctx, msg.From.ID, msg.Text)
	if err != nil {
		slog.Error("Failed to route message", "user_id", msg.From.ID, "error", err)
		reply = genericErrorReply
	}

	if reply != "" {
		s.send(msg.Chat.ID, reply)
	}
}

func (s *Service) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}

	chatID := query.Message.Chat.ID

	defer func() {
		if _, err := s.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			slog.Error("Failed to answer callback", "error", err)
		}
	}()

	if !s.authorized(query.From.ID) {
		return
	}

	action, ok := s.actionsSvc.Consume(query.Data)
	if !ok {
		// Already consumed or unknown: expired, never re-executed.
		s.send(chatID, expiredActionReply)
		return
	}

	reply, err := s.pendingSvc.ExecuteAction(ctx, query.From.ID, action)
	if err != nil {
		slog.Error("Failed to execute action",
			"user_id", query.From.ID,
			"kind", action.Kind,
			"error", err,
		)
		reply = genericErrorReply
	}

	s.send(chatID, reply)
}
