package ingest

import (
	"context"
	"fmt"
	"jarvis/app/client/intelligence"
	"jarvis/app/client/pipeline"
	"jarvis/app/client/storage"
	"jarvis/app/service/actions"
	"jarvis/app/service/dedup"
	"jarvis/app/service/pending"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
	"github.com/samber/do"
)

const fastPathTimeout = 300 * time.Second

// Analyzer is the fast-path transcription/analysis collaborator.
type Analyzer interface {
	Configured() bool
	Process(ctx context.Context, audio []byte, filename, username string) (*pipeline.Result, error)
}

// Uploader is the durable-storage fallback collaborator.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (*storage.StoredObject, error)
}

// Sessions is the slice of the pending link queue the orchestrator needs.
type Sessions interface {
	Start(user int64, refs []pending.Reference) string
	Abandon(user int64)
}

// Registry mints one-shot button actions for a rendered result.
type Registry interface {
	Register(action actions.Action) string
}

// Service orchestrates one ingest event: dedup, fast-path attempt, and the
// storage-backed fallback with the single fatal failure mode.
type Service struct {
	dedupSvc *dedup.Service
	sessions Sessions
	registry Registry
	analyzer Analyzer
	uploader Uploader
	now      func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*dedup.Service](di),
		do.MustInvoke[*pending.Service](di),
		do.MustInvoke[*actions.Service](di),
		do.MustInvoke[*pipeline.Client](di),
		do.MustInvoke[*storage.Client](di),
	), nil
}

func NewService(dedupSvc *dedup.Service, sessions Sessions, registry Registry, analyzer Analyzer, uploader Uploader) *Service {
	return &Service{
		dedupSvc: dedupSvc,
		sessions: sessions,
		registry: registry,
		analyzer: analyzer,
		uploader: uploader,
		now:      time.Now,
	}
}

// Ingest processes one inbound audio message. The only error it returns is
// a fallback storage-write failure; everything else resolves to an Outcome.
func (s *Service) Ingest(ctx context.Context, user User, audio Audio) (*Outcome, error) {
	if s.dedupSvc.Seen(audio.FileID) {
		slog.Info("Dropped duplicate audio", "user", user.ID, "file_id", audio.FileID)
		return &Outcome{Status: StatusDuplicate}, nil
	}

	// New audio always takes precedence over an unfinished dialog.
	s.sessions.Abandon(user.ID)

	eventID := uuid.NewString()
	filename := s.buildFilename(user, audio)

	attempt := s.tryFastPath(ctx, user, audio, filename)
	if attempt.status == fastPathSuccess {
		slog.Info("Fast path completed",
			"event_id", eventID,
			"user", user.ID,
			"transcript_length", attempt.result.Details.TranscriptLength,
		)

		return s.completedOutcome(user, attempt.result), nil
	}

	if attempt.err != nil {
		slog.Warn("Fast path failed, falling back to storage",
			"event_id", eventID,
			"user", user.ID,
			"error", attempt.err,
		)
	}

	stored, err := s.uploader.Upload(ctx, audio.Data, filename, audio.MimeType)
	if err != nil {
		return nil, fmt.Errorf("fallback upload of %q: %w", filename, err)
	}

	slog.Info("Stored audio for deferred processing",
		"event_id", eventID,
		"user", user.ID,
		"object", stored.Name,
		"object_id", stored.ID,
		"telegram", true,
	)

	return &Outcome{
		Status:   StatusDeferred,
		StoredAs: stored.Name,
	}, nil
}

// tryFastPath performs a single attempt, no retries. Missing configuration,
// transport errors, timeouts and a non-success semantic status all classify
// as recoverable: the caller falls back to storage.
func (s *Service) tryFastPath(ctx context.Context, user User, audio Audio, filename string) fastPathResult {
	if !s.analyzer.Configured() {
		return fastPathResult{status: fastPathRecoverable}
	}

	ctx, cancel := context.WithTimeout(ctx, fastPathTimeout)
	defer cancel()

	result, err := s.analyzer.Process(ctx, audio.Data, filename, user.Username)
	if err != nil {
		return fastPathResult{status: fastPathRecoverable, err: err}
	}

	if result.Status != pipeline.StatusSuccess {
		return fastPathResult{
			status: fastPathRecoverable,
			err:    fmt.Errorf("pipeline returned status %q", result.Status),
		}
	}

	return fastPathResult{status: fastPathSuccess, result: result}
}

func (s *Service) completedOutcome(user User, result *pipeline.Result) *Outcome {
	outcome := &Outcome{
		Status:           StatusCompleted,
		Summary:          result.Summary,
		TranscriptLength: result.Details.TranscriptLength,
	}

	refs := collectReferences(result.Details)
	if len(refs) == 0 {
		return outcome
	}

	outcome.Prompt = s.sessions.Start(user.ID, refs)
	outcome.Buttons = s.buildButtons(refs[0])

	return outcome
}

// collectReferences extracts the unresolved contact mentions. Meeting ids
// come from the match object itself or, when omitted, positionally from the
// meeting_ids array which is aligned with the unmatched entries.
func collectReferences(details pipeline.Details) []pending.Reference {
	var refs []pending.Reference

	unmatched := 0
	for _, match := range details.ContactMatches {
		if match.Matched {
			continue
		}

		meetingID := match.MeetingID
		if meetingID == "" && unmatched < len(details.MeetingIDs) {
			meetingID = details.MeetingIDs[unmatched]
		}
		unmatched++

		refs = append(refs, pending.Reference{
			MeetingID:    meetingID,
			SearchedName: match.SearchedName,
			Candidates: pie.Map(match.Suggestions, func(sug pipeline.Suggestion) intelligence.Candidate {
				return intelligence.Candidate{
					ID:      sug.ID,
					Name:    sug.Name,
					Company: sug.Company,
				}
			}),
			Mode: pending.ModeLinkOrCreate,
		})
	}

	return refs
}

func (s *Service) buildButtons(ref pending.Reference) []Button {
	buttons := pie.Map(ref.Candidates, func(cand intelligence.Candidate) Button {
		return Button{
			Label: "🔗 " + cand.Name,
			Token: s.registry.Register(actions.Action{
				Kind:        actions.KindLink,
				MeetingID:   ref.MeetingID,
				ContactID:   cand.ID,
				ContactName: cand.Name,
			}),
		}
	})

	buttons = append(buttons, Button{
		Label: fmt.Sprintf("🆕 Create %q", ref.SearchedName),
		Token: s.registry.Register(actions.Action{
			Kind:       actions.KindCreate,
			MeetingID:  ref.MeetingID,
			SearchName: ref.SearchedName,
		}),
	})

	return append(buttons, Button{
		Label: "⏭ Skip",
		Token: s.registry.Register(actions.Action{
			Kind:      actions.KindSkip,
			MeetingID: ref.MeetingID,
		}),
	})
}

func (s *Service) buildFilename(user User, audio Audio) string {
	handle := user.Username
	if handle == "" {
		handle = strconv.FormatInt(user.ID, 10)
	}

	return fmt.Sprintf("%s_%s_%s.%s",
		audio.Kind,
		s.now().Format("20060102_150405"),
		handle,
		extensionFor(audio),
	)
}

func extensionFor(audio Audio) string {
	if audio.MimeType == "" {
		return audio.Kind.defaultExtension()
	}

	_, subtype, found := strings.Cut(audio.MimeType, "/")
	if !found || subtype == "" {
		return audio.Kind.defaultExtension()
	}

	subtype, _, _ = strings.Cut(subtype, ";")
	if subtype == "mpeg" {
		return "mp3"
	}

	return subtype
}
