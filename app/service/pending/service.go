package pending

import (
	"context"
	"errors"
	"fmt"
	"jarvis/app/client/intelligence"
	"jarvis/app/service/actions"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samber/do"
)

const (
	maxCandidates = 5
	searchLimit   = 5
	minNameLen    = 2
	opTimeout     = 30 * time.Second

	skipToken = "0"

	completionLine      = "✅ All contacts handled."
	notConfiguredReply  = "⚠️ The contact service is not configured, try again later."
	staleDialogReply    = "⌛ This dialog is no longer active."
	expiredActionErrFmt = "action %q no longer applies"
)

var ErrNoSession = errors.New("no pending session for user")

// ContactOps is the remote contact collaborator surface the dialog needs.
type ContactOps interface {
	Link(ctx context.Context, meetingID, contactID string) (string, error)
	Search(ctx context.Context, query string, limit int) ([]intelligence.Candidate, error)
	Create(ctx context.Context, firstName, lastName, meetingID string) (string, error)
}

// Service drives the step-by-step contact disambiguation dialog. Sessions
// are ephemeral: there is no time-based expiry, only replacement by a new
// ingest event or exhaustion.
type Service struct {
	contacts ContactOps

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*intelligence.Client](di)), nil
}

func NewService(contacts ContactOps) *Service {
	return &Service{
		contacts: contacts,
		sessions: make(map[int64]*session),
	}
}

// Start unconditionally replaces any open session for the user and returns
// the prompt for the first reference. New audio always wins over an
// unfinished dialog.
func (s *Service) Start(user int64, refs []Reference) string {
	if len(refs) == 0 {
		return ""
	}

	for i := range refs {
		if len(refs[i].Candidates) > maxCandidates {
			refs[i].Candidates = refs[i].Candidates[:maxCandidates]
		}
	}

	s.mu.Lock()
	s.sessions[user] = &session{refs: refs}
	s.mu.Unlock()

	slog.Info("Started disambiguation session", "user", user, "references", len(refs))

	return renderPrompt(refs[0], 1, len(refs))
}

// Has reports whether the user currently owns a session. The router must
// send all text to the dialog while one is open.
func (s *Service) Has(user int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[user]

	return ok
}

// Current returns the reference at the cursor.
func (s *Service) Current(user int64) (Reference, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[user]
	if !ok {
		return Reference{}, false
	}

	return sess.current(), true
}

// Abandon discards the user's session, if any.
func (s *Service) Abandon(user int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[user]; ok {
		delete(s.sessions, user)
		slog.Info("Abandoned disambiguation session", "user", user)
	}
}

// HandleInput interprets one text reply for the current reference. Grammar,
// in priority order: the skip token, a 1-indexed candidate number, or a
// free-form name of at least 2 characters used as a new search term.
// Validation failures leave the session untouched so the user can retry.
func (s *Service) HandleInput(ctx context.Context, user int64, text string) (string, error) {
	text = strings.TrimSpace(text)

	ref, ok := s.Current(user)
	if !ok {
		return "", ErrNoSession
	}

	if text == skipToken {
		return s.resolve(user, ref.MeetingID, fmt.Sprintf("⏭ Skipped %q.", ref.SearchedName)), nil
	}

	if n, err := strconv.Atoi(text); err == nil {
		if len(ref.Candidates) == 0 {
			return "There are no candidates to pick from. Type the contact's full name, or 0 to skip.", nil
		}
		if n < 1 || n > len(ref.Candidates) {
			return fmt.Sprintf("Please pick a number between 1 and %d, or 0 to skip.", len(ref.Candidates)), nil
		}

		return s.linkCandidate(ctx, user, ref, ref.Candidates[n-1])
	}

	if utf8.RuneCountInString(text) < minNameLen {
		return "That name is too short. Type at least 2 characters, or 0 to skip.", nil
	}

	return s.searchOrCreate(ctx, user, ref, text)
}

// ExecuteAction applies a consumed one-shot button action. The action was
// minted for a specific meeting record; if the session has moved on or been
// replaced in the meantime, the remote effect still happens but the cursor
// is only advanced when the action targets the current reference.
func (s *Service) ExecuteAction(ctx context.Context, user int64, action actions.Action) (string, error) {
	switch action.Kind {
	case actions.KindSkip:
		return s.resolve(user, action.MeetingID, "⏭ Skipped."), nil

	case actions.KindLink, actions.KindCorrect:
		return s.linkCandidate(ctx, user, Reference{MeetingID: action.MeetingID}, intelligence.Candidate{
			ID:   action.ContactID,
			Name: action.ContactName,
		})

	case actions.KindCreate:
		first, last := splitName(action.SearchName)

		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		created, err := s.contacts.Create(opCtx, first, last, action.MeetingID)
		if err != nil {
			if errors.Is(err, intelligence.ErrNotConfigured) {
				return notConfiguredReply, nil
			}
			return "", fmt.Errorf("contacts.Create: %w", err)
		}

		return s.resolve(user, action.MeetingID, fmt.Sprintf("🆕 Created and linked %s.", created)), nil
	}

	return "", fmt.Errorf(expiredActionErrFmt, action.Kind)
}

func (s *Service) linkCandidate(ctx context.Context, user int64, ref Reference, cand intelligence.Candidate) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	company, err := s.contacts.Link(opCtx, ref.MeetingID, cand.ID)
	if err != nil {
		if errors.Is(err, intelligence.ErrNotConfigured) {
			return notConfiguredReply, nil
		}
		return "", fmt.Errorf("contacts.Link: %w", err)
	}

	label := cand.Name
	if company != "" {
		label = fmt.Sprintf("%s (%s)", cand.Name, company)
	}

	return s.resolve(user, ref.MeetingID, fmt.Sprintf("🔗 Linked to %s.", label)), nil
}

func (s *Service) searchOrCreate(ctx context.Context, user int64, ref Reference, name string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	found, err := s.contacts.Search(opCtx, name, searchLimit)
	if err != nil {
		if errors.Is(err, intelligence.ErrNotConfigured) {
			return notConfiguredReply, nil
		}
		return "", fmt.Errorf("contacts.Search: %w", err)
	}

	if len(found) > 0 {
		return s.replaceCandidates(user, ref.MeetingID, name, found), nil
	}

	first, last := splitName(name)

	createCtx, cancelCreate := context.WithTimeout(ctx, opTimeout)
	defer cancelCreate()

	created, err := s.contacts.Create(createCtx, first, last, ref.MeetingID)
	if err != nil {
		if errors.Is(err, intelligence.ErrNotConfigured) {
			return notConfiguredReply, nil
		}
		return "", fmt.Errorf("contacts.Create: %w", err)
	}

	return s.resolve(user, ref.MeetingID, fmt.Sprintf("🆕 Created and linked %s.", created)), nil
}

// resolve marks the reference for meetingID as handled and advances the
// cursor. The session is re-fetched under the lock: a new ingest event may
// have replaced or deleted it while a remote call was in flight, in which
// case only the acknowledgement is returned.
func (s *Service) resolve(user int64, meetingID, ack string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[user]
	if !ok || sess.current().MeetingID != meetingID {
		return ack
	}

	sess.cursor++
	if sess.cursor >= len(sess.refs) {
		delete(s.sessions, user)
		slog.Info("Disambiguation session completed", "user", user)

		return ack + "\n\n" + completionLine
	}

	return ack + "\n\n" + renderPrompt(sess.current(), sess.cursor+1, len(sess.refs))
}

// replaceCandidates swaps the current reference's candidate list and search
// name in place without advancing the cursor, then re-prompts. Same
// re-validation rule as resolve.
func (s *Service) replaceCandidates(user int64, meetingID, newName string, found []intelligence.Candidate) string {
	if len(found) > maxCandidates {
		found = found[:maxCandidates]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[user]
	if !ok || sess.current().MeetingID != meetingID {
		return staleDialogReply
	}

	sess.refs[sess.cursor].SearchedName = newName
	sess.refs[sess.cursor].Candidates = found

	return renderPrompt(sess.current(), sess.cursor+1, len(sess.refs))
}
