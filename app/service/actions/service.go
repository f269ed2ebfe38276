package actions

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/samber/do"
)

type Kind int

const (
	KindLink Kind = iota
	KindCreate
	KindSkip
	KindCorrect
)

func (k Kind) String() string {
	switch k {
	case KindLink:
		return "link"
	case KindCreate:
		return "create"
	case KindSkip:
		return "skip"
	case KindCorrect:
		return "correct"
	}

	return "unknown"
}

// prefix keeps tokens short: Telegram caps callback data at 64 bytes.
func (k Kind) prefix() string {
	switch k {
	case KindLink:
		return "l"
	case KindCreate:
		return "c"
	case KindSkip:
		return "s"
	case KindCorrect:
		return "r"
	}

	return "x"
}

// Action is one pending button a user can press.
type Action struct {
	Kind      Kind
	MeetingID string
	// Candidate contact for link/correct
	ContactID   string
	ContactName string
	// Name to create a contact from
	SearchName string
}

// Service maps short-lived opaque tokens to one-shot actions. Entries never
// expire on their own; unconsumed tokens live until process restart.
type Service struct {
	counter atomic.Uint64

	mu      sync.Mutex
	pending map[string]Action
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		pending: make(map[string]Action),
	}, nil
}

// Register mints a fresh token for the action. Tokens are never reused
// within a process lifetime.
func (s *Service) Register(action Action) string {
	token := action.Kind.prefix() + strconv.FormatUint(s.counter.Add(1), 10)

	s.mu.Lock()
	s.pending[token] = action
	s.mu.Unlock()

	return token
}

// Consume atomically retrieves and removes the action for the token. The
// second consume of the same token misses, which gives button presses
// at-most-once semantics.
func (s *Service) Consume(token string) (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.pending[token]
	if ok {
		delete(s.pending, token)
	}

	return action, ok
}
