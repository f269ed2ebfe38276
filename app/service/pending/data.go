package pending

import "jarvis/app/client/intelligence"

type Mode int

const (
	// ModeLinkOrCreate resolves by linking a candidate, creating a new
	// contact from a typed name, or skipping.
	ModeLinkOrCreate Mode = iota
)

// Reference is one unresolved person mention from a single ingest event.
// Immutable once queued, except for the candidate list which is replaced
// in place when the user types a new search term.
type Reference struct {
	MeetingID    string
	SearchedName string
	Candidates   []intelligence.Candidate
	Mode         Mode
}

// session is the per-user ordered queue of references with a cursor.
// At most one exists per user; a new ingest event replaces it outright.
type session struct {
	refs   []Reference
	cursor int
}

func (s *session) current() Reference {
	return s.refs[s.cursor]
}
