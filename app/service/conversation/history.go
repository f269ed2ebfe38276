package conversation

import "time"

const (
	historySize   = 20
	historyMaxAge = 30 * time.Minute
)

type turn struct {
	Role      string
	Text      string
	Timestamp time.Time
}

// history is one user's short-term memory for the general chat path. It is
// capped both by count and by age and has no bearing on dialog correctness.
type history struct {
	turns []turn
}

func (h *history) add(role, text string, now time.Time) {
	msg := turn{
		Role:      role,
		Text:      text,
		Timestamp: now,
	}

	if len(h.turns) >= historySize {
		h.turns = append(h.turns[1:], msg)
	} else {
		h.turns = append(h.turns, msg)
	}
}

func (h *history) trim(now time.Time) {
	cutoff := 0
	for cutoff < len(h.turns) && now.Sub(h.turns[cutoff].Timestamp) > historyMaxAge {
		cutoff++
	}

	h.turns = h.turns[cutoff:]
}

func (h *history) snapshot() []turn {
	result := make([]turn, len(h.turns))
	copy(result, h.turns)

	return result
}
