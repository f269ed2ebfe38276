package pipeline

const StatusSuccess = "success"

type Result struct {
	Status  string  `json:"status"`
	Summary string  `json:"summary"`
	Details Details `json:"details"`
}

type Details struct {
	TranscriptLength int     `json:"transcript_length"`
	ContactMatches   []Match `json:"contact_matches"`
	// MeetingIDs is positionally aligned with the unmatched entries of
	// ContactMatches for match objects that omit their own meeting_id.
	MeetingIDs []string `json:"meeting_ids"`
}

type Match struct {
	Matched       bool           `json:"matched"`
	MeetingID     string         `json:"meeting_id,omitempty"`
	SearchedName  string         `json:"searched_name"`
	LinkedContact *LinkedContact `json:"linked_contact,omitempty"`
	Suggestions   []Suggestion   `json:"suggestions,omitempty"`
}

type LinkedContact struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
}

type Suggestion struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
}
