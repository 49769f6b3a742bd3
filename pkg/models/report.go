package models

// ReportInfo is the ledger entry for a reported message. Reasons are
// deduplicated on insert while Count increments on every report call, so
// Count >= len(Reasons).
type ReportInfo struct {
	MessageID string   `json:"message_id"`
	Reasons   []string `json:"reasons"`
	Count     int      `json:"count"`
	Reporters []string `json:"reporters,omitempty"`
	FirstTS   int64    `json:"first_ts,omitempty"`
	LastTS    int64    `json:"last_ts,omitempty"`
}
