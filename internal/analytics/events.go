package analytics

import "time"

type EventType string

const (
	EventMatch EventType = "match"
	EventIndex EventType = "index"
)

// MatchEvent records one scored résumé/job pairing.
type MatchEvent struct {
	Type          EventType `json:"type"`
	OwnerID       string    `json:"owner_id"`
	RequestID     string    `json:"request_id,omitempty"`
	Total         float64   `json:"total"`
	Grade         string    `json:"grade"`
	KeywordMatch  float64   `json:"keyword_match"`
	SkillsMatch   float64   `json:"skills_match"`
	MissingSkills []string  `json:"missing_skills,omitempty"`
	LatencyMs     int64     `json:"latency_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

// IndexEvent records one re-index of an owner's source.
type IndexEvent struct {
	Type      EventType `json:"type"`
	OwnerID   string    `json:"owner_id"`
	RequestID string    `json:"request_id,omitempty"`
	Source    string    `json:"source"`
	Chunks    int       `json:"chunks"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// envelope is decoded first to route an event by its type.
type envelope struct {
	Type EventType `json:"type"`
}
