package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMutationSucceeded EventType = "mutation_succeeded"
	EventMutationFailed    EventType = "mutation_failed"
)

// Event describes the outcome of one coordinated mutation. Message is safe
// for display; failure causes stay in the logs.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
