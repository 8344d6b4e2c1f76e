package events

import "time"

// Stream and subject names for the audit event bus.
const (
	StreamEvents = "MNEMO_EVENTS"

	SubjectMemoryStored    = "mnemo.events.memory.stored"
	SubjectMemoryForgotten = "mnemo.events.memory.forgotten"
	SubjectTurnRecorded    = "mnemo.events.turn.recorded"
)

// MemoryStored is emitted after a new memory is persisted. Duplicate
// outcomes do not emit; nothing was written.
type MemoryStored struct {
	MemoryID  string    `json:"memory_id"`
	OwnerID   string    `json:"owner_id"`
	Category  string    `json:"category"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MemoryForgotten is emitted after one or all memories are deleted.
// Mode is "by_id", "by_query", or "all"; MemoryID is empty for "all".
type MemoryForgotten struct {
	MemoryID  string    `json:"memory_id,omitempty"`
	OwnerID   string    `json:"owner_id"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnRecorded is emitted after a conversation turn is fully recorded.
type TurnRecorded struct {
	RequestID string    `json:"request_id"`
	OwnerID   string    `json:"owner_id"`
	SessionID string    `json:"session_id,omitempty"`
	Captured  int       `json:"captured"`
	Timestamp time.Time `json:"timestamp"`
}
