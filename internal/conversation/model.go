package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Request is one inbound user message. It is the parent of its Response
// and Reasoning rows; deleting it cascades to both.
type Request struct {
	ID             uuid.UUID         `json:"id"`
	OwnerID        string            `json:"owner_id"`
	SessionID      string            `json:"session_id,omitempty"`
	Message        string            `json:"message"`
	Embedding      []float32         `json:"embedding,omitempty"`
	HasAttachments bool              `json:"has_attachments"`
	ExternalRefs   map[string]string `json:"external_refs,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Response is the assistant's reply to a Request. Summary and its
// embedding are optional; when present, unified search prefers them over
// the full text.
type Response struct {
	ID               uuid.UUID `json:"id"`
	RequestID        uuid.UUID `json:"request_id"`
	Response         string    `json:"response"`
	Embedding        []float32 `json:"embedding,omitempty"`
	Summary          string    `json:"summary,omitempty"`
	SummaryEmbedding []float32 `json:"summary_embedding,omitempty"`
	Feedback         *int16    `json:"feedback,omitempty"`
	ModelUsed        string    `json:"model_used,omitempty"`
	InputTokens      int       `json:"input_tokens,omitempty"`
	OutputTokens     int       `json:"output_tokens,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Reasoning is one thinking segment produced while answering a Request.
type Reasoning struct {
	ID        uuid.UUID `json:"id"`
	RequestID uuid.UUID `json:"request_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	ModelUsed string    `json:"model_used,omitempty"`
	Tokens    int       `json:"tokens,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry is a single message in the recent-conversation window.
type Entry struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TextMatch is a ranked row from the conversational read paths, used by
// the unified context search.
type TextMatch struct {
	ID         uuid.UUID `json:"id"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}
