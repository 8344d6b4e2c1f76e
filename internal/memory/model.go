package memory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category classifies what a memory is about. The set is closed; the
// database enforces the same list with a CHECK constraint.
type Category string

const (
	CategoryPreference     Category = "preference"
	CategoryDecision       Category = "decision"
	CategoryFact           Category = "fact"
	CategoryEntity         Category = "entity"
	CategoryExperience     Category = "experience"
	CategorySessionSummary Category = "session_summary"
	CategoryFileChunk      Category = "file_chunk"
	CategoryOther          Category = "other"
)

var validCategories = map[Category]bool{
	CategoryPreference:     true,
	CategoryDecision:       true,
	CategoryFact:           true,
	CategoryEntity:         true,
	CategoryExperience:     true,
	CategorySessionSummary: true,
	CategoryFileChunk:      true,
	CategoryOther:          true,
}

func (c Category) Valid() bool { return validCategories[c] }

var (
	// ErrInvalidCategory rejects a category outside the closed set.
	ErrInvalidCategory = errors.New("invalid memory category")
	// ErrInvalidScoreRange rejects importance/confidence outside [0,1].
	ErrInvalidScoreRange = errors.New("importance and confidence must be in [0,1]")
)

// Default weights applied when a caller does not supply them.
const (
	DefaultImportance = 0.7
	DefaultConfidence = 1.0
)

// Record is a single long-lived memory, scoped to an owner.
type Record struct {
	ID         uuid.UUID      `json:"id"`
	OwnerID    string         `json:"owner_id"`
	SessionID  string         `json:"session_id,omitempty"`
	Content    string         `json:"content"`
	Category   Category       `json:"category"`
	Embedding  []float32      `json:"embedding,omitempty"`
	Importance float64        `json:"importance"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	SourceType string         `json:"source_type,omitempty"`
	SourceID   string         `json:"source_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// Validate rejects invalid categories and out-of-range weights before
// anything touches storage, so a bad write is never partially applied.
func (r *Record) Validate() error {
	if !r.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, r.Category)
	}
	if r.Importance < 0 || r.Importance > 1 || r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: importance=%g confidence=%g", ErrInvalidScoreRange, r.Importance, r.Confidence)
	}
	return nil
}

// SearchResult wraps a Record with its similarity score.
type SearchResult struct {
	Record     Record  `json:"record"`
	Similarity float64 `json:"similarity"`
}
