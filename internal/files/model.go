package files

import (
	"time"

	"github.com/google/uuid"
)

// File is an ingested document: the original metadata plus the extracted
// text. Its content is searchable through the ordered chunks; deleting
// the file removes them through the storage cascade.
type File struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       string     `json:"owner_id"`
	RequestID     *uuid.UUID `json:"request_id,omitempty"`
	FileName      string     `json:"file_name"`
	StoragePath   string     `json:"storage_path"`
	ExtractedText string     `json:"extracted_text,omitempty"`
	Embedding     []float32  `json:"embedding,omitempty"`
	ChunkCount    int        `json:"chunk_count"`
	SizeBytes     int64      `json:"size_bytes"`
	MimeType      string     `json:"mime_type,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Chunk is one contiguous slice of a file's extracted text.
type Chunk struct {
	ID        uuid.UUID `json:"id"`
	FileID    uuid.UUID `json:"file_id"`
	Index     int       `json:"chunk_index"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChunkMatch is a ranked chunk from similarity search.
type ChunkMatch struct {
	ID         uuid.UUID `json:"id"`
	FileID     uuid.UUID `json:"file_id"`
	FileName   string    `json:"file_name"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}
