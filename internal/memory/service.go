package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/metrics"
)

// Heuristic thresholds carried over from operational tuning. Raising
// dedupThreshold admits more near-restatements; lowering
// autoForgetThreshold makes forget-by-query delete on weaker matches.
const (
	// dedupThreshold is the similarity at or above which a new memory is
	// treated as a restatement of an existing one and not inserted.
	dedupThreshold = 0.95

	// autoForgetThreshold is the similarity a single candidate must
	// exceed for forget-by-query to delete it without asking.
	autoForgetThreshold = 0.9

	defaultSearchLimit   = 5
	defaultSearchScore   = 0.3
	forgetCandidateLimit = 5
	forgetCandidateScore = 0.3
)

// Service orchestrates store/search/forget of long-lived memories on top
// of the repository, including the near-duplicate guard on writes.
type Service struct {
	repo     Repository
	embedder embedding.Embedder
	events   *events.Publisher
}

// NewService creates a memory service. events may be nil when no bus is
// configured.
func NewService(repo Repository, embedder embedding.Embedder, ev *events.Publisher) *Service {
	return &Service{repo: repo, embedder: embedder, events: ev}
}

// StoreInput carries the caller-supplied fields of a new memory.
type StoreInput struct {
	Content    string
	Category   Category
	Importance float64
	Confidence float64
	Metadata   map[string]any
	SessionID  string
	SourceType string
	SourceID   string
	ExpiresAt  *time.Time
}

// StoreOutcome reports whether a record was inserted or an existing
// near-duplicate was returned instead.
type StoreOutcome struct {
	Record     *Record `json:"record"`
	Duplicate  bool    `json:"duplicate"`
	Similarity float64 `json:"similarity,omitempty"`
}

// Store embeds the content as a passage, checks the owner's memories for
// a near-duplicate, and inserts only when none is found. The dedup check
// is a read-then-write span: two concurrent stores of near-identical
// content can both insert. Callers needing strict uniqueness must
// serialize per owner.
func (s *Service) Store(ctx context.Context, ownerID string, in StoreInput) (*StoreOutcome, error) {
	rec := &Record{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		SessionID:  in.SessionID,
		Content:    in.Content,
		Category:   in.Category,
		Importance: in.Importance,
		Confidence: in.Confidence,
		Metadata:   in.Metadata,
		SourceType: in.SourceType,
		SourceID:   in.SourceID,
		ExpiresAt:  in.ExpiresAt,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	vec, err := s.embedder.Embed(ctx, in.Content, embedding.KindPassage)
	if err != nil {
		return nil, err
	}
	rec.Embedding = vec

	dupes, err := s.repo.SearchSimilar(ctx, ownerID, vec, 1, dedupThreshold, "")
	if err != nil {
		return nil, err
	}
	if len(dupes) > 0 {
		metrics.MemoryStoresTotal.WithLabelValues("duplicate").Inc()
		existing := dupes[0]
		return &StoreOutcome{
			Record:     &existing.Record,
			Duplicate:  true,
			Similarity: existing.Similarity,
		}, nil
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	metrics.MemoryStoresTotal.WithLabelValues("stored").Inc()

	if s.events != nil {
		if err := s.events.PublishMemoryStored(ctx, events.MemoryStored{
			MemoryID: rec.ID.String(),
			OwnerID:  ownerID,
			Category: string(rec.Category),
			Source:   rec.SourceType,
		}); err != nil {
			slog.Warn("publishing memory stored event", "error", err, "memory_id", rec.ID)
		}
	}

	return &StoreOutcome{Record: rec}, nil
}

// Search embeds the query and returns owner-scoped memories ranked by
// similarity. A non-positive limit or minScore falls back to defaults.
func (s *Service) Search(ctx context.Context, ownerID, query string, limit int, minScore float64, category Category) ([]SearchResult, error) {
	if category != "" && !category.Valid() {
		return nil, ErrInvalidCategory
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if minScore <= 0 {
		minScore = defaultSearchScore
	}

	vec, err := s.embedder.Embed(ctx, query, embedding.KindQuery)
	if err != nil {
		return nil, err
	}

	metrics.MemorySearchesTotal.WithLabelValues("memory").Inc()
	return s.repo.SearchSimilar(ctx, ownerID, vec, limit, minScore, category)
}

// UpdateInput replaces the mutable fields of a memory. Updates are the
// explicit-edit path; auto-capture only ever inserts.
type UpdateInput struct {
	Content    string
	Category   Category
	Importance float64
	Confidence float64
	Metadata   map[string]any
}

// Update rewrites an existing memory, re-embedding when the content
// changed. Returns nil without error when the id is not the owner's.
func (s *Service) Update(ctx context.Context, ownerID string, id uuid.UUID, in UpdateInput) (*Record, error) {
	existing, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	rec := *existing
	rec.Content = in.Content
	rec.Category = in.Category
	rec.Importance = in.Importance
	rec.Confidence = in.Confidence
	rec.Metadata = in.Metadata
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	if rec.Content != existing.Content {
		vec, err := s.embedder.Embed(ctx, rec.Content, embedding.KindPassage)
		if err != nil {
			return nil, err
		}
		rec.Embedding = vec
	}

	updated, err := s.repo.Update(ctx, &rec)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, nil
	}
	return &rec, nil
}

// Forget deletes a memory by id. A missing or not-owned id reports
// deleted=false; that is an expected outcome, not an error.
func (s *Service) Forget(ctx context.Context, ownerID string, id uuid.UUID) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.publishForgotten(ctx, ownerID, id.String(), "by_id")
	}
	return deleted, nil
}

// ForgetOutcome is the result of forget-by-query: either one confidently
// deleted record, or the candidate list for the caller to disambiguate.
type ForgetOutcome struct {
	Deleted    *Record        `json:"deleted,omitempty"`
	Candidates []SearchResult `json:"candidates,omitempty"`
}

// ForgetByQuery finds memories matching the query text. When exactly one
// candidate scores above autoForgetThreshold it is deleted outright;
// otherwise the candidates are returned so the caller can choose.
func (s *Service) ForgetByQuery(ctx context.Context, ownerID, query string) (*ForgetOutcome, error) {
	vec, err := s.embedder.Embed(ctx, query, embedding.KindQuery)
	if err != nil {
		return nil, err
	}

	candidates, err := s.repo.SearchSimilar(ctx, ownerID, vec, forgetCandidateLimit, forgetCandidateScore, "")
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &ForgetOutcome{}, nil
	}

	var confident []SearchResult
	for _, c := range candidates {
		if c.Similarity > autoForgetThreshold {
			confident = append(confident, c)
		}
	}

	if len(confident) == 1 {
		target := confident[0].Record
		deleted, err := s.repo.Delete(ctx, target.ID, ownerID)
		if err != nil {
			return nil, err
		}
		if deleted {
			s.publishForgotten(ctx, ownerID, target.ID.String(), "by_query")
			return &ForgetOutcome{Deleted: &target}, nil
		}
	}

	return &ForgetOutcome{Candidates: candidates}, nil
}

// ForgetAll erases every memory of an owner.
func (s *Service) ForgetAll(ctx context.Context, ownerID string) (int64, error) {
	n, err := s.repo.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.publishForgotten(ctx, ownerID, "", "all")
	}
	return n, nil
}

// Get returns a single memory, or nil when it does not exist.
func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, id, ownerID)
}

// Count returns the number of memories for an owner, or all memories
// when ownerID is empty.
func (s *Service) Count(ctx context.Context, ownerID string) (int64, error) {
	return s.repo.Count(ctx, ownerID)
}

func (s *Service) publishForgotten(ctx context.Context, ownerID, memoryID, mode string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMemoryForgotten(ctx, events.MemoryForgotten{
		MemoryID: memoryID,
		OwnerID:  ownerID,
		Mode:     mode,
	}); err != nil {
		slog.Warn("publishing memory forgotten event", "error", err, "owner_id", ownerID)
	}
}
