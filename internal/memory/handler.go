package memory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/api"
	"github.com/mnemo-ai/mnemo/internal/auth"
)

// Handler handles memory HTTP endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// handleServiceError maps the engine's validation sentinels to 400 and
// leaves the rest to the shared mapping.
func handleServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidCategory) || errors.Is(err, ErrInvalidScoreRange) {
		api.JSONErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	api.HandleError(w, err)
}

type storeRequest struct {
	Content    string         `json:"content" validate:"required,min=1,max=10000"`
	Category   string         `json:"category" validate:"required"`
	Importance *float64       `json:"importance,omitempty" validate:"omitempty,gte=0,lte=1"`
	Confidence *float64       `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// Store creates a memory, returning 200 with the existing record when
// the near-duplicate guard fires and 201 when a new row was inserted.
func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	in := StoreInput{
		Content:    req.Content,
		Category:   Category(req.Category),
		Importance: DefaultImportance,
		Confidence: DefaultConfidence,
		Metadata:   req.Metadata,
		SessionID:  req.SessionID,
		SourceType: "api",
		ExpiresAt:  req.ExpiresAt,
	}
	if req.Importance != nil {
		in.Importance = *req.Importance
	}
	if req.Confidence != nil {
		in.Confidence = *req.Confidence
	}

	outcome, err := h.svc.Store(r.Context(), owner, in)
	if err != nil {
		slog.Error("storing memory", "owner", owner, "error", err)
		handleServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if outcome.Duplicate {
		status = http.StatusOK
	}
	api.JSON(w, status, outcome)
}

type searchRequest struct {
	Query    string  `json:"query" validate:"required,min=1"`
	Limit    int     `json:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	MinScore float64 `json:"min_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	Category string  `json:"category,omitempty"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	results, err := h.svc.Search(r.Context(), owner, req.Query, req.Limit, req.MinScore, Category(req.Category))
	if err != nil {
		slog.Error("searching memories", "owner", owner, "error", err)
		handleServiceError(w, err)
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	api.JSON(w, http.StatusOK, results)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "memoryID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid memory id"))
		return
	}

	rec, err := h.svc.Get(r.Context(), owner, id)
	if err != nil {
		slog.Error("getting memory", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	if rec == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSON(w, http.StatusOK, rec)
}

type updateRequest struct {
	Content    string         `json:"content" validate:"required,min=1,max=10000"`
	Category   string         `json:"category" validate:"required"`
	Importance *float64       `json:"importance,omitempty" validate:"omitempty,gte=0,lte=1"`
	Confidence *float64       `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Update replaces the mutable fields of a memory. This is the explicit
// edit path; automatic capture only ever inserts.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "memoryID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid memory id"))
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	in := UpdateInput{
		Content:    req.Content,
		Category:   Category(req.Category),
		Importance: DefaultImportance,
		Confidence: DefaultConfidence,
		Metadata:   req.Metadata,
	}
	if req.Importance != nil {
		in.Importance = *req.Importance
	}
	if req.Confidence != nil {
		in.Confidence = *req.Confidence
	}

	rec, err := h.svc.Update(r.Context(), owner, id, in)
	if err != nil {
		slog.Error("updating memory", "owner", owner, "error", err)
		handleServiceError(w, err)
		return
	}
	if rec == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSON(w, http.StatusOK, rec)
}

// Forget deletes one memory by id. A missing or not-owned id is a 404,
// not an internal error.
func (h *Handler) Forget(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "memoryID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid memory id"))
		return
	}

	deleted, err := h.svc.Forget(r.Context(), owner, id)
	if err != nil {
		slog.Error("forgetting memory", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	if !deleted {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSONMessage(w, http.StatusOK, "memory deleted")
}

type forgetQueryRequest struct {
	Query string `json:"query" validate:"required,min=1"`
}

// ForgetByQuery deletes the single confident match for a query, or
// returns the candidate list for the caller to disambiguate.
func (h *Handler) ForgetByQuery(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	var req forgetQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	outcome, err := h.svc.ForgetByQuery(r.Context(), owner, req.Query)
	if err != nil {
		slog.Error("forgetting by query", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, outcome)
}

// ForgetAll erases every memory of the calling owner.
func (h *Handler) ForgetAll(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	deleted, err := h.svc.ForgetAll(r.Context(), owner)
	if err != nil {
		slog.Error("forgetting all memories", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	count, err := h.svc.Count(r.Context(), owner)
	if err != nil {
		slog.Error("counting memories", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]int64{"count": count})
}
