package recall

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mnemo-ai/mnemo/internal/api"
	"github.com/mnemo-ai/mnemo/internal/auth"
)

// Handler exposes the unified context search.
type Handler struct {
	agg      *Aggregator
	validate *validator.Validate
}

func NewHandler(agg *Aggregator) *Handler {
	return &Handler{agg: agg, validate: validator.New()}
}

type contextSearchRequest struct {
	Query    string  `json:"query" validate:"required,min=1"`
	Limit    int     `json:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	MinScore float64 `json:"min_score,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// SearchContext runs the cross-source search. Unlike the in-turn recall
// path, this is an explicit invocation, so failures surface to the
// caller instead of being swallowed.
func (h *Handler) SearchContext(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	var req contextSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	hits, err := h.agg.SearchAll(r.Context(), owner, req.Query, req.Limit, req.MinScore)
	if err != nil {
		slog.Error("context search", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	if hits == nil {
		hits = []Hit{}
	}
	api.JSON(w, http.StatusOK, hits)
}
