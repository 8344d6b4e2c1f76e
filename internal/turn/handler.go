package turn

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/api"
	"github.com/mnemo-ai/mnemo/internal/auth"
)

// Handler exposes the before/after turn hooks over HTTP for hosts that
// integrate via the service surface instead of linking the engine.
type Handler struct {
	hooks    *Hooks
	validate *validator.Validate
}

func NewHandler(hooks *Hooks) *Handler {
	return &Handler{hooks: hooks, validate: validator.New()}
}

type beforeTurnRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message" validate:"required,min=1"`
}

func (h *Handler) Before(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	var req beforeTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	result, err := h.hooks.BeforeTurn(r.Context(), owner, req.SessionID, req.Message)
	if err != nil {
		slog.Error("before-turn hook", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, result)
}

type afterTurnRequest struct {
	SessionID string    `json:"session_id,omitempty"`
	RequestID string    `json:"request_id" validate:"required,uuid"`
	Messages  []Message `json:"messages" validate:"required,min=1"`
	ModelUsed string    `json:"model_used,omitempty"`
}

func (h *Handler) After(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	var req afterTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request id"))
		return
	}

	result, err := h.hooks.AfterTurn(r.Context(), owner, req.SessionID, requestID, req.Messages, req.ModelUsed)
	if err != nil {
		slog.Error("after-turn hook", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, result)
}
