package conversation

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/api"
	"github.com/mnemo-ai/mnemo/internal/auth"
)

// Handler handles conversational-trail HTTP endpoints.
type Handler struct {
	recorder *Recorder
}

func NewHandler(recorder *Recorder) *Handler {
	return &Handler{recorder: recorder}
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request id"))
		return
	}

	req, err := h.recorder.repo.GetRequest(r.Context(), id, owner)
	if err != nil {
		slog.Error("getting request", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	if req == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSON(w, http.StatusOK, req)
}

// DeleteRequest removes a request; its response and reasoning go with it
// through the storage cascade.
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request id"))
		return
	}

	deleted, err := h.recorder.DeleteRequest(r.Context(), owner, id)
	if err != nil {
		slog.Error("deleting request", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	if !deleted {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSONMessage(w, http.StatusOK, "request deleted")
}
