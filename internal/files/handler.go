package files

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/api"
	"github.com/mnemo-ai/mnemo/internal/auth"
)

// Handler handles file ingestion and chunk search endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

type ingestRequest struct {
	FileName    string `json:"file_name" validate:"required,min=1,max=255"`
	StoragePath string `json:"storage_path" validate:"required,min=1"`
	MimeType    string `json:"mime_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty" validate:"omitempty,gte=0"`
	RequestID   string `json:"request_id,omitempty" validate:"omitempty,uuid"`
	Text        string `json:"text,omitempty"`
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	in := IngestInput{
		FileName:    req.FileName,
		StoragePath: req.StoragePath,
		MimeType:    req.MimeType,
		SizeBytes:   req.SizeBytes,
		Text:        req.Text,
	}
	if req.RequestID != "" {
		id, err := uuid.Parse(req.RequestID)
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid request id"))
			return
		}
		in.RequestID = &id
	}

	f, err := h.svc.Ingest(r.Context(), owner, in)
	if err != nil {
		slog.Error("ingesting file", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, f)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid file id"))
		return
	}

	f, err := h.svc.Get(r.Context(), owner, id)
	if err != nil {
		slog.Error("getting file", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	if f == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSON(w, http.StatusOK, f)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	list, err := h.svc.List(r.Context(), owner, limit)
	if err != nil {
		slog.Error("listing files", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	if list == nil {
		list = []File{}
	}
	api.JSON(w, http.StatusOK, list)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid file id"))
		return
	}

	deleted, err := h.svc.Delete(r.Context(), owner, id)
	if err != nil {
		slog.Error("deleting file", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	if !deleted {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSONMessage(w, http.StatusOK, "file deleted")
}

type chunkSearchRequest struct {
	Query    string  `json:"query" validate:"required,min=1"`
	Limit    int     `json:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	MinScore float64 `json:"min_score,omitempty" validate:"omitempty,gte=0,lte=1"`
}

func (h *Handler) SearchChunks(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())

	var req chunkSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	matches, err := h.svc.SearchChunks(r.Context(), owner, req.Query, req.Limit, req.MinScore)
	if err != nil {
		slog.Error("searching file chunks", "owner", owner, "error", err)
		api.HandleError(w, err)
		return
	}
	if matches == nil {
		matches = []ChunkMatch{}
	}
	api.JSON(w, http.StatusOK, matches)
}
