package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/streamforge/vod-platform/internal/media/models"
	"github.com/streamforge/vod-platform/internal/media/service"
)

// ownerHeader carries the authenticated principal; sessions are issued by
// an upstream gateway outside this service.
const ownerHeader = "X-Owner-ID"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	defer r.Body.Close()

	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeErrorJSON(w, http.StatusUnauthorized, "missing owner identity")
		return
	}

	var req PresignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid json body")
		return
	}

	res, err := h.svc.CreatePresign(r.Context(), req.OriginalFilename, req.ContentType, owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, PresignResponse{
		MediaID:   res.MediaID,
		URL:       res.UploadURL,
		Method:    res.Method,
		Headers:   res.Headers,
		Key:       res.Key,
		ExpiresIn: int(res.ExpiresIn.Seconds()),
	})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	defer r.Body.Close()

	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeErrorJSON(w, http.StatusUnauthorized, "missing owner identity")
		return
	}

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.MediaID == uuid.Nil || req.Key == "" {
		writeErrorJSON(w, http.StatusBadRequest, "mediaId and key are required")
		return
	}

	res, err := h.svc.CompleteUpload(r.Context(), req.MediaID, req.Key, owner, req.Size)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CompleteResponse{OK: res.OK, ID: res.ID, Status: string(res.Status)})
}

// Status serves GET /uploads/media/{id}/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/uploads/media/"), "/status")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := h.svc.GetStatus(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		ID:     res.ID,
		Status: string(res.Status),
		HLSKey: res.HLSKey,
		Error:  res.Error,
	})
}

// Resolve serves GET /media/{id}: public playback metadata, READY only.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/media/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := h.svc.Resolve(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResolveResponse{
		ID:        res.ID,
		Status:    string(res.Status),
		StreamURL: res.StreamURL,
	})
}

// Recent serves GET /media/recent?limit=&cursor=.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.svc.GetRecent(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := RecentResponse{
		Nodes:    make([]RecentNode, 0, len(page.Nodes)),
		PageInfo: RecentPageInfo{HasNextPage: page.HasNextPage},
	}
	if page.EndCursor != "" {
		resp.PageInfo.EndCursor = &page.EndCursor
	}
	for _, n := range page.Nodes {
		resp.Nodes = append(resp.Nodes, RecentNode{
			ID:               n.ID,
			HLSKey:           n.HLSKey,
			OriginalFilename: n.OriginalFilename,
			ContentType:      n.ContentType,
			Size:             n.Size,
			UpdatedAt:        n.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeErrorJSON(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrUnauthorized):
		writeErrorJSON(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, models.ErrNotReady), errors.Is(err, models.ErrConflict):
		writeErrorJSON(w, http.StatusConflict, err.Error())
	default:
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
