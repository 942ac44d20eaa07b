package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"shopify-video-layer/internal/domain"
)

const maxVideoBodyBytes = 1 << 20

type generateVideoResponse struct {
	TaskID string `json:"taskId"`
}

func (h *Handler) handleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req domain.VideoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVideoBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidVideoRequest, err))
		return
	}

	taskID, err := h.services.Videos.Generate(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateVideoResponse{TaskID: taskID})
}

func (h *Handler) handleVideoStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.services.Videos.Status(r.Context(), r.URL.Query().Get("taskId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleVideoCallback acknowledges the provider's completion notice.
func (h *Handler) handleVideoCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxVideoBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "unreadable_body",
			Message: "failed to read callback body",
			Details: err.Error(),
		})
		return
	}

	h.services.Videos.HandleCallback(r.Context(), body)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Callback received"})
}

func (h *Handler) handleVideoCallbackReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Callback endpoint is ready",
		"method":  http.MethodPost,
	})
}
