package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/strideapp/habitsync/internal/repository"
	"github.com/strideapp/habitsync/internal/request"
)

// SyncHandler handles manual sync requests
type SyncHandler struct {
	repo *repository.Facade
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(repo *repository.Facade) *SyncHandler {
	return &SyncHandler{repo: repo}
}

// RegisterRoutes registers sync routes on the given router
func (h *SyncHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sync", h.RequestSync).Methods("POST")
}

// RequestSync enqueues a full sync for the authenticated user. The sync
// itself runs asynchronously on the worker, so the response only confirms
// that the request was queued.
func (h *SyncHandler) RequestSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r.Context())
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	if err := h.repo.RequestSync(r.Context(), userID); err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to queue sync request")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
