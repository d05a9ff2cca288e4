package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/strideapp/habitsync/internal/models"
	"github.com/strideapp/habitsync/internal/repository"
	"github.com/strideapp/habitsync/internal/request"
	"github.com/strideapp/habitsync/internal/validation"
)

// HabitHandler handles habit-related requests
type HabitHandler struct {
	repo *repository.Facade
}

// NewHabitHandler creates a new habit handler
func NewHabitHandler(repo *repository.Facade) *HabitHandler {
	return &HabitHandler{repo: repo}
}

// RegisterRoutes registers habit routes on the given router.
// The router should already have the /habits prefix (e.g., from apiRouter.PathPrefix("/habits")).
func (h *HabitHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListHabits).Methods("GET")
	r.HandleFunc("", h.CreateHabit).Methods("POST")
	r.HandleFunc("/pending", h.ListPending).Methods("GET")
	r.HandleFunc("/{id}", h.GetHabit).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateHabit).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteHabit).Methods("DELETE")
	r.HandleFunc("/{id}/toggle", h.ToggleCompletion).Methods("POST")
	r.HandleFunc("/{id}/completions", h.ListCompletions).Methods("GET")
}

// CreateHabitRequest represents a create habit request
type CreateHabitRequest struct {
	Name           string           `json:"name" validate:"required,min=1,max=200"`
	Description    string           `json:"description" validate:"max=2000"`
	Recurrence     string           `json:"recurrence" validate:"omitempty,recurrence"`
	TargetWeekdays []models.Weekday `json:"target_weekdays" validate:"omitempty,dive,weekday"`
	Priority       string           `json:"priority" validate:"omitempty,priority"`
	Category       string           `json:"category" validate:"max=100"`
}

// UpdateHabitRequest represents a partial update to an existing habit
type UpdateHabitRequest struct {
	Name           *string           `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description    *string           `json:"description,omitempty" validate:"omitempty,max=2000"`
	Recurrence     *string           `json:"recurrence,omitempty" validate:"omitempty,recurrence"`
	TargetWeekdays *[]models.Weekday `json:"target_weekdays,omitempty" validate:"omitempty,dive,weekday"`
	Priority       *string           `json:"priority,omitempty" validate:"omitempty,priority"`
	Category       *string           `json:"category,omitempty" validate:"omitempty,max=100"`
}

// ToggleCompletionRequest carries the optional date to toggle. When the
// body is empty or the date field is absent, today is used.
type ToggleCompletionRequest struct {
	Date string `json:"date,omitempty"`
}

// ListHabitsResponse represents the response for listing habits
type ListHabitsResponse struct {
	Habits []*models.Habit `json:"habits"`
	Total  int             `json:"total"`
}

// ListHabits lists all habits for the authenticated user
func (h *HabitHandler) ListHabits(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r.Context())
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habits, err := h.repo.ListHabits(r.Context(), userID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve habits")
		return
	}

	respondJSON(w, http.StatusOK, ListHabitsResponse{Habits: habits, Total: len(habits)})
}

// CreateHabit creates a new habit
func (h *HabitHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r.Context())
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	// Validate request
	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	habit := &models.Habit{
		Name:           req.Name,
		Description:    req.Description,
		Recurrence:     models.RecurrencePolicy(req.Recurrence),
		TargetWeekdays: req.TargetWeekdays,
		Priority:       models.Priority(req.Priority),
		Category:       req.Category,
	}
	if habit.Recurrence == "" {
		habit.Recurrence = models.RecurrenceDaily
	}
	if habit.Priority == "" {
		habit.Priority = models.PriorityMedium
	}

	created, err := h.repo.CreateHabit(r.Context(), userID, habit)
	if err != nil {
		respondRepoError(w, err, "Failed to create habit")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// GetHabit retrieves a habit by ID
func (h *HabitHandler) GetHabit(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r.Context())
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid habit ID")
		return
	}

	habit, err := h.repo.GetHabit(r.Context(), userID, id)
	if err != nil {
		respondRepoError(w, err, "Failed to retrieve habit")
		return
	}

	respondJSON(w, http.StatusOK, habit)
}

// UpdateHabit updates an existing habit
func (h *HabitHandler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r.Context())
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid habit ID")
		return
	}

	habit, err := h.repo.GetHabit(r.Context(), userID, id)
	if err != nil {
		respondRepoError(w, err, "Failed to retrieve habit")
		return
	}

	var req UpdateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	// Validate request
	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	if req.Name != nil {
		habit.Name = *req.Name
	}
	if req.Description != nil {
		habit.Description = *req.Description
	}
	if req.Recurrence != nil {
		habit.Recurrence = models.RecurrencePolicy(*req.Recurrence)
	}
	if req.TargetWeekdays != nil {
		habit.TargetWeekdays = *req.TargetWeekdays
	}
	if req.Priority != nil {
		habit.Priority = models.Priority(*req.Priority)
	}
	if req.Category != nil {
		habit.Category = *req.Category
	}

	updated, err := h.repo.UpdateHabit(r.Context(), userID, habit)
	if err != nil {
		respondRepoError(w, err, "Failed to update habit")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DeleteHabit deletes a habit and its completions
func (h *HabitHandler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r.Context())
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid habit ID")
		return
	}

	if err := h.repo.DeleteHabit(r.Context(), userID, id); err != nil {
		respondRepoError(w, err, "Failed to delete habit")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Habit deleted"})
}

// ToggleCompletion toggles the completion of a habit for a date. An empty
// or absent body toggles today.
func (h *HabitHandler) ToggleCompletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r.Context())
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid habit ID")
		return
	}

	var req ToggleCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	var date time.Time
	if req.Date != "" {
		date, err = models.ParseDate(req.Date)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid date, expected YYYY-MM-DD")
			return
		}
	}

	habit, err := h.repo.ToggleCompletion(r.Context(), userID, id, date)
	if err != nil {
		respondRepoError(w, err, "Failed to toggle completion")
		return
	}

	respondJSON(w, http.StatusOK, habit)
}

// ListCompletions lists the completion history for a habit
func (h *HabitHandler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r.Context())
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid habit ID")
		return
	}

	completions, err := h.repo.ListCompletions(r.Context(), userID, id)
	if err != nil {
		respondRepoError(w, err, "Failed to retrieve completions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"completions": completions,
		"total":       len(completions),
	})
}

// ListPending reports the records still waiting to be pushed upstream
func (h *HabitHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r.Context())
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	pending, err := h.repo.ListPending(r.Context(), userID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve pending records")
		return
	}

	respondJSON(w, http.StatusOK, pending)
}
