package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/strideapp/habitsync/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("recurrence", validateRecurrence); err != nil {
		panic(fmt.Sprintf("failed to register recurrence validator: %v", err))
	}
	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("weekday", validateWeekday); err != nil {
		panic(fmt.Sprintf("failed to register weekday validator: %v", err))
	}
	if err := Validate.RegisterValidation("sync_status", validateSyncStatus); err != nil {
		panic(fmt.Sprintf("failed to register sync_status validator: %v", err))
	}
}

// validateRecurrence validates that a string is a valid RecurrencePolicy value
func validateRecurrence(fl validator.FieldLevel) bool {
	switch models.RecurrencePolicy(fl.Field().String()) {
	case models.RecurrenceDaily, models.RecurrenceWeekly:
		return true
	default:
		return false
	}
}

// validatePriority validates that a string is a valid Priority value
func validatePriority(fl validator.FieldLevel) bool {
	switch models.Priority(fl.Field().String()) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	default:
		return false
	}
}

// validateWeekday validates that a string is a valid Weekday value
func validateWeekday(fl validator.FieldLevel) bool {
	return models.Weekday(fl.Field().String()).Valid()
}

// validateSyncStatus validates that a string is a valid SyncStatus value
func validateSyncStatus(fl validator.FieldLevel) bool {
	return models.SyncStatus(fl.Field().String()).Valid()
}

// ValidateRecurrence validates a recurrence policy string
func ValidateRecurrence(value string) error {
	switch models.RecurrencePolicy(value) {
	case models.RecurrenceDaily, models.RecurrenceWeekly:
		return nil
	default:
		return fmt.Errorf("invalid recurrence policy: %s (must be one of: daily, weekly)", value)
	}
}

// ValidatePriority validates a priority string
func ValidatePriority(value string) error {
	switch models.Priority(value) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s (must be one of: low, medium, high)", value)
	}
}

// ValidateHabit checks the cross-field rules a habit must satisfy before it
// reaches the store: a name is always required, and a weekly habit must name
// at least one valid target weekday while a daily habit must name none.
func ValidateHabit(h *models.Habit) error {
	if h.Name == "" {
		return fmt.Errorf("habit name is required")
	}
	if err := ValidateRecurrence(string(h.Recurrence)); err != nil {
		return err
	}
	switch h.Recurrence {
	case models.RecurrenceWeekly:
		if len(h.TargetWeekdays) == 0 {
			return fmt.Errorf("weekly habit requires at least one target weekday")
		}
		seen := make(map[models.Weekday]bool, len(h.TargetWeekdays))
		for _, wd := range h.TargetWeekdays {
			if !wd.Valid() {
				return fmt.Errorf("invalid target weekday: %s", wd)
			}
			if seen[wd] {
				return fmt.Errorf("duplicate target weekday: %s", wd)
			}
			seen[wd] = true
		}
	case models.RecurrenceDaily:
		if len(h.TargetWeekdays) != 0 {
			return fmt.Errorf("daily habit must not set target weekdays")
		}
	}
	if h.Priority != "" {
		if err := ValidatePriority(string(h.Priority)); err != nil {
			return err
		}
	}
	return nil
}
