package model

import "time"

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// ErrorResponse represents an error response structure.
// Field is set when a single input field caused the failure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Notification is pushed to WebSocket clients after a catalog change.
type Notification struct {
	Type      string    `json:"type"`
	RecipeID  string    `json:"recipeId,omitempty"`
	Name      string    `json:"name,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification types.
const (
	NotificationRecipeCreated = "recipe_created"
	NotificationRecipeUpdated = "recipe_updated"
	NotificationRecipeDeleted = "recipe_deleted"
)

var notificationMessages = map[string]string{
	NotificationRecipeCreated: "Recipe added successfully!",
	NotificationRecipeUpdated: "Recipe updated successfully!",
	NotificationRecipeDeleted: "Recipe deleted successfully!",
}

// NewNotification creates a notification of the given type for r.
func NewNotification(kind string, r Recipe) Notification {
	return Notification{
		Type:      kind,
		RecipeID:  r.ID,
		Name:      r.Name,
		Message:   notificationMessages[kind],
		Timestamp: time.Now().UTC(),
	}
}
