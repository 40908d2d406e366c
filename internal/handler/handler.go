// Package handler provides HTTP request handlers for the recipe catalog API.
package handler

import "github.com/vyrodovalexey/recipe-catalog/internal/model"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// Notifier receives catalog change notifications.
type Notifier interface {
	Notify(n model.Notification)
}

type nopNotifier struct{}

func (nopNotifier) Notify(model.Notification) {}
