// Package store provides the recipe catalog and its persistence.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/recipe-catalog/internal/model"
)

// Store errors.
var (
	ErrNotFound               = errors.New("recipe not found")
	ErrInvalidID              = errors.New("invalid recipe ID")
	ErrInvalidInput           = errors.New("invalid recipe input")
	ErrNotLoaded              = errors.New("recipe catalog not loaded")
	ErrPersistenceCorrupt     = errors.New("saved recipe catalog is corrupt")
	ErrPersistenceUnavailable = errors.New("recipe storage unavailable")
	ErrIDExhausted            = errors.New("no unique recipe ID available")
)

// Filter selects recipes for List. An empty Category or model.CategoryAll
// disables category filtering; an empty Search matches everything.
type Filter struct {
	Category string
	Search   string
}

// Matches reports whether r passes the filter.
func (f Filter) Matches(r model.Recipe) bool {
	if f.Category != "" && f.Category != model.CategoryAll && r.Category != f.Category {
		return false
	}
	return r.MatchesSearch(f.Search)
}

// Store defines the catalog operations used by the HTTP layer.
type Store interface {
	// List returns recipes matching the filter in catalog order.
	List(ctx context.Context, filter Filter) ([]model.Recipe, error)

	// Categories returns the distinct categories in first-seen order.
	Categories(ctx context.Context) ([]string, error)

	// Get retrieves a recipe by its ID.
	Get(ctx context.Context, id string) (*model.Recipe, error)

	// Add validates the input, assigns a new ID and persists the recipe.
	Add(ctx context.Context, input model.RecipeInput) (*model.Recipe, error)

	// Update replaces every field of an existing recipe except its ID.
	Update(ctx context.Context, id string, input model.RecipeInput) (*model.Recipe, error)

	// Delete removes a recipe by its ID.
	Delete(ctx context.Context, id string) error
}
