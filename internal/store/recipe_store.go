package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/recipe-catalog/internal/model"
	"github.com/vyrodovalexey/recipe-catalog/internal/slot"
)

// DefaultKey is the slot key holding the catalog document.
const DefaultKey = "recipes"

// DefaultWriteTimeout bounds a single catalog write.
const DefaultWriteTimeout = 10 * time.Second

// maxIDAttempts bounds how many generated ids may collide before GenerateID
// gives up.
const maxIDAttempts = 100

// Option configures a RecipeStore.
type Option func(*RecipeStore)

// WithKey sets the slot key used for the catalog document.
func WithKey(key string) Option {
	return func(s *RecipeStore) {
		s.key = key
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *RecipeStore) {
		s.logger = logger
	}
}

// WithWriteTimeout sets how long a catalog write may take.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *RecipeStore) {
		s.writeTimeout = d
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *RecipeStore) {
		s.newID = fn
	}
}

// RecipeStore holds the recipe catalog in memory and writes the whole
// catalog to its slot after every mutation.
//
// A mutation is applied to a copy of the catalog, which replaces the
// in-memory state only after the slot write succeeds. The write lock is held
// for the whole load-modify-persist sequence.
type RecipeStore struct {
	mu           sync.RWMutex
	slot         slot.Slot
	key          string
	logger       *zap.Logger
	newID        func() string
	writeTimeout time.Duration
	recipes      []model.Recipe
	index        map[string]int
	issued       map[string]struct{}
	loaded       bool
}

// New creates a RecipeStore backed by s. Load must be called before use.
func New(s slot.Slot, opts ...Option) *RecipeStore {
	rs := &RecipeStore{
		slot:   s,
		key:    DefaultKey,
		logger: zap.NewNop(),
		newID:  func() string { return uuid.New().String() },
		index:  make(map[string]int),
		issued: make(map[string]struct{}),

		writeTimeout: DefaultWriteTimeout,
	}

	for _, opt := range opts {
		opt(rs)
	}

	return rs
}

// Open creates a RecipeStore and loads the catalog.
func Open(ctx context.Context, s slot.Slot, opts ...Option) (*RecipeStore, error) {
	rs := New(s, opts...)
	if _, err := rs.Load(ctx); err != nil {
		return nil, err
	}
	return rs, nil
}

// Loaded reports whether the catalog has been loaded successfully.
func (s *RecipeStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loaded
}

// Len returns the number of recipes in the catalog.
func (s *RecipeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.recipes)
}

// Load reads the catalog from the slot, replacing the in-memory state.
// A missing or empty slot yields the seed recipes. A value that cannot be
// decoded fails with ErrPersistenceCorrupt and leaves the store unloaded.
func (s *RecipeStore) Load(ctx context.Context) ([]model.Recipe, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load recipes: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recipes, err := s.readLocked(ctx)
	observeOperation("load", err)
	if err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}

	s.commitLocked(recipes)
	s.loaded = true

	return cloneAll(recipes), nil
}

func (s *RecipeStore) readLocked(ctx context.Context) ([]model.Recipe, error) {
	data, err := s.slot.Read(ctx, s.key)
	if errors.Is(err, slot.ErrNotExist) {
		s.logger.Info("no saved catalog, using seed recipes", zap.String("key", s.key))
		return model.SeedRecipes(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}

	recipes, err := decodeCatalog(data)
	if err != nil {
		s.logger.Error("saved catalog is corrupt", zap.String("key", s.key), zap.Error(err))
		return nil, err
	}
	if recipes == nil {
		s.logger.Info("saved catalog is empty, using seed recipes", zap.String("key", s.key))
		return model.SeedRecipes(), nil
	}

	s.logger.Info("catalog loaded", zap.String("key", s.key), zap.Int("recipes", len(recipes)))
	return recipes, nil
}

// decodeCatalog parses a catalog document. It returns nil, nil for a blank
// document. Recipes with a missing or duplicate id, or that break the rules
// enforced on input, are corrupt.
func decodeCatalog(data []byte) ([]model.Recipe, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: document is null", ErrPersistenceCorrupt)
	}

	recipes := []model.Recipe{}
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceCorrupt, err)
	}

	seen := make(map[string]struct{}, len(recipes))
	for i, r := range recipes {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: recipe at position %d has no id", ErrPersistenceCorrupt, i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate recipe id %q", ErrPersistenceCorrupt, r.ID)
		}
		seen[r.ID] = struct{}{}

		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: recipe %q: %w", ErrPersistenceCorrupt, r.ID, err)
		}
	}

	return recipes, nil
}

// Save writes recipes to the slot as the whole catalog and, on success,
// makes them the in-memory catalog.
func (s *RecipeStore) Save(ctx context.Context, recipes []model.Recipe) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("save recipes: %w", ctx.Err())
	default:
	}

	next := cloneAll(recipes)
	if err := validateCatalog(next); err != nil {
		observeOperation("save", err)
		return fmt.Errorf("save recipes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.persistLocked(ctx, next)
	observeOperation("save", err)
	if err != nil {
		return fmt.Errorf("save recipes: %w", err)
	}

	s.commitLocked(next)
	s.loaded = true

	return nil
}

// Reset replaces the catalog with the seed recipes. It is the explicit
// recovery path for a corrupt saved catalog.
func (s *RecipeStore) Reset(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("reset recipes: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := model.SeedRecipes()
	err := s.persistLocked(ctx, next)
	observeOperation("reset", err)
	if err != nil {
		return fmt.Errorf("reset recipes: %w", err)
	}

	s.commitLocked(next)
	s.loaded = true
	s.logger.Warn("catalog reset to seed recipes", zap.String("key", s.key))

	return nil
}

// GenerateID returns an id not held by the catalog and never issued before
// by this store. It fails with ErrIDExhausted when the generator keeps
// producing ids that are taken.
func (s *RecipeStore) GenerateID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generateIDLocked()
}

func (s *RecipeStore) generateIDLocked() (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, held := s.index[id]; held {
			continue
		}
		if _, used := s.issued[id]; used {
			continue
		}
		s.issued[id] = struct{}{}
		return id, nil
	}
	return "", fmt.Errorf("%w after %d attempts", ErrIDExhausted, maxIDAttempts)
}

// List returns recipes matching the filter in catalog order.
func (s *RecipeStore) List(ctx context.Context, filter Filter) ([]model.Recipe, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list recipes: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, fmt.Errorf("list recipes: %w", ErrNotLoaded)
	}

	recipes := make([]model.Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		if filter.Matches(r) {
			recipes = append(recipes, r.Clone())
		}
	}

	return recipes, nil
}

// Categories returns the distinct categories in first-seen order.
func (s *RecipeStore) Categories(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list categories: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, fmt.Errorf("list categories: %w", ErrNotLoaded)
	}

	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, r := range s.recipes {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		categories = append(categories, r.Category)
	}

	return categories, nil
}

// Get retrieves a recipe by its ID.
func (s *RecipeStore) Get(ctx context.Context, id string) (*model.Recipe, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get recipe: %w", ctx.Err())
	default:
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, fmt.Errorf("get recipe: %w", ErrNotLoaded)
	}

	i, exists := s.index[id]
	if !exists {
		return nil, ErrNotFound
	}

	recipe := s.recipes[i].Clone()
	return &recipe, nil
}

// Add validates the input, assigns a new ID and appends the recipe.
func (s *RecipeStore) Add(ctx context.Context, input model.RecipeInput) (*model.Recipe, error) {
	recipe, err := s.add(ctx, input)
	observeOperation("add", err)
	return recipe, err
}

func (s *RecipeStore) add(ctx context.Context, input model.RecipeInput) (*model.Recipe, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("add recipe: %w", ctx.Err())
	default:
	}

	recipe, err := input.Normalize()
	if err != nil {
		return nil, fmt.Errorf("add recipe: %w: %w", ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, fmt.Errorf("add recipe: %w", ErrNotLoaded)
	}

	recipe.ID, err = s.generateIDLocked()
	if err != nil {
		return nil, fmt.Errorf("add recipe: %w", err)
	}
	next := append(cloneAll(s.recipes), recipe)

	if err := s.persistLocked(ctx, next); err != nil {
		return nil, fmt.Errorf("add recipe: %w", err)
	}
	s.commitLocked(next)

	s.logger.Debug("recipe added", zap.String("id", recipe.ID), zap.String("name", recipe.Name))

	created := recipe.Clone()
	return &created, nil
}

// Update replaces every field of an existing recipe except its ID. The
// recipe keeps its position in the catalog.
func (s *RecipeStore) Update(ctx context.Context, id string, input model.RecipeInput) (*model.Recipe, error) {
	recipe, err := s.update(ctx, id, input)
	observeOperation("update", err)
	return recipe, err
}

func (s *RecipeStore) update(ctx context.Context, id string, input model.RecipeInput) (*model.Recipe, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update recipe: %w", ctx.Err())
	default:
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, fmt.Errorf("update recipe: %w", ErrNotLoaded)
	}

	i, exists := s.index[id]
	if !exists {
		return nil, ErrNotFound
	}

	recipe, err := input.Normalize()
	if err != nil {
		return nil, fmt.Errorf("update recipe: %w: %w", ErrInvalidInput, err)
	}
	recipe.ID = id

	next := cloneAll(s.recipes)
	next[i] = recipe

	if err := s.persistLocked(ctx, next); err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}
	s.commitLocked(next)

	s.logger.Debug("recipe updated", zap.String("id", id))

	updated := recipe.Clone()
	return &updated, nil
}

// Delete removes a recipe by its ID.
func (s *RecipeStore) Delete(ctx context.Context, id string) error {
	err := s.delete(ctx, id)
	observeOperation("delete", err)
	return err
}

func (s *RecipeStore) delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete recipe: %w", ctx.Err())
	default:
	}

	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return fmt.Errorf("delete recipe: %w", ErrNotLoaded)
	}

	i, exists := s.index[id]
	if !exists {
		return ErrNotFound
	}

	next := slices.Delete(cloneAll(s.recipes), i, i+1)

	if err := s.persistLocked(ctx, next); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	s.commitLocked(next)

	s.logger.Debug("recipe deleted", zap.String("id", id))

	return nil
}

// persistLocked writes recipes as the full catalog document. The write is
// detached from ctx cancellation and bounded by the write timeout instead: a
// caller going away must not turn an applied write into a reported failure.
func (s *RecipeStore) persistLocked(ctx context.Context, recipes []model.Recipe) error {
	data, err := json.Marshal(recipes)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	start := time.Now()
	err = s.slot.Write(writeCtx, s.key, data)
	observePersist(start)
	if err != nil {
		s.logger.Error("failed to save catalog", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}

	return nil
}

// commitLocked makes recipes the in-memory catalog.
func (s *RecipeStore) commitLocked(recipes []model.Recipe) {
	index := make(map[string]int, len(recipes))
	for i, r := range recipes {
		index[r.ID] = i
		s.issued[r.ID] = struct{}{}
	}

	s.recipes = recipes
	s.index = index
	recipesStored.Set(float64(len(recipes)))
}

// validateCatalog checks a caller-supplied catalog before it is saved.
func validateCatalog(recipes []model.Recipe) error {
	seen := make(map[string]struct{}, len(recipes))
	for _, r := range recipes {
		if r.ID == "" {
			return ErrInvalidID
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	for _, r := range recipes {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: recipe %q: %w", ErrInvalidInput, r.ID, err)
		}
	}
	return nil
}

func cloneAll(recipes []model.Recipe) []model.Recipe {
	out := make([]model.Recipe, len(recipes))
	for i, r := range recipes {
		out[i] = r.Clone()
	}
	return out
}
