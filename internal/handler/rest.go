package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/recipe-catalog/internal/model"
	"github.com/vyrodovalexey/recipe-catalog/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// Query parameters accepted by ListRecipes.
const (
	QueryCategory = "category"
	QuerySearch   = "search"
)

// maxBodyBytes caps request bodies for recipe create and update.
const maxBodyBytes = 1 << 20

// RESTHandler handles REST API requests for recipes.
type RESTHandler struct {
	store    store.Store
	notifier Notifier
	logger   *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance. A nil notifier
// disables change notifications.
func NewRESTHandler(s store.Store, notifier Notifier, logger *zap.Logger) *RESTHandler {
	if notifier == nil {
		notifier = nopNotifier{}
	}

	return &RESTHandler{
		store:    s,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/recipes", h.ListRecipes).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/recipes", h.CreateRecipe).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/recipes/categories", h.ListCategories).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/recipes/cards", h.ListRecipeCards).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/recipes/{id}", h.GetRecipe).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/recipes/{id}", h.UpdateRecipe).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/recipes/{id}", h.DeleteRecipe).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ListRecipes handles GET /api/v1/recipes requests.
func (h *RESTHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.store.List(r.Context(), filterFromQuery(r))
	if err != nil {
		h.handleStoreError(w, err, "list recipes")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(recipes))
}

// ListRecipeCards handles GET /api/v1/recipes/cards requests. It takes the
// same filters as ListRecipes and returns listing summaries.
func (h *RESTHandler) ListRecipeCards(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.store.List(r.Context(), filterFromQuery(r))
	if err != nil {
		h.handleStoreError(w, err, "list recipe cards")
		return
	}

	cards := make([]model.RecipeCard, len(recipes))
	for i, recipe := range recipes {
		cards[i] = recipe.Card()
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(cards))
}

func filterFromQuery(r *http.Request) store.Filter {
	query := r.URL.Query()
	return store.Filter{
		Category: query.Get(QueryCategory),
		Search:   query.Get(QuerySearch),
	}
}

// ListCategories handles GET /api/v1/recipes/categories requests.
func (h *RESTHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list categories")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(categories))
}

// GetRecipe handles GET /api/v1/recipes/{id} requests.
func (h *RESTHandler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	recipe, err := h.store.Get(ctx, id)
	if err != nil {
		h.handleStoreError(w, err, "get recipe")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(recipe))
}

// CreateRecipe handles POST /api/v1/recipes requests.
func (h *RESTHandler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	recipe, err := h.store.Add(ctx, input)
	if err != nil {
		h.handleStoreError(w, err, "add recipe")
		return
	}

	h.notifier.Notify(model.NewNotification(model.NotificationRecipeCreated, *recipe))
	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(recipe))
}

// UpdateRecipe handles PUT /api/v1/recipes/{id} requests.
func (h *RESTHandler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	recipe, err := h.store.Update(ctx, id, input)
	if err != nil {
		h.handleStoreError(w, err, "update recipe")
		return
	}

	h.notifier.Notify(model.NewNotification(model.NotificationRecipeUpdated, *recipe))
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(recipe))
}

// DeleteRecipe handles DELETE /api/v1/recipes/{id} requests.
func (h *RESTHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	// Looked up first so the notification can carry the recipe name.
	recipe, err := h.store.Get(ctx, id)
	if err != nil {
		h.handleStoreError(w, err, "delete recipe")
		return
	}

	if err := h.store.Delete(ctx, id); err != nil {
		h.handleStoreError(w, err, "delete recipe")
		return
	}

	h.notifier.Notify(model.NewNotification(model.NotificationRecipeDeleted, *recipe))
	h.writeJSON(w, http.StatusNoContent, nil)
}

// decodeInput reads a RecipeInput from the request body. It writes the error
// response itself and reports false when the body is unusable.
func (h *RESTHandler) decodeInput(w http.ResponseWriter, r *http.Request) (model.RecipeInput, bool) {
	var input model.RecipeInput

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))

		var verr *model.ValidationError
		if errors.As(err, &verr) {
			h.writeFieldError(w, verr)
			return input, false
		}

		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return input, false
	}

	return input, true
}

// handleStoreError handles store errors and writes appropriate HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	var verr *model.ValidationError

	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "recipe not found")
	case errors.Is(err, store.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid recipe ID")
	case errors.Is(err, store.ErrInvalidInput) && errors.As(err, &verr):
		h.logger.Warn("validation failed", zap.String("operation", operation), zap.Error(err))
		h.writeFieldError(w, verr)
	case errors.Is(err, store.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, "invalid recipe input")
	case errors.Is(err, store.ErrPersistenceUnavailable), errors.Is(err, store.ErrNotLoaded):
		h.logger.Error("recipe storage unavailable", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusServiceUnavailable, "recipe storage unavailable")
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}

func (h *RESTHandler) writeFieldError(w http.ResponseWriter, verr *model.ValidationError) {
	response := model.ErrorResponse{
		Code:    http.StatusBadRequest,
		Message: verr.Error(),
		Field:   verr.Field,
	}
	h.writeJSON(w, http.StatusBadRequest, response)
}
