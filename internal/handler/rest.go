package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/vault-inventory/internal/auth"
	"github.com/vyrodovalexey/vault-inventory/internal/middleware"
	"github.com/vyrodovalexey/vault-inventory/internal/model"
	"github.com/vyrodovalexey/vault-inventory/internal/store"
	"github.com/vyrodovalexey/vault-inventory/internal/vault"
)

// Version is the application version.
const Version = "1.0.0"

// errInvalidID is reported when the {id} path segment is not an integer.
var errInvalidID = errors.New("invalid item ID")

// RESTHandler handles REST API requests for the vault.
type RESTHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(s store.Store, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		store:  s,
		logger: logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.InsertItem).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/items/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items/{id}", h.RevalueItem).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/items/{id}", h.RemoveItem).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/vault/total", h.TotalValue).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/vault/render", h.RenderVault).Methods(http.MethodGet)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Summary(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready", Items: summary.Count}))
}

// ListItems handles GET /api/v1/items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list items", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve items")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.FromVaultItems(items)))
}

// GetItem handles GET /api/v1/items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	item, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.FromVaultItem(*item)))
}

// InsertItem handles POST /api/v1/items requests.
func (h *RESTHandler) InsertItem(w http.ResponseWriter, r *http.Request) {
	var input model.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.store.Insert(r.Context(), input.ToVaultItem())
	if err != nil {
		h.handleStoreError(w, err, "insert item")
		return
	}
	h.audit(r, "item inserted", item)

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(model.FromVaultItem(*item)))
}

// RevalueItem handles PUT /api/v1/items/{id} requests.
func (h *RESTHandler) RevalueItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var input model.RevalueRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.store.Revalue(r.Context(), id, *input.Value)
	if err != nil {
		h.handleStoreError(w, err, "revalue item")
		return
	}
	h.audit(r, "item revalued", item)

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.FromVaultItem(*item)))
}

// RemoveItem handles DELETE /api/v1/items/{id} requests. The removed item
// is returned to the caller.
func (h *RESTHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	item, err := h.store.Remove(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, err, "remove item")
		return
	}
	h.audit(r, "item removed", item)

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.FromVaultItem(*item)))
}

// TotalValue handles GET /api/v1/vault/total requests.
func (h *RESTHandler) TotalValue(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Summary(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "total value")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(summary))
}

// RenderVault handles GET /api/v1/vault/render requests.
func (h *RESTHandler) RenderVault(w http.ResponseWriter, r *http.Request) {
	text, err := h.store.Render(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "render vault")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text + "\n")); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// audit records a vault mutation together with who made it.
func (h *RESTHandler) audit(r *http.Request, msg string, item *vault.Item) {
	h.logger.Info(msg,
		zap.Int64("item_id", item.ID()),
		zap.Float64("value", item.Value),
		zap.String("subject", auth.SubjectFromContext(r.Context())),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
}

// pathID parses the {id} route variable, writing a 400 on failure.
func (h *RESTHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logger.Warn("invalid item id", zap.String("id", raw), zap.Error(err))
		h.writeError(w, http.StatusBadRequest, errInvalidID.Error())
		return 0, false
	}
	return id, true
}

// handleStoreError handles store errors and writes appropriate HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	var notFound *vault.NotFoundError
	var duplicate *vault.DuplicateIDError

	switch {
	case errors.As(err, &notFound):
		h.writeJSON(w, http.StatusNotFound, model.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: notFound.Error(),
			Name:    notFound.Name(),
			ID:      &notFound.ID,
		})
	case errors.As(err, &duplicate):
		h.writeJSON(w, http.StatusConflict, model.ErrorResponse{
			Code:    http.StatusConflict,
			Message: duplicate.Error(),
			Name:    duplicate.Name(),
			ID:      &duplicate.ID,
		})
	// Stores that do not build vault errors report the bare sentinels.
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrAlreadyExists):
		h.writeError(w, http.StatusConflict, "item already exists")
	case errors.Is(err, store.ErrNilItem):
		h.writeError(w, http.StatusBadRequest, err.Error())
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
