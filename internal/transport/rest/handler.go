// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	perrors "github.com/project-final/product-service/internal/errors"
	"github.com/project-final/product-service/internal/service"
	"github.com/project-final/product-service/pkg/web"
)

type Handler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new product API handler with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the product service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)
		r.Get("/search", h.Search)
		r.Get("/available", h.Available)
		r.Get("/price-range", h.PriceRange)
		r.Get("/low-stock", h.LowStock)
		r.Get("/stats/total", h.StatsTotal)
		r.Get("/stats/available", h.StatsAvailable)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/", h.Update)
			r.Delete("/", h.DeleteByID)
			r.Put("/reduce-stock", h.ReduceStock)
			r.Put("/increase-stock", h.IncreaseStock)
			r.Get("/check-stock", h.CheckStock)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	draft, ok := h.decodeDraft(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create product", "name", draft.Name)

	created, err := h.service.Create(r.Context(), draft)
	if err != nil {
		h.respondError(w, r, mLogger, "Error creating product", err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, map[string]any{
		"success":   true,
		"message":   "product created successfully",
		"product":   created,
		"productId": created.ID,
		"timestamp": time.Now().UTC(),
	})
}

// FindAll retrieves a list of all products.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		h.respondError(w, r, mLogger, "Error retrieving product list", err)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := h.parseID(w, r, mLogger)
	if !ok {
		return
	}
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondError(w, r, mLogger, "Error retrieving product", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Update overwrites an existing product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := h.parseID(w, r, mLogger)
	if !ok {
		return
	}
	draft, ok := h.decodeDraft(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", id)

	updated, err := h.service.Update(r.Context(), id, draft)
	if err != nil {
		h.respondError(w, r, mLogger, "Error updating product", err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "product updated successfully",
		"product":   updated,
		"productId": updated.ID,
		"timestamp": time.Now().UTC(),
	})
}

// DeleteByID deletes a product by its ID.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := h.parseID(w, r, mLogger)
	if !ok {
		return
	}
	deleted, err := h.service.DeleteByID(r.Context(), id)
	if err != nil {
		h.respondError(w, r, mLogger, "Error deleting product", err)
		return
	}
	if deleted.Stock > 0 {
		mLogger.WarnContext(r.Context(), "Deleted product still had stock", "ID", id, "stock", deleted.Stock)
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"success":         true,
		"message":         "product deleted successfully",
		"productId":       id,
		"deletedProduct":  deleted.Name,
		"price":           deleted.Price,
		"stockAtDeletion": deleted.Stock,
		"timestamp":       time.Now().UTC(),
	})
}

// Search returns products whose name contains the query substring.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := r.URL.Query().Get("name")
	list, err := h.service.SearchByName(r.Context(), name)
	if err != nil {
		h.respondError(w, r, mLogger, "Error searching products", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Available returns products with stock greater than zero.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.service.FindAvailable(r.Context())
	if err != nil {
		h.respondError(w, r, mLogger, "Error retrieving available products", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// PriceRange returns products priced within [minPrice, maxPrice].
func (h *Handler) PriceRange(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	minPrice, ok := h.parseDecimalParam(w, r, mLogger, "minPrice")
	if !ok {
		return
	}
	maxPrice, ok := h.parseDecimalParam(w, r, mLogger, "maxPrice")
	if !ok {
		return
	}
	list, err := h.service.FindByPriceRange(r.Context(), minPrice, maxPrice)
	if err != nil {
		h.respondError(w, r, mLogger, "Error retrieving products by price range", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// LowStock returns products below the given stock threshold (default 10).
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	threshold, ok := h.parseInt32Param(w, r, mLogger, "threshold")
	if !ok {
		return
	}
	list, err := h.service.FindLowStock(r.Context(), threshold)
	if err != nil {
		h.respondError(w, r, mLogger, "Error retrieving low stock products", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// ReduceStock decrements a product's stock by the quantity parameter.
func (h *Handler) ReduceStock(w http.ResponseWriter, r *http.Request) {
	h.stockDelta(w, r, "quantityReduced", "stock reduced successfully", h.service.ReduceStock)
}

// IncreaseStock increments a product's stock by the quantity parameter.
func (h *Handler) IncreaseStock(w http.ResponseWriter, r *http.Request) {
	h.stockDelta(w, r, "quantityAdded", "stock increased successfully", h.service.IncreaseStock)
}

// CheckStock reports whether the product's stock covers the quantity parameter.
func (h *Handler) CheckStock(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := h.parseID(w, r, mLogger)
	if !ok {
		return
	}
	quantity, ok := h.requireQuantity(w, r, mLogger)
	if !ok {
		return
	}
	enough, err := h.service.HasEnoughStock(r.Context(), id, quantity)
	if err != nil {
		h.respondError(w, r, mLogger, "Error checking stock", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, enough)
}

// StatsTotal returns the total number of products.
func (h *Handler) StatsTotal(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	count, err := h.service.CountAll(r.Context())
	if err != nil {
		h.respondError(w, r, mLogger, "Error counting products", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, count)
}

// StatsAvailable returns the number of products with stock.
func (h *Handler) StatsAvailable(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	count, err := h.service.CountAvailable(r.Context())
	if err != nil {
		h.respondError(w, r, mLogger, "Error counting available products", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, count)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// stockDelta is the shared implementation of the reduce/increase endpoints.
func (h *Handler) stockDelta(w http.ResponseWriter, r *http.Request, quantityKey, message string,
	op func(ctx context.Context, id uuid.UUID, quantity int32) (bool, error)) {
	mLogger := h.loggerWithReqID(r)
	id, ok := h.parseID(w, r, mLogger)
	if !ok {
		return
	}
	quantity, ok := h.requireQuantity(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received stock delta request", "ID", id, "quantity", quantity)

	success, err := op(r.Context(), id, quantity)
	if err != nil {
		h.respondError(w, r, mLogger, "Stock operation failed", err)
		return
	}
	mLogger.InfoContext(r.Context(), "Stock updated successfully", "ID", id, "quantity", quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"success":   success,
		"message":   message,
		"productId": id,
		quantityKey: quantity,
		"timestamp": time.Now().UTC(),
	})
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", middleware.GetReqID(r.Context()))
}

// parseID extracts and validates the product ID from the request path.
func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Invalid product ID", "raw", raw)
		web.RespondJSON(w, mLogger, http.StatusBadRequest, badRequest(fmt.Sprintf("invalid product ID: %s", raw), r.URL.Path))
		return uuid.Nil, false
	}
	return id, true
}

// decodeDraft decodes and pre-validates the product draft body.
func (h *Handler) decodeDraft(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (*service.ProductDraftDto, bool) {
	var draft service.ProductDraftDto
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		mLogger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondJSON(w, mLogger, http.StatusBadRequest, badRequest("invalid request body", r.URL.Path))
		return nil, false
	}
	if err := h.validate.Struct(draft); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fieldErr := validationErrors[0]
			mLogger.WarnContext(r.Context(), "Draft validation failed", "field", fieldErr.Field(), "rule", fieldErr.Tag())
			h.respondError(w, r, mLogger, "Draft validation failed",
				perrors.NewValidationError(jsonFieldName(fieldErr.Field()), "failed on rule: "+fieldErr.Tag()))
			return nil, false
		}
		mLogger.WarnContext(r.Context(), "Error validating request body", "error", err)
		web.RespondJSON(w, mLogger, http.StatusBadRequest, badRequest("invalid request body", r.URL.Path))
		return nil, false
	}
	return &draft, true
}

// requireQuantity parses the mandatory positive quantity query parameter.
func (h *Handler) requireQuantity(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (int32, bool) {
	raw := r.URL.Query().Get("quantity")
	if raw == "" {
		h.respondError(w, r, mLogger, "Missing quantity parameter",
			perrors.NewValidationError("quantity", "quantity parameter is required"))
		return 0, false
	}
	quantity, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		web.RespondJSON(w, mLogger, http.StatusBadRequest, badRequest(fmt.Sprintf("invalid quantity: %s", raw), r.URL.Path))
		return 0, false
	}
	return int32(quantity), true
}

// parseInt32Param parses an optional int32 query parameter; absent yields nil.
func (h *Handler) parseInt32Param(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, key string) (*int32, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		web.RespondJSON(w, mLogger, http.StatusBadRequest, badRequest(fmt.Sprintf("invalid %s: %s", key, raw), r.URL.Path))
		return nil, false
	}
	v := int32(value)
	return &v, true
}

// parseDecimalParam parses an optional decimal query parameter; absent yields nil.
func (h *Handler) parseDecimalParam(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, key string) (*decimal.Decimal, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		web.RespondJSON(w, mLogger, http.StatusBadRequest, badRequest(fmt.Sprintf("invalid %s: %s", key, raw), r.URL.Path))
		return nil, false
	}
	return &value, true
}

// respondError logs the failure and writes the mapped error envelope.
// Internal detail stays in the log; 5xx bodies carry a generic message.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, logMessage string, err error) {
	resp := mapError(err, r.URL.Path)
	if resp.Status >= http.StatusInternalServerError {
		mLogger.ErrorContext(r.Context(), logMessage, "error", err)
	} else {
		mLogger.WarnContext(r.Context(), logMessage, "error", err)
	}
	web.RespondJSON(w, mLogger, resp.Status, resp)
}

// jsonFieldName maps validator struct field names to their JSON names.
func jsonFieldName(structField string) string {
	switch structField {
	case "Name":
		return "name"
	case "Description":
		return "description"
	case "Price":
		return "price"
	case "Stock":
		return "stock"
	default:
		return structField
	}
}
