package rest

import (
	"errors"
	"net/http"
	"time"

	perrors "github.com/project-final/product-service/internal/errors"
)

// ErrorResponse is the JSON envelope for every failed request.
type ErrorResponse struct {
	Success        bool           `json:"success"`
	ErrorCode      string         `json:"errorCode"`
	Message        string         `json:"message"`
	Details        string         `json:"details"`
	Status         int            `json:"status"`
	Timestamp      time.Time      `json:"timestamp"`
	Path           string         `json:"path"`
	Field          string         `json:"field,omitempty"`
	AdditionalInfo map[string]any `json:"additionalInfo,omitempty"`
}

// mapError translates a domain error into an ErrorResponse. It is a pure
// function from error kind to HTTP status: insufficient stock beats the
// generic stock-operation wrapper, and a wrapped not-found surfaces as 404
// rather than 500. Unexpected errors yield a generic body; the caller is
// responsible for logging the detail.
func mapError(err error, path string) ErrorResponse {
	resp := ErrorResponse{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Path:      path,
	}

	var stockErr *perrors.InsufficientStockError
	var validationErr *perrors.ValidationError
	var notFoundErr *perrors.NotFoundError
	var opErr *perrors.StockOperationError

	switch {
	case errors.As(err, &stockErr):
		resp.Status = http.StatusConflict
		resp.ErrorCode = "INSUFFICIENT_STOCK"
		resp.Message = stockErr.Error()
		resp.Details = "there is not enough stock available to complete the operation"
		resp.AdditionalInfo = map[string]any{
			"productId":         stockErr.ProductID,
			"availableStock":    stockErr.Available,
			"requestedQuantity": stockErr.Requested,
		}
	case errors.As(err, &validationErr):
		resp.Status = http.StatusBadRequest
		resp.ErrorCode = "PRODUCT_VALIDATION_ERROR"
		resp.Message = validationErr.Message
		resp.Details = "the product data is not valid"
		resp.Field = validationErr.Field
	case errors.As(err, &notFoundErr):
		resp.Status = http.StatusNotFound
		resp.ErrorCode = "PRODUCT_NOT_FOUND"
		resp.Message = notFoundErr.Error()
		resp.Details = "the requested product does not exist"
	case errors.As(err, &opErr):
		resp.Status = http.StatusInternalServerError
		resp.ErrorCode = "STOCK_OPERATION_ERROR"
		resp.Message = "stock operation failed"
		resp.Details = "internal product service error"
		resp.AdditionalInfo = map[string]any{
			"productId": opErr.ProductID,
			"operation": opErr.Operation,
		}
	default:
		resp.Status = http.StatusInternalServerError
		resp.ErrorCode = "INTERNAL_SERVER_ERROR"
		resp.Message = "internal server error"
		resp.Details = "internal server error"
	}
	return resp
}

// badRequest builds the envelope for malformed requests rejected before
// they reach the service layer.
func badRequest(message, path string) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		ErrorCode: "BAD_REQUEST",
		Message:   message,
		Details:   "the request could not be processed",
		Status:    http.StatusBadRequest,
		Timestamp: time.Now().UTC(),
		Path:      path,
	}
}
