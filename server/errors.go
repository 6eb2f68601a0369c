package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/recipeops/decode"
	"github.com/jonwraymond/recipeops/generator"
	"github.com/jonwraymond/recipeops/recipe"
	"github.com/jonwraymond/recipeops/resilience"
)

// Error codes written in the error_code field.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeGatewayTimeout     = "GATEWAY_TIMEOUT"
	CodeJSONParse          = "JSON_PARSE_ERROR"
	CodeInvalidRecipe      = "INVALID_RECIPE"
	CodeAPI                = "API_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// APIError is an error response.
type APIError struct {
	Status  int            `json:"-"`
	Message string         `json:"message"`
	Code    string         `json:"error_code"`
	Details map[string]any `json:"details"`
}

func (e *APIError) Error() string { return e.Code + ": " + e.Message }

// toAPIError maps a service error onto its HTTP response.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verr *recipe.ValidationError
	switch {
	case errors.As(err, &verr):
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Message: "Request validation failed",
			Code:    CodeValidation,
			Details: map[string]any{"errors": verr.Fields},
		}
	case errors.Is(err, recipe.ErrInvalidRequest):
		return &APIError{Status: http.StatusUnprocessableEntity, Message: "Request validation failed", Code: CodeValidation}
	case errors.Is(err, recipe.ErrNotConfigured):
		return &APIError{
			Status:  http.StatusServiceUnavailable,
			Message: "Gemini API key not configured. Please set GEMINI_API_KEY environment variable.",
			Code:    CodeServiceUnavailable,
			Details: map[string]any{"error_code": "GEMINI_NOT_CONFIGURED"},
		}
	case errors.Is(err, resilience.ErrRateLimitExceeded):
		return &APIError{Status: http.StatusTooManyRequests, Message: "Rate limit exceeded", Code: CodeRateLimited}
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrBulkheadFull):
		return &APIError{
			Status:  http.StatusServiceUnavailable,
			Message: "Recipe generation is temporarily unavailable, try again shortly",
			Code:    CodeServiceUnavailable,
		}
	case errors.Is(err, resilience.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &APIError{Status: http.StatusGatewayTimeout, Message: "AI service timed out", Code: CodeGatewayTimeout}
	case errors.Is(err, decode.ErrMalformedPayload):
		return &APIError{Status: http.StatusBadGateway, Message: "Failed to parse recipe from AI response", Code: CodeJSONParse}
	case errors.Is(err, recipe.ErrInvalidRecipe):
		return &APIError{Status: http.StatusBadGateway, Message: "AI response is not a complete recipe", Code: CodeInvalidRecipe}
	case isUpstream(err):
		return &APIError{Status: http.StatusBadGateway, Message: "AI service error", Code: CodeAPI}
	default:
		return &APIError{Status: http.StatusInternalServerError, Message: "An unexpected error occurred", Code: CodeInternal}
	}
}

func isUpstream(err error) bool {
	var se *generator.StatusError
	return errors.As(err, &se) ||
		errors.Is(err, generator.ErrRateLimited) ||
		errors.Is(err, generator.ErrAuth) ||
		errors.Is(err, generator.ErrEmptyResponse) ||
		errors.Is(err, generator.ErrTransport) ||
		errors.Is(err, generator.ErrMissingAPIKey)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, e *APIError) {
	writeJSON(w, e.Status, e)
}
