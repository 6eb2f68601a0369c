package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonwraymond/recipeops/observe"
	"github.com/jonwraymond/recipeops/recipe"
)

// maxBodyBytes bounds a recipe request body.
const maxBodyBytes = 64 << 10

// CacheStatsResponse is the GET /api/cache/stats body.
type CacheStatsResponse struct {
	CachedRecipes int      `json:"cached_recipes"`
	CacheKeys     []string `json:"cache_keys"`
	MaxSize       int      `json:"max_size"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status    string `json:"status"`
	GeminiAPI string `json:"gemini_api"`
	CacheSize int    `json:"cache_size"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleRecipe(w http.ResponseWriter, r *http.Request) {
	req, apiErr := decodeRecipeRequest(w, r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	out, err := s.recipes.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			s.logger.Debug(r.Context(), "client went away", observe.Field{Key: "dish", Value: req.DishName})
			return
		}
		e := toAPIError(err)
		if e.Status >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "recipe request failed",
				observe.Field{Key: "dish", Value: req.DishName},
				observe.Field{Key: "error_code", Value: e.Code},
				observe.Field{Key: "error", Value: err},
			)
		}
		writeError(w, e)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeRecipeRequest(w http.ResponseWriter, r *http.Request) (recipe.Request, *APIError) {
	var req recipe.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(&req)
	if err == nil {
		return req, nil
	}

	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		return req, &APIError{
			Status:  http.StatusUnprocessableEntity,
			Message: "Request validation failed",
			Code:    CodeValidation,
			Details: map[string]any{"errors": []recipe.FieldError{{
				Field:   typeErr.Field,
				Message: "must be a " + typeErr.Type.String(),
			}}},
		}
	case errors.As(err, &maxErr):
		return req, &APIError{Status: http.StatusRequestEntityTooLarge, Message: "Request body too large", Code: CodeBadRequest}
	case errors.Is(err, io.EOF):
		return req, &APIError{Status: http.StatusBadRequest, Message: "Request body is required", Code: CodeBadRequest}
	default:
		return req, &APIError{Status: http.StatusBadRequest, Message: "Invalid JSON request body", Code: CodeBadRequest}
	}
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := s.recipes.Cache().Stats(r.Context())
	keys := stats.SampleKeys
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, CacheStatsResponse{
		CachedRecipes: stats.Count,
		CacheKeys:     keys,
		MaxSize:       stats.MaxSize,
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.recipes.Cache().Clear(r.Context())
	s.logger.Info(r.Context(), "recipe cache cleared")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Cache cleared successfully"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	gemini := "not_configured"
	if s.recipes.Configured() {
		gemini = "configured"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		GeminiAPI: gemini,
		CacheSize: s.recipes.Cache().Size(r.Context()),
		Timestamp: s.now().UTC().Format("2006-01-02T15:04:05.000000"),
		Version:   s.settings.AppVersion,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.indexPath)
}
