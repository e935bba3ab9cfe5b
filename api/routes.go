package api

import (
	"errors"
	"os"
	"strings"
)

func (s *Server) registerRoutes() error {
	if s == nil || s.router == nil {
		return nil
	}

	api := s.router.Group("/api")
	apiKey := strings.TrimSpace(os.Getenv("FOLKTEXTS_API_KEY"))
	if apiKey != "" {
		api.Use(apiKeyAuthMiddleware(apiKey))
	} else if strings.EqualFold(strings.TrimSpace(os.Getenv("FOLKTEXTS_DISABLE_AUTH")), "true") {
		// Explicitly allow unauthenticated access.
	} else {
		return errors.New("api: missing auth configuration: set FOLKTEXTS_API_KEY or set FOLKTEXTS_DISABLE_AUTH=true")
	}

	api.GET("/health", s.handleHealth)

	api.GET("/tasks", s.handleListTasks)
	api.GET("/columns", s.handleListColumns)
	api.GET("/columns/:name", s.handleGetColumn)

	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
	api.GET("/runs/:id/predictions", s.handleGetPredictions)

	return nil
}
