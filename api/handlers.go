package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bwilder0/folktexts/internal/acs"
	"github.com/bwilder0/folktexts/internal/store"
)

type taskSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Target      string   `json:"target"`
}

type columnSummary struct {
	Name             string   `json:"name"`
	ShortDescription string   `json:"short_description"`
	Summary          string   `json:"summary"`
	AnswerKeys       []string `json:"answer_keys,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListTasks(c *gin.Context) {
	names := acs.TaskNames()
	out := make([]taskSummary, 0, len(names))
	for _, name := range names {
		task, ok := acs.TaskByName(name)
		if !ok {
			continue
		}
		out = append(out, taskSummary{
			Name:        task.Name,
			Description: task.Description,
			Features:    task.Features,
			Target:      task.Target,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListColumns(c *gin.Context) {
	names := acs.ColumnNames()
	out := make([]columnSummary, 0, len(names))
	for _, name := range names {
		col, ok := acs.Column(name)
		if !ok {
			continue
		}
		out = append(out, summarizeColumn(col.Name(), col.ShortDescription(), col.Describe(), nil))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetColumn(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing column name"))
		return
	}

	col, ok := acs.Column(name)
	if !ok {
		respondError(c, http.StatusNotFound, fmt.Errorf("column %q not found", name))
		return
	}

	var keys []string
	if q := col.Question(); q != nil {
		keys = q.AnswerKeys()
	}
	c.JSON(http.StatusOK, summarizeColumn(col.Name(), col.ShortDescription(), col.Describe(), keys))
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleGetRun(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing run id"))
		return
	}

	run, err := s.store.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, fmt.Errorf("run %q not found", id))
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleGetPredictions(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing run id"))
		return
	}

	if _, err := s.store.GetRun(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, fmt.Errorf("run %q not found", id))
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	preds, err := s.store.Predictions(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, preds)
}

func summarizeColumn(name, short, summary string, keys []string) columnSummary {
	return columnSummary{
		Name:             name,
		ShortDescription: short,
		Summary:          summary,
		AnswerKeys:       keys,
	}
}

func respondError(c *gin.Context, status int, err error) {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
