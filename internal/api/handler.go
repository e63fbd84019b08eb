package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-mirror/internal/aggregator"
	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
	"github.com/kurihiro0119/github-mirror/internal/storage"
)

const defaultRunsLimit = 20

// Trigger starts mirror runs on demand
type Trigger interface {
	Trigger(ctx context.Context) error
	Next() time.Time
}

// Handler handles API requests
type Handler struct {
	store      storage.Store
	aggregator aggregator.Aggregator
	trigger    Trigger
}

// NewHandler creates a new API handler
func NewHandler(store storage.Store, trigger Trigger) *Handler {
	return &Handler{
		store:      store,
		aggregator: aggregator.NewAggregator(store),
		trigger:    trigger,
	}
}

// ListMirrors returns every mirror record, ordered by name
// GET /api/v1/mirrors
func (h *Handler) ListMirrors(c *gin.Context) {
	records, err := h.store.ListMirrors(c.Request.Context())
	if err != nil {
		respondError(c, apperrors.NewStorageError("", "unable to list mirrors", err))
		return
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })

	c.JSON(http.StatusOK, gin.H{
		"data": records,
	})
}

// GetMirror returns the record of one repository
// GET /api/v1/mirrors/:name
func (h *Handler) GetMirror(c *gin.Context) {
	name := c.Param("name")

	record, ok, err := h.store.GetMirror(c.Request.Context(), name)
	if err != nil {
		respondError(c, apperrors.NewStorageError(name, "unable to read mirror", err))
		return
	}
	if !ok {
		respondError(c, apperrors.NewNotFoundError("mirror "+strconv.Quote(name)))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": record,
	})
}

// ListRuns returns the most recent runs, newest first
// GET /api/v1/runs?limit=N
func (h *Handler) ListRuns(c *gin.Context) {
	limit, err := parseIntQuery(c, "limit", defaultRunsLimit)
	if err != nil {
		respondError(c, err)
		return
	}

	runs, err := h.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, apperrors.NewStorageError("", "unable to list runs", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": runs,
	})
}

// GetSummary returns the mirror count, the latest run and the next
// scheduled run
// GET /api/v1/summary
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.aggregator.Summarize(c.Request.Context())
	if err != nil {
		respondError(c, apperrors.NewStorageError("", "unable to summarize mirrors", err))
		return
	}

	resp := gin.H{
		"data": summary,
	}
	if h.trigger != nil {
		if next := h.trigger.Next(); !next.IsZero() {
			resp["next_run"] = next
		}
	}
	c.JSON(http.StatusOK, resp)
}

// TriggerRun starts a mirror run in the background
// POST /api/v1/runs
func (h *Handler) TriggerRun(c *gin.Context) {
	if h.trigger == nil {
		respondError(c, apperrors.NewBadRequestError("on-demand runs are not enabled"))
		return
	}
	if err := h.trigger.Trigger(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"data": gin.H{"status": "accepted"},
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// parseIntQuery parses a positive integer query parameter with a default value
func parseIntQuery(c *gin.Context, key string, defaultValue int) (int, error) {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return 0, apperrors.NewBadRequestError(key + " must be a positive integer")
	}
	return value, nil
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeBadRequest, apperrors.ErrCodeConfigInvalid:
			status = http.StatusBadRequest
		case apperrors.ErrCodeConflict:
			status = http.StatusConflict
		case apperrors.ErrCodeRemoteUnavailable:
			status = http.StatusBadGateway
		}
		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if appErr.Repo != "" {
			body["repo"] = appErr.Repo
		}
		if appErr.Path != "" {
			body["path"] = appErr.Path
		}
		c.JSON(status, gin.H{
			"error": body,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}
