package handlers

import (
	"context"
	"net/http"
	"time"

	"yell/internal/repository"
	"yell/internal/service"
	"yell/internal/worker"

	"github.com/gin-gonic/gin"
)

// StoreProbe reports the last background store check.
type StoreProbe interface {
	LastResult() worker.ProbeResult
}

type HealthHandler struct {
	probe   StoreProbe
	service service.EntryService
	cache   repository.CacheRepository
}

// NewHealthHandler builds the liveness and health endpoints. cache may be
// nil when caching is disabled.
func NewHealthHandler(probe StoreProbe, service service.EntryService, cache repository.CacheRepository) *HealthHandler {
	return &HealthHandler{
		probe:   probe,
		service: service,
		cache:   cache,
	}
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Entry Store Service is running"})
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	probe := h.probe.LastResult()
	status := http.StatusOK
	overall := "ok"

	database := gin.H{"status": "unknown"}
	switch {
	case probe.CheckedAt.IsZero():
	case probe.Healthy:
		database = gin.H{"status": "connected", "checked_at": probe.CheckedAt}
	default:
		database = gin.H{"status": "unavailable", "checked_at": probe.CheckedAt, "error": probe.Error}
		status = http.StatusServiceUnavailable
		overall = "unavailable"
	}

	cache := gin.H{"status": "disabled"}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			cache = gin.H{"status": "unavailable", "error": err.Error()}
			if overall == "ok" {
				overall = "degraded"
			}
		} else {
			cache = gin.H{"status": "connected"}
		}
	}

	body := gin.H{
		"status":    overall,
		"timestamp": time.Now().UTC(),
		"services": gin.H{
			"database": database,
			"cache":    cache,
		},
	}

	if status == http.StatusOK {
		if count, err := h.service.CountEntries(ctx); err == nil {
			body["entries"] = count
		}
	}

	c.JSON(status, body)
}
