package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"yell/internal/models"
	"yell/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type EntryHandler struct {
	service service.EntryService
}

func NewEntryHandler(service service.EntryService) *EntryHandler {
	return &EntryHandler{service: service}
}

func (h *EntryHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/entries", h.CreateEntry)
	r.GET("/entries", h.ListEntries)
	r.GET("/entries/:id", h.GetEntry)
	r.PUT("/entries/:id", h.UpdateEntry)
	r.DELETE("/entries/:id", h.DeleteEntry)
	r.GET("/export/entries", h.ExportEntries)
}

func (h *EntryHandler) CreateEntry(c *gin.Context) {
	ctx := c.Request.Context()

	var payload models.EntryCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid payload",
			"message": err.Error(),
		})
		return
	}

	entry, err := h.service.CreateEntry(ctx, &payload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *EntryHandler) ListEntries(c *gin.Context) {
	ctx := c.Request.Context()

	// unparsable values fall back to the defaults
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		limit = 0
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.service.ListEntries(ctx, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (h *EntryHandler) GetEntry(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := entryID(c)
	if !ok {
		return
	}

	entry, err := h.service.GetEntry(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *EntryHandler) UpdateEntry(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := entryID(c)
	if !ok {
		return
	}

	var payload models.EntryUpdate
	// an empty body is an empty update, not a malformed one
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		// unknown ids are reported as such whatever the body holds
		if _, getErr := h.service.GetEntry(ctx, id); getErr != nil {
			respondError(c, getErr)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid payload",
			"message": err.Error(),
		})
		return
	}

	entry, err := h.service.UpdateEntry(ctx, id, &payload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *EntryHandler) DeleteEntry(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := entryID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteEntry(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted successfully"})
}

func (h *EntryHandler) ExportEntries(c *gin.Context) {
	ctx := c.Request.Context()

	export, err := h.service.ExportEntries(ctx, c.DefaultQuery("format", "csv"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

// entryID parses the :id path parameter. Ids that cannot exist are
// answered with 404 directly.
func entryID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Entry not found",
			"message": fmt.Sprintf("no entry with id %q", c.Param("id")),
		})
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	if !service.IsClientError(err) {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	c.JSON(errorStatus(err), gin.H{
		"error":   errorTitle(err),
		"message": err.Error(),
	})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEmptyUpdate), errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorTitle(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "Entry not found"
	case errors.Is(err, models.ErrEmptyUpdate):
		return "No fields to update"
	case errors.Is(err, models.ErrValidation):
		return "invalid payload"
	default:
		return "internal server error"
	}
}
