package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Massy-Haddad/Lucid/internal/adapters/http/dto"
	"github.com/Massy-Haddad/Lucid/internal/app"
)

// SavedHandler exposes the saved-quote collection.
type SavedHandler struct {
	controller *app.Controller
}

// NewSavedHandler creates a new saved-quotes handler.
func NewSavedHandler(controller *app.Controller) *SavedHandler {
	return &SavedHandler{controller: controller}
}

// ListSaved handles GET /api/v1/saved
// Refreshes the collection from the remote store and returns a
// cursor-paginated page, newest first. When the remote is down and the
// offline snapshot serves instead, the response carries an
// "X-Data-Source: offline-cache" header.
//
// @Summary List saved quotes
// @Tags saved
// @Produce json
// @Param cursor query string false "Opaque cursor from a previous page"
// @Param limit query int false "Page size (1-100, default 20)"
// @Success 200 {object} dto.PaginatedResponse[dto.SavedQuoteResponse]
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/saved [get]
func (h *SavedHandler) ListSaved(c *gin.Context) {
	var page dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &page); err != nil {
		respondBindingError(c, err, "invalid pagination parameters")
		return
	}

	if err := h.controller.LoadSavedQuotes(c.Request.Context()); err != nil {
		var fallback *app.FallbackError

		switch {
		case errors.As(err, &fallback):
			// The offline snapshot is visible; serve it, flagged.
			c.Header("X-Data-Source", "offline-cache")

		case errors.Is(err, app.ErrSavedUnavailable):
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(
				dto.ErrorCodeUnavailable,
				"saved quotes are temporarily unavailable",
			).WithTraceID(dto.GetTraceID(c)))

			return

		default:
			dto.HandleError(c, err)

			return
		}
	}

	saved := h.controller.State().Saved

	start := 0

	cursor, err := page.DecodeCursor()

	switch {
	case errors.Is(err, dto.ErrNoCursor):
		// First page.
	case err != nil:
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"invalid cursor",
		).WithTraceID(dto.GetTraceID(c)))

		return
	default:
		for i := range saved {
			if saved[i].ID == cursor.ID {
				start = i + 1
				break
			}
		}
	}

	limit := page.GetLimit()

	end := start + limit + 1
	if end > len(saved) {
		end = len(saved)
	}

	items := dto.NewSavedQuoteResponses(saved[start:end])

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(items, limit,
		func(item dto.SavedQuoteResponse) *dto.CursorData {
			return dto.NewCursor("saved_at", item.SavedAt.Format(time.RFC3339Nano), item.ID)
		}))
}

// IsSaved handles GET /api/v1/saved/:id
// Reports whether the quote id is present in the saved collection.
//
// @Summary Check whether a quote is saved
// @Tags saved
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/v1/saved/{id} [get]
func (h *SavedHandler) IsSaved(c *gin.Context) {
	id := c.Param("id")

	c.JSON(http.StatusOK, gin.H{
		"id":    id,
		"saved": h.controller.IsQuoteSaved(id),
	})
}

// SaveQuote handles POST /api/v1/saved
// Optimistically saves the quote; on remote failure the insert is rolled
// back and the error surfaces here.
//
// @Summary Save a quote
// @Tags saved
// @Accept json
// @Produce json
// @Success 201 {object} dto.SavedQuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/saved [post]
func (h *SavedHandler) SaveQuote(c *gin.Context) {
	var req dto.SaveQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindingError(c, err, "invalid request body")
		return
	}

	if err := h.controller.SaveQuote(c.Request.Context(), req.ToDomain()); err != nil {
		dto.HandleError(c, err)
		return
	}

	for _, entry := range h.controller.State().Saved {
		if entry.ID == req.ID {
			c.JSON(http.StatusCreated, dto.NewSavedQuoteResponse(&entry))
			return
		}
	}

	// The save succeeded but a concurrent snapshot replaced the entry.
	c.Status(http.StatusCreated)
}

// RemoveQuote handles DELETE /api/v1/saved/:id
// Removing an id that is not saved is a no-op and still returns 204.
//
// @Summary Remove a saved quote
// @Tags saved
// @Success 204
// @Router /api/v1/saved/{id} [delete]
func (h *SavedHandler) RemoveQuote(c *gin.Context) {
	if err := h.controller.RemoveQuote(c.Request.Context(), c.Param("id")); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterSavedRoutes registers saved-quote routes on the given router group.
func (h *SavedHandler) RegisterSavedRoutes(rg *gin.RouterGroup) {
	saved := rg.Group("/saved")
	saved.GET("", h.ListSaved)
	saved.POST("", h.SaveQuote)
	saved.GET("/:id", h.IsSaved)
	saved.DELETE("/:id", h.RemoveQuote)
}
