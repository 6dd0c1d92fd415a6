package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Massy-Haddad/Lucid/internal/adapters/http/dto"
	"github.com/Massy-Haddad/Lucid/internal/app"
	"github.com/Massy-Haddad/Lucid/internal/domain"
)

// QuotesHandler exposes the feed side of the aggregation controller.
type QuotesHandler struct {
	controller *app.Controller
}

// NewQuotesHandler creates a new quotes handler.
func NewQuotesHandler(controller *app.Controller) *QuotesHandler {
	return &QuotesHandler{controller: controller}
}

// GetFeed handles GET /api/v1/feeds/:category
// Triggers a fetch-more pass (skipped when the buffer is comfortably ahead
// of the cursor, unless force=true) and returns the current feed.
//
// @Summary Fetch a category feed
// @Description Fetches more quotes for the category if the buffer is low, then returns the feed
// @Tags feeds
// @Produce json
// @Param category path string true "Feed category" Enums(movie, anime, philosophy)
// @Param force query bool false "Force a fetch even when the buffer is full"
// @Success 200 {object} dto.FeedResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/feeds/{category} [get]
func (h *QuotesHandler) GetFeed(c *gin.Context) {
	category := domain.Category(c.Param("category"))

	var query dto.FeedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"invalid query parameters",
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	if err := h.controller.FetchQuotes(c.Request.Context(), category, query.Force); err != nil {
		dto.HandleError(c, err)
		return
	}

	state := h.controller.State()

	c.JSON(http.StatusOK, dto.FeedResponse{
		Category:      string(category),
		Quotes:        dto.NewQuoteResponses(state.Feed(category)),
		Cursor:        state.Cursor,
		IsLoading:     state.IsLoading,
		IsLoadingMore: state.IsLoadingMore,
	})
}

// SetCursor handles PUT /api/v1/feeds/cursor
// Moves the read cursor; feeds whose remaining buffer drops below the
// low-water mark are refetched before the response is written.
//
// @Summary Move the feed read cursor
// @Tags feeds
// @Accept json
// @Produce json
// @Success 200 {object} map[string]int
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/feeds/cursor [put]
func (h *QuotesHandler) SetCursor(c *gin.Context) {
	var req dto.SetCursorRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindingError(c, err, "invalid request body")
		return
	}

	h.controller.SetCursor(c.Request.Context(), req.Cursor)

	c.JSON(http.StatusOK, gin.H{"cursor": h.controller.State().Cursor})
}

// SearchAnime handles GET /api/v1/anime/search
// Passes show/character filters straight through to the anime provider;
// that provider degrades to an empty result on upstream failure.
//
// @Summary Search anime quotes
// @Tags anime
// @Produce json
// @Param show query string false "Show title"
// @Param character query string false "Character name"
// @Param count query int false "Number of quotes (1-50)"
// @Success 200 {object} map[string][]dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/anime/search [get]
func (h *QuotesHandler) SearchAnime(c *gin.Context) {
	var query dto.AnimeSearchQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		respondBindingError(c, err, "invalid query parameters")
		return
	}

	if query.Show == "" && query.Character == "" {
		dto.HandleError(c,
			domain.NewValidationError("show", "either show or character is required"))
		return
	}

	quotes, err := h.controller.SearchAnimeQuotes(
		c.Request.Context(), query.Show, query.Character, query.Count)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quotes": dto.NewQuoteResponses(quotes)})
}

// RegisterQuoteRoutes registers feed routes on the given router group.
func (h *QuotesHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	rg.GET("/feeds/:category", h.GetFeed)
	rg.PUT("/feeds/cursor", h.SetCursor)
	rg.GET("/anime/search", h.SearchAnime)
}

// respondBindingError writes a 400 for binding/validation failures, with
// field details when the validator produced them.
func respondBindingError(c *gin.Context, err error, fallback string) {
	if fieldErrors := dto.ValidationErrors(err); len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"request validation failed",
			fieldErrors,
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
		dto.ErrorCodeBadRequest,
		fallback,
	).WithTraceID(dto.GetTraceID(c)))
}
