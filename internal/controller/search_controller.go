package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/getsentry/sentry-mcp-sub001/internal/dto"
	"github.com/getsentry/sentry-mcp-sub001/internal/model"
	"github.com/getsentry/sentry-mcp-sub001/internal/sentryapi"
	"github.com/getsentry/sentry-mcp-sub001/internal/service"
)

type SearchController struct {
	searchService service.SearchService
}

func NewSearchController(searchService service.SearchService) *SearchController {
	return &SearchController{
		searchService: searchService,
	}
}

func RegisterSearchRoutes(router *gin.Engine, controller *SearchController) {
	v1 := router.Group("/api/v1/search")
	{
		v1.POST("", controller.HandleSearch)
		v1.GET("/history", controller.HandleHistory)
	}
}

// HandleSearch godoc
// @Summary      Search telemetry with a natural language query
// @Description  Translates a free-text question into a structured telemetry query (dataset, filter, fields, sort, time window) using an LLM with schema-introspection tools, validates it with one bounded self-correction retry, executes it against Sentry, and returns the rows. Untranslatable or invalid queries return a human-readable errorMessage rather than an HTTP error.
// @Tags         search
// @Accept       json
// @Produce      json
// @Param        request body dto.SearchRequest true "Organization scope and natural language query"
// @Success      200 {object} dto.SearchResponse "Translated query and result rows, or an errorMessage"
// @Failure      400 {object} model.Response "Invalid request body or unknown organization/project"
// @Failure      502 {object} model.Response "Telemetry backend unavailable"
// @Failure      500 {object} model.Response "Internal error (e.g. model service failure)"
// @Router       /api/v1/search [post]
func (c *SearchController) HandleSearch(ctx *gin.Context) {
	var req dto.SearchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid search request body")
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}

	resp, err := c.searchService.Search(ctx.Request.Context(), req)
	if err != nil {
		var apiErr *sentryapi.APIError
		if errors.As(err, &apiErr) && !apiErr.IsInputError() {
			log.Error().Err(err).Str("query", req.Query).Msg("Telemetry backend failure")
			ctx.JSON(http.StatusBadGateway, model.NewResponse("Telemetry backend error", nil))
			return
		}
		log.Error().Err(err).Str("query", req.Query).Msg("Internal error processing search")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Internal server error", nil))
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// HandleHistory godoc
// @Summary      List recent natural language searches
// @Description  Returns the most recent query-history audit rows for an organization.
// @Tags         search
// @Produce      json
// @Param        organization query string true "Organization slug"
// @Param        limit query int false "Maximum rows to return (default 20)"
// @Success      200 {object} dto.HistoryResponse
// @Failure      400 {object} model.Response "Missing organization parameter"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/search/history [get]
func (c *SearchController) HandleHistory(ctx *gin.Context) {
	organization := ctx.Query("organization")
	if organization == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("organization query parameter is required", nil))
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	resp, err := c.searchService.History(ctx.Request.Context(), organization, limit)
	if err != nil {
		log.Error().Err(err).Str("organization", organization).Msg("Failed to list query history")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Internal server error", nil))
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
