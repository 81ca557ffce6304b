package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/internal/app/service"
	apperrors "github.com/tmarsden/tradescout-backend/internal/errors"
	"github.com/tmarsden/tradescout-backend/internal/middleware"
)

type SearchController struct {
	searchService service.SearchService
}

func NewSearchController(searchService service.SearchService) *SearchController {
	return &SearchController{searchService: searchService}
}

type SearchRequest struct {
	Location   string   `json:"location" binding:"required"`
	Radius     int      `json:"radius"`
	Categories []string `json:"categories" binding:"required"`
	MaxResults int      `json:"max_results"`
	Enrich     *bool    `json:"enrich"`
	UseCache   *bool    `json:"use_cache"`
}

// Search runs a full business search: geocode, places fan-out, registry
// enrichment, ranking.
func (ctrl *SearchController) Search(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid search request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	// enrichment and caching default on
	query := &model.SearchQuery{
		Location:     req.Location,
		RadiusMeters: req.Radius,
		Categories:   req.Categories,
		MaxResults:   req.MaxResults,
		Enrich:       req.Enrich == nil || *req.Enrich,
		UseCache:     req.UseCache == nil || *req.UseCache,
	}

	response, err := ctrl.searchService.Search(c.Request.Context(), query)
	if err != nil {
		log.Error("Search failed", err, map[string]interface{}{
			"location":   req.Location,
			"categories": req.Categories,
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("Search completed", map[string]interface{}{
		"location":   req.Location,
		"categories": req.Categories,
		"results":    response.TotalFound,
		"from_cache": response.FromCache,
	})

	c.JSON(http.StatusOK, response)
}
