package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/internal/app/service"
	apperrors "github.com/tmarsden/tradescout-backend/internal/errors"
	"github.com/tmarsden/tradescout-backend/internal/middleware"
)

type BusinessController struct {
	businessService service.BusinessService
}

func NewBusinessController(businessService service.BusinessService) *BusinessController {
	return &BusinessController{businessService: businessService}
}

// parseNearbyQuery reads the shared nearby query parameters.
func parseNearbyQuery(c *gin.Context) (service.NearbyQuery, bool) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "lat and lng query parameters are required")
		return service.NearbyQuery{}, false
	}

	radius, _ := strconv.Atoi(c.DefaultQuery("radius", "20000"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	minRating, _ := strconv.ParseFloat(c.DefaultQuery("min_rating", "0"), 64)
	verifiedOnly := strings.EqualFold(c.DefaultQuery("verified_only", "false"), "true")

	return service.NearbyQuery{
		Point:        model.Coordinates{Latitude: lat, Longitude: lng},
		RadiusMeters: radius,
		Category:     c.Query("category"),
		VerifiedOnly: verifiedOnly,
		MinRating:    minRating,
		Limit:        limit,
		Offset:       offset,
	}, true
}

// Nearby lists stored businesses around a point, nearest-equivalent ranking
// first. It never calls upstream services.
func (ctrl *BusinessController) Nearby(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	query, ok := parseNearbyQuery(c)
	if !ok {
		return
	}

	businesses, err := ctrl.businessService.Nearby(query)
	if err != nil {
		log.Error("Nearby lookup failed", err, map[string]interface{}{
			"lat": query.Point.Latitude,
			"lng": query.Point.Longitude,
		})
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"businesses": businesses,
		"count":      len(businesses),
	})
}

// Stats summarises the durable store, optionally scoped to a point.
func (ctrl *BusinessController) Stats(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var point *model.Coordinates
	radius := 0
	if c.Query("lat") != "" || c.Query("lng") != "" {
		lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
		lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
		if latErr != nil || lngErr != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "lat and lng must both be valid numbers")
			return
		}
		point = &model.Coordinates{Latitude: lat, Longitude: lng}
		radius, _ = strconv.Atoi(c.DefaultQuery("radius", "20000"))
	}

	stats, err := ctrl.businessService.Stats(point, radius)
	if err != nil {
		log.Error("Stats lookup failed", err, nil)
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
