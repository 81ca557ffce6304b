package model

import (
	"errors"
	"fmt"
)

// SearchQuery bounds, mirrored in the request validation below.
const (
	MinRadiusMeters = 1000
	MaxRadiusMeters = 80000
	MaxCategories   = 10
	MaxResultCap    = 100
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Validate checks the coordinate ranges.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// SearchQuery is a business search request.
type SearchQuery struct {
	Location     string   `json:"location" binding:"required"` // free-text location or UK postcode
	RadiusMeters int      `json:"radius"`
	Categories   []string `json:"categories"`
	MaxResults   int      `json:"max_results"`
	Enrich       bool     `json:"enrich"`    // registry enrichment on/off
	UseCache     bool     `json:"use_cache"` // serve/populate the response cache
}

var (
	ErrLocationRequired   = errors.New("location is required")
	ErrRadiusOutOfRange   = fmt.Errorf("radius must be between %d and %d meters", MinRadiusMeters, MaxRadiusMeters)
	ErrNoCategories       = errors.New("at least one category is required")
	ErrTooManyCategories  = fmt.Errorf("at most %d categories are allowed", MaxCategories)
	ErrMaxResultsTooLarge = fmt.Errorf("max_results must not exceed %d", MaxResultCap)
)

// Normalize applies defaults and validates the query. Duplicate categories
// are collapsed so the filter set is distinct.
func (q *SearchQuery) Normalize() error {
	if q.Location == "" {
		return ErrLocationRequired
	}
	if q.RadiusMeters == 0 {
		q.RadiusMeters = 20000
	}
	if q.RadiusMeters < MinRadiusMeters || q.RadiusMeters > MaxRadiusMeters {
		return ErrRadiusOutOfRange
	}
	if q.MaxResults == 0 {
		q.MaxResults = 50
	}
	if q.MaxResults > MaxResultCap {
		return ErrMaxResultsTooLarge
	}

	seen := make(map[string]struct{}, len(q.Categories))
	distinct := q.Categories[:0]
	for _, category := range q.Categories {
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		distinct = append(distinct, category)
	}
	q.Categories = distinct

	if len(q.Categories) == 0 {
		return ErrNoCategories
	}
	if len(q.Categories) > MaxCategories {
		return ErrTooManyCategories
	}
	return nil
}

// SearchResponse is the assembled result of one search query.
type SearchResponse struct {
	TotalFound     int                    `json:"total_found"`
	Businesses     []BusinessWithDistance `json:"businesses"`
	SearchLocation Coordinates            `json:"search_location"`
	FromCache      bool                   `json:"from_cache"`
}

// StoreStats summarises the durable store, optionally scoped to a point and
// radius.
type StoreStats struct {
	Total            int64            `json:"total"`
	VerifiedCount    int64            `json:"verified_count"`
	CountsByCategory map[string]int64 `json:"counts_by_category"`
}
