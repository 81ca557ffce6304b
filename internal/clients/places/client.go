// Package places adapts the external places index (Google Places shaped API)
// behind a concurrency gate.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tmarsden/tradescout-backend/config"
	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/internal/clients"
	"github.com/tmarsden/tradescout-backend/pkg/logger"
)

const adapterName = "places"

// errNotFound marks an HTTP 404; callers translate it into an absent value.
var errNotFound = errors.New("places: not found")

// Detail is the subset of place detail fields the pipeline consumes.
type Detail struct {
	PlaceID     string
	Name        string
	Address     string
	PhoneNumber string
	Website     string
	Rating      float64
	RatingCount int
	Latitude    float64
	Longitude   float64
}

// Client is the bounded places adapter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	gate       *clients.Gate
}

func NewClient(cfg *config.PlacesConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		gate:       clients.NewGate(cfg.MaxConcurrency),
	}
}

// geocodeResponse mirrors the geocoding endpoint payload.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// ResolveCoordinates geocodes free-text or postal input. A location the index
// does not know yields (nil, nil); absence is not an error.
func (c *Client) ResolveCoordinates(ctx context.Context, text string) (*model.Coordinates, error) {
	params := url.Values{}
	params.Set("address", text)

	var payload geocodeResponse
	if err := c.getJSON(ctx, "/geocode/json", params, &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if payload.Status == "ZERO_RESULTS" || len(payload.Results) == 0 {
		return nil, nil
	}
	if payload.Status != "OK" {
		return nil, &clients.ServiceError{Adapter: adapterName, StatusCode: http.StatusOK, Body: payload.Status}
	}

	location := payload.Results[0].Geometry.Location
	return &model.Coordinates{Latitude: location.Lat, Longitude: location.Lng}, nil
}

// nearbyResponse mirrors the nearby-search endpoint payload.
type nearbyResponse struct {
	Status        string `json:"status"`
	NextPageToken string `json:"next_page_token"`
	Results       []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
}

// pageTokenDelay is how long the index needs before a freshly issued
// next_page_token becomes valid.
var pageTokenDelay = 2 * time.Second

// SearchNearby returns candidate place IDs for one category around a point.
// The index pages its results; follow-up pages are fetched through
// next_page_token until limit is reached or no token remains. A failure on a
// follow-up page keeps what earlier pages returned.
func (c *Client) SearchNearby(ctx context.Context, point model.Coordinates, radiusMeters int, category string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", point.Latitude, point.Longitude))
	params.Set("radius", fmt.Sprintf("%d", radiusMeters))
	params.Set("type", googleType(category))
	params.Set("keyword", searchKeyword(category))

	var ids []string
	for page := 0; ; page++ {
		var payload nearbyResponse
		if err := c.getJSON(ctx, "/place/nearbysearch/json", params, &payload); err != nil {
			if errors.Is(err, errNotFound) {
				return ids, nil
			}
			if page > 0 {
				logger.Warn("Nearby search pagination failed", map[string]interface{}{
					"category": category,
					"page":     page,
					"error":    err.Error(),
				})
				return ids, nil
			}
			return nil, err
		}

		if payload.Status == "ZERO_RESULTS" {
			return ids, nil
		}
		if payload.Status != "OK" {
			if page > 0 {
				logger.Warn("Nearby search pagination failed", map[string]interface{}{
					"category": category,
					"page":     page,
					"status":   payload.Status,
				})
				return ids, nil
			}
			return nil, &clients.ServiceError{Adapter: adapterName, StatusCode: http.StatusOK, Body: payload.Status}
		}

		for _, result := range payload.Results {
			if limit > 0 && len(ids) >= limit {
				return ids, nil
			}
			ids = append(ids, result.PlaceID)
		}

		if payload.NextPageToken == "" || (limit > 0 && len(ids) >= limit) {
			return ids, nil
		}

		select {
		case <-ctx.Done():
			return ids, ctx.Err()
		case <-time.After(pageTokenDelay):
		}
		params = url.Values{}
		params.Set("pagetoken", payload.NextPageToken)
	}
}

// detailResponse mirrors the place-details endpoint payload.
type detailResponse struct {
	Status string `json:"status"`
	Result struct {
		PlaceID          string  `json:"place_id"`
		Name             string  `json:"name"`
		FormattedAddress string  `json:"formatted_address"`
		FormattedPhone   string  `json:"formatted_phone_number"`
		Website          string  `json:"website"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"result"`
}

// FetchDetails fetches details for each place ID. IDs the index no longer
// knows are omitted from the result map; one failed ID does not fail the
// batch.
func (c *Client) FetchDetails(ctx context.Context, placeIDs []string) (map[string]*Detail, error) {
	details := make(map[string]*Detail, len(placeIDs))
	for _, placeID := range placeIDs {
		detail, err := c.fetchDetail(ctx, placeID)
		if err != nil {
			if _, rateLimited := clients.IsRateLimited(err); rateLimited {
				// a rate limit will hit every remaining ID too
				return details, err
			}
			logger.Warn("Failed to fetch place detail", map[string]interface{}{
				"place_id": placeID,
				"error":    err.Error(),
			})
			continue
		}
		if detail != nil {
			details[placeID] = detail
		}
	}
	return details, nil
}

func (c *Client) fetchDetail(ctx context.Context, placeID string) (*Detail, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,name,formatted_address,formatted_phone_number,website,rating,user_ratings_total,geometry")

	var payload detailResponse
	if err := c.getJSON(ctx, "/place/details/json", params, &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if payload.Status == "NOT_FOUND" || payload.Status == "ZERO_RESULTS" {
		return nil, nil
	}
	if payload.Status != "OK" {
		return nil, &clients.ServiceError{Adapter: adapterName, StatusCode: http.StatusOK, Body: payload.Status}
	}

	result := payload.Result
	return &Detail{
		PlaceID:     placeID,
		Name:        result.Name,
		Address:     result.FormattedAddress,
		PhoneNumber: result.FormattedPhone,
		Website:     result.Website,
		Rating:      result.Rating,
		RatingCount: result.UserRatingsTotal,
		Latitude:    result.Geometry.Location.Lat,
		Longitude:   result.Geometry.Location.Lng,
	}, nil
}

// getJSON performs one gated GET against the places API.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.gate.Acquire(ctx); err != nil {
		return err
	}
	defer c.gate.Release()

	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := clients.DoWithRetry(ctx, c.httpClient, req, 0)
	if err != nil {
		return fmt.Errorf("failed to call places API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &clients.RateLimitedError{Adapter: adapterName, RetryAfter: clients.RetryAfterOrDefault(resp)}
	}
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &clients.ServiceError{Adapter: adapterName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse places API response: %w", err)
	}
	return nil
}
