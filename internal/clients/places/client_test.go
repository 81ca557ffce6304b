package places

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmarsden/tradescout-backend/config"
	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/internal/clients"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&config.PlacesConfig{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		MaxConcurrency: 4,
		Timeout:        5 * time.Second,
	})
}

func fastRetries(t *testing.T) {
	t.Helper()
	old := clients.RetryBaseDelay
	clients.RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { clients.RetryBaseDelay = old })
}

func TestResolveCoordinates(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "Manchester, UK", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		fmt.Fprint(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":53.4808,"lng":-2.2426}}}]}`)
	}))

	coords, err := client.ResolveCoordinates(context.Background(), "Manchester, UK")
	require.NoError(t, err)
	require.NotNil(t, coords)
	assert.InDelta(t, 53.4808, coords.Latitude, 1e-6)
	assert.InDelta(t, -2.2426, coords.Longitude, 1e-6)
}

func TestResolveCoordinates_UnknownLocationIsAbsent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
	}))

	coords, err := client.ResolveCoordinates(context.Background(), "Nowhereville")
	require.NoError(t, err)
	assert.Nil(t, coords)
}

func TestSearchNearby(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "roofing_contractor", r.URL.Query().Get("type"))
		assert.Equal(t, "roofer roofing services", r.URL.Query().Get("keyword"))
		assert.Equal(t, "20000", r.URL.Query().Get("radius"))

		fmt.Fprint(w, `{"status":"OK","results":[{"place_id":"p1"},{"place_id":"p2"},{"place_id":"p3"}]}`)
	}))

	point := model.Coordinates{Latitude: 53.48, Longitude: -2.24}
	ids, err := client.SearchNearby(context.Background(), point, 20000, "roofer", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids, "limit caps the returned IDs")
}

func fastPages(t *testing.T) {
	t.Helper()
	old := pageTokenDelay
	pageTokenDelay = time.Millisecond
	t.Cleanup(func() { pageTokenDelay = old })
}

func TestSearchNearby_FollowsPageTokens(t *testing.T) {
	fastPages(t)

	var requests int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		switch r.URL.Query().Get("pagetoken") {
		case "":
			assert.Equal(t, "plumber", r.URL.Query().Get("type"))
			fmt.Fprint(w, `{"status":"OK","next_page_token":"page-2","results":[{"place_id":"p1"},{"place_id":"p2"}]}`)
		case "page-2":
			fmt.Fprint(w, `{"status":"OK","results":[{"place_id":"p3"},{"place_id":"p4"}]}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	point := model.Coordinates{Latitude: 53.48, Longitude: -2.24}
	ids, err := client.SearchNearby(context.Background(), point, 20000, "plumber", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids)
	assert.Equal(t, 2, requests)
}

func TestSearchNearby_LimitStopsPagination(t *testing.T) {
	fastPages(t)

	var requests int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"status":"OK","next_page_token":"page-2","results":[{"place_id":"p1"},{"place_id":"p2"},{"place_id":"p3"}]}`)
	}))

	point := model.Coordinates{Latitude: 53.48, Longitude: -2.24}
	ids, err := client.SearchNearby(context.Background(), point, 20000, "plumber", 3)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Equal(t, 1, requests, "a satisfied limit must not fetch the next page")
}

func TestSearchNearby_PaginationFailureKeepsEarlierPages(t *testing.T) {
	fastPages(t)
	fastRetries(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pagetoken") != "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"status":"OK","next_page_token":"page-2","results":[{"place_id":"p1"},{"place_id":"p2"}]}`)
	}))

	point := model.Coordinates{Latitude: 53.48, Longitude: -2.24}
	ids, err := client.SearchNearby(context.Background(), point, 20000, "plumber", 10)
	require.NoError(t, err, "a broken follow-up page degrades, it does not fail the search")
	assert.Equal(t, []string{"p1", "p2"}, ids)
}

func TestSearchNearby_RateLimited(t *testing.T) {
	fastRetries(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	point := model.Coordinates{Latitude: 53.48, Longitude: -2.24}
	_, err := client.SearchNearby(context.Background(), point, 20000, "roofer", 10)
	require.Error(t, err)

	retryAfter, ok := clients.IsRateLimited(err)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, retryAfter, time.Duration(0))
}

func TestFetchDetails_SkipsFailedIDs(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("place_id") {
		case "good":
			fmt.Fprint(w, `{"status":"OK","result":{"place_id":"good","name":"Smith Roofing","formatted_address":"1 High St, Manchester M1 1AE","rating":4.5,"user_ratings_total":120,"geometry":{"location":{"lat":53.48,"lng":-2.24}}}}`)
		case "vanished":
			fmt.Fprint(w, `{"status":"NOT_FOUND"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	details, err := client.FetchDetails(context.Background(), []string{"good", "vanished", "broken"})
	require.NoError(t, err, "individual failures do not fail the batch")

	require.Len(t, details, 1)
	detail := details["good"]
	require.NotNil(t, detail)
	assert.Equal(t, "Smith Roofing", detail.Name)
	assert.Equal(t, 4.5, detail.Rating)
	assert.Equal(t, 120, detail.RatingCount)
}

func TestFetchDetails_RateLimitAbortsBatch(t *testing.T) {
	fastRetries(t)

	var served bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !served && r.URL.Query().Get("place_id") == "first" {
			served = true
			fmt.Fprint(w, `{"status":"OK","result":{"place_id":"first","name":"First","geometry":{"location":{"lat":1,"lng":2}}}}`)
			return
		}
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	details, err := client.FetchDetails(context.Background(), []string{"first", "second", "third"})
	require.Error(t, err)

	_, rateLimited := clients.IsRateLimited(err)
	assert.True(t, rateLimited)
	assert.Len(t, details, 1, "details fetched before the limit are kept")
}

func TestCategoryMapping_FallsBackForUnknown(t *testing.T) {
	assert.Equal(t, "roofing_contractor", googleType("roofer"))
	assert.Equal(t, "electrician", googleType("electrician"))

	// unknown categories search as a generic contractor, keyword verbatim
	assert.Equal(t, "general_contractor", googleType("chimney_sweep"))
	assert.Equal(t, "chimney_sweep", searchKeyword("chimney_sweep"))
}
