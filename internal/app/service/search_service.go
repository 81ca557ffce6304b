package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tmarsden/tradescout-backend/config"
	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/internal/app/repository"
	"github.com/tmarsden/tradescout-backend/internal/cache"
	"github.com/tmarsden/tradescout-backend/internal/clients/places"
	"github.com/tmarsden/tradescout-backend/internal/clients/registry"
	"github.com/tmarsden/tradescout-backend/internal/dedup"
	"github.com/tmarsden/tradescout-backend/pkg/logger"
	"github.com/tmarsden/tradescout-backend/pkg/match"
	"github.com/tmarsden/tradescout-backend/pkg/redis"
	"github.com/tmarsden/tradescout-backend/pkg/util"
	"golang.org/x/sync/errgroup"
)

var (
	ErrLocationNotFound = errors.New("location could not be resolved to coordinates")
)

// Ranking policy. The weights are outward behaviour; see the ranking tests
// before touching them.
const (
	verifiedRankBonus = 1000.0
	ratingWeight      = 100.0
	reviewCountCap    = 500
	reviewCountWeight = 0.1
)

// officers retained per enriched record
const maxDirectors = 5

// PlacesAPI is the places-index adapter used by the aggregator.
type PlacesAPI interface {
	ResolveCoordinates(ctx context.Context, text string) (*model.Coordinates, error)
	SearchNearby(ctx context.Context, point model.Coordinates, radiusMeters int, category string, limit int) ([]string, error)
	FetchDetails(ctx context.Context, placeIDs []string) (map[string]*places.Detail, error)
}

// RegistryAPI is the company-registry adapter used for enrichment.
type RegistryAPI interface {
	SearchCompanies(ctx context.Context, name string, limit int) ([]registry.Candidate, error)
	FetchProfile(ctx context.Context, companyNumber string) (*registry.Profile, error)
	FetchOfficers(ctx context.Context, companyNumber string) ([]registry.Officer, error)
}

// SearchService runs the enrichment-and-caching pipeline for one query:
// resolve coordinates, fan out to the places index per category, fetch
// details, merge with the durable store, optionally enrich from the company
// registry, rank, cache.
type SearchService interface {
	Search(ctx context.Context, query *model.SearchQuery) (*model.SearchResponse, error)
}

type searchService struct {
	repo       repository.BusinessRepository
	placesAPI  PlacesAPI
	registry   RegistryAPI
	memCache   *cache.MemoryCache
	coordCache *redis.CoordinateCache
	dedup      *dedup.Deduplicator
	cacheCfg   config.CacheConfig
	searchCfg  config.SearchConfig
}

// NewSearchService wires the pipeline. coordCache may be nil; coordinate
// lookups then stay in the process-local cache only.
func NewSearchService(
	repo repository.BusinessRepository,
	placesAPI PlacesAPI,
	registryAPI RegistryAPI,
	memCache *cache.MemoryCache,
	coordCache *redis.CoordinateCache,
	cacheCfg config.CacheConfig,
	searchCfg config.SearchConfig,
) SearchService {
	return &searchService{
		repo:       repo,
		placesAPI:  placesAPI,
		registry:   registryAPI,
		memCache:   memCache,
		coordCache: coordCache,
		dedup:      dedup.New(),
		cacheCfg:   cacheCfg,
		searchCfg:  searchCfg,
	}
}

func (s *searchService) Search(ctx context.Context, query *model.SearchQuery) (*model.SearchResponse, error) {
	if err := query.Normalize(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.searchCfg.QueryTimeout)
	defer cancel()

	coords, err := s.resolveCoordinates(ctx, query.Location)
	if err != nil {
		return nil, err
	}

	cacheKey := cache.Key("search",
		query.Location, query.Categories,
		query.RadiusMeters, query.MaxResults, query.Enrich)

	if query.UseCache {
		if cached, ok := s.memCache.Get(cacheKey); ok {
			response := cached.(*model.SearchResponse)
			logger.Debug("Search served from cache", map[string]interface{}{
				"key":     cacheKey,
				"results": response.TotalFound,
			})
			copied := *response
			copied.FromCache = true
			return &copied, nil
		}
	} else {
		// a cache bypass also discards any recently shared pipeline result
		s.dedup.Forget(cacheKey)
	}

	// concurrent identical queries share one pipeline run
	result, err := s.dedup.Run(cacheKey, s.cacheCfg.DedupWindow, func() (interface{}, error) {
		return s.runPipeline(ctx, query, *coords, cacheKey)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.SearchResponse), nil
}

// runPipeline executes the upstream fan-out and assembles the response.
func (s *searchService) runPipeline(ctx context.Context, query *model.SearchQuery, coords model.Coordinates, cacheKey string) (*model.SearchResponse, error) {
	placeIDs, firstCategory, err := s.fetchCandidates(ctx, query, coords)
	if err != nil {
		return nil, err
	}

	details, err := s.fetchDetails(ctx, placeIDs)
	if err != nil {
		// degrade to whatever was fetched before the failure
		logger.Warn("Detail fetch incomplete", map[string]interface{}{
			"fetched": len(details),
			"total":   len(placeIDs),
			"error":   err.Error(),
		})
	}

	businesses := s.buildRecords(placeIDs, firstCategory, details)
	businesses = s.mergeWithStore(businesses)

	if query.Enrich {
		s.enrichAll(ctx, businesses)
	}

	rankBusinesses(businesses)
	if len(businesses) > query.MaxResults {
		businesses = businesses[:query.MaxResults]
	}

	response := &model.SearchResponse{
		TotalFound:     len(businesses),
		Businesses:     withDistances(businesses, coords),
		SearchLocation: coords,
	}

	// Populate the caches and the durable store off the request path. The
	// response is already computed; a failed write must not overturn it, and
	// a caller timeout must not cancel it.
	s.persistAsync(query, cacheKey, businesses, response)

	return response, nil
}

// fetchCandidates fans out one nearby search per category and deduplicates
// the returned identifiers. The first category to report an identity keeps
// the attribution. A single failed category degrades the result, it does not
// abort the query.
func (s *searchService) fetchCandidates(ctx context.Context, query *model.SearchQuery, coords model.Coordinates) ([]string, map[string]string, error) {
	var mu sync.Mutex
	var placeIDs []string
	firstCategory := make(map[string]string)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, category := range query.Categories {
		group.Go(func() error {
			ids, err := s.placesAPI.SearchNearby(groupCtx, coords, query.RadiusMeters, category, query.MaxResults)
			if err != nil {
				logger.Warn("Nearby search failed for category", map[string]interface{}{
					"category": category,
					"error":    err.Error(),
				})
				return nil
			}

			mu.Lock()
			for _, id := range ids {
				if _, seen := firstCategory[id]; seen {
					continue
				}
				firstCategory[id] = category
				placeIDs = append(placeIDs, id)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return placeIDs, firstCategory, nil
}

// fetchDetails fetches details in batches. The adapter's gate bounds the
// concurrency; batches run in parallel.
func (s *searchService) fetchDetails(ctx context.Context, placeIDs []string) (map[string]*places.Detail, error) {
	batchSize := s.searchCfg.DetailBatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	var mu sync.Mutex
	details := make(map[string]*places.Detail, len(placeIDs))

	group, groupCtx := errgroup.WithContext(ctx)
	for start := 0; start < len(placeIDs); start += batchSize {
		end := start + batchSize
		if end > len(placeIDs) {
			end = len(placeIDs)
		}
		batch := placeIDs[start:end]

		group.Go(func() error {
			fetched, err := s.placesAPI.FetchDetails(groupCtx, batch)
			mu.Lock()
			for id, detail := range fetched {
				details[id] = detail
			}
			mu.Unlock()
			return err
		})
	}
	err := group.Wait()
	return details, err
}

// buildRecords turns fetched details into business records. An identifier
// with no detail (failed or vanished upstream) is dropped, not retried.
func (s *searchService) buildRecords(placeIDs []string, firstCategory map[string]string, details map[string]*places.Detail) []model.Business {
	now := time.Now()
	businesses := make([]model.Business, 0, len(details))
	for _, placeID := range placeIDs {
		detail, ok := details[placeID]
		if !ok {
			continue
		}
		businesses = append(businesses, model.Business{
			PlaceID:     placeID,
			Name:        detail.Name,
			Category:    firstCategory[placeID],
			Address:     detail.Address,
			Postcode:    util.ExtractPostcode(detail.Address),
			PhoneNumber: detail.PhoneNumber,
			Website:     detail.Website,
			Rating:      detail.Rating,
			RatingCount: detail.RatingCount,
			Latitude:    detail.Latitude,
			Longitude:   detail.Longitude,
			Status:      model.StatusUnverified,
			LastUpdated: now,
		})
	}
	return businesses
}

// mergeWithStore reconciles fresh records with the durable store. The record
// with the newer LastUpdated wins outright; a fresh record additionally
// inherits stored registry data that is still within its TTL, so enrichment
// survives detail refreshes.
func (s *searchService) mergeWithStore(businesses []model.Business) []model.Business {
	placeIDs := make([]string, len(businesses))
	for i := range businesses {
		placeIDs[i] = businesses[i].PlaceID
	}

	stored, err := s.repo.FindByPlaceIDs(placeIDs)
	if err != nil {
		// cache-derived data still suffices for a response
		logger.Error("Failed to load stored businesses for merge", err)
		return businesses
	}

	byID := make(map[string]*model.Business, len(stored))
	for i := range stored {
		byID[stored[i].PlaceID] = &stored[i]
	}

	for i := range businesses {
		existing, ok := byID[businesses[i].PlaceID]
		if !ok {
			continue
		}
		if existing.LastUpdated.After(businesses[i].LastUpdated) {
			businesses[i] = *existing
			continue
		}
		if businesses[i].Registry == nil && existing.Registry != nil &&
			time.Since(existing.Registry.MatchedAt) < s.cacheCfg.RegistryDataTTL {
			businesses[i].Registry = existing.Registry
			businesses[i].Status = existing.Status
		}
	}
	return businesses
}

// enrichAll runs registry enrichment over the batch with a bounded worker
// group. Enrichment is best effort: a failure leaves the record unverified
// and never aborts the batch.
func (s *searchService) enrichAll(ctx context.Context, businesses []model.Business) {
	workers := s.searchCfg.EnrichWorkers
	if workers <= 0 {
		workers = 4
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i := range businesses {
		if businesses[i].Registry != nil {
			continue
		}
		business := &businesses[i]
		group.Go(func() error {
			if err := s.enrichOne(groupCtx, business); err != nil {
				logger.Warn("Registry enrichment failed", map[string]interface{}{
					"place_id": business.PlaceID,
					"name":     business.Name,
					"error":    err.Error(),
				})
			}
			return nil
		})
	}
	group.Wait()
}

// enrichOne matches one business against the registry and attaches profile
// and officer data on a confident match.
func (s *searchService) enrichOne(ctx context.Context, business *model.Business) error {
	candidates, err := s.registry.SearchCompanies(ctx, business.Name, 10)
	if err != nil {
		return err
	}

	matchCandidates := make([]match.Candidate, len(candidates))
	for i, candidate := range candidates {
		matchCandidates[i] = match.Candidate{
			CompanyNumber: candidate.CompanyNumber,
			CompanyName:   candidate.CompanyName,
			CompanyStatus: candidate.CompanyStatus,
			Postcode:      candidate.Postcode,
		}
	}

	best := match.BestMatch(business.Name, business.Postcode, matchCandidates)
	if best == nil {
		return nil // no confident match: stays unverified, no registry data
	}

	registryMatch := &model.RegistryMatch{
		CompanyNumber: best.CompanyNumber,
		CompanyName:   best.CompanyName,
		CompanyStatus: best.CompanyStatus,
		MatchScore:    match.Score(business.Name, best.CompanyName),
		MatchedAt:     time.Now(),
	}

	// profile absence is valid: keep the search-result data we already have
	profile, err := s.registry.FetchProfile(ctx, best.CompanyNumber)
	if err != nil {
		return err
	}
	if profile != nil {
		registryMatch.CompanyName = profile.CompanyName
		registryMatch.CompanyStatus = profile.CompanyStatus
		registryMatch.RegisteredAddress = profile.RegisteredAddress
		registryMatch.SICCodes = profile.SICCodes
		registryMatch.IncorporatedOn = profile.IncorporatedOn
	}

	// officer-fetch failures surface only as an absent directors list
	if officers, err := s.registry.FetchOfficers(ctx, best.CompanyNumber); err == nil {
		if len(officers) > maxDirectors {
			officers = officers[:maxDirectors]
		}
		for _, officer := range officers {
			registryMatch.Directors = append(registryMatch.Directors, model.Director{
				Name:        officer.Name,
				Role:        officer.Role,
				AppointedOn: officer.AppointedOn,
			})
		}
	}

	business.Registry = registryMatch
	if strings.EqualFold(registryMatch.CompanyStatus, "active") {
		business.Status = model.StatusVerified
	} else {
		business.Status = model.StatusInactive
	}
	return nil
}

// rankScore implements the result ranking policy.
func rankScore(business *model.Business) float64 {
	score := ratingWeight * business.Rating
	if business.Status == model.StatusVerified {
		score += verifiedRankBonus
	}
	count := business.RatingCount
	if count > reviewCountCap {
		count = reviewCountCap
	}
	score += float64(count) * reviewCountWeight
	return score
}

// rankBusinesses sorts by rank score descending; equal scores keep their
// input order.
func rankBusinesses(businesses []model.Business) {
	sort.SliceStable(businesses, func(i, j int) bool {
		return rankScore(&businesses[i]) > rankScore(&businesses[j])
	})
}

// withDistances decorates ranked records with their distance from the query
// point.
func withDistances(businesses []model.Business, coords model.Coordinates) []model.BusinessWithDistance {
	results := make([]model.BusinessWithDistance, len(businesses))
	for i, business := range businesses {
		results[i] = model.BusinessWithDistance{
			Business:       business,
			DistanceMeters: util.DistanceMeters(coords.Latitude, coords.Longitude, business.Latitude, business.Longitude),
		}
	}
	return results
}

// persistAsync writes the response cache and the durable store in the
// background. Failures are logged; they never reach the caller.
func (s *searchService) persistAsync(query *model.SearchQuery, cacheKey string, businesses []model.Business, response *model.SearchResponse) {
	if query.UseCache {
		s.memCache.Set(cacheKey, response, s.cacheCfg.SearchResultTTL)
	}

	records := make([]model.Business, len(businesses))
	copy(records, businesses)
	go func() {
		// enriched records carry registry data, which lives longer
		for i := range records {
			ttl := s.cacheCfg.SearchResultTTL
			if records[i].Registry != nil {
				ttl = s.cacheCfg.RegistryDataTTL
			}
			if err := s.repo.Upsert(&records[i], ttl); err != nil {
				logger.Error("Background store write failed", err, map[string]interface{}{
					"place_id": records[i].PlaceID,
				})
			}
		}
	}()
}

// resolveCoordinates turns the query location into coordinates, trying the
// in-process cache, then the shared Redis tier, then the geocoder. A
// location the geocoder cannot resolve is fatal to the query.
func (s *searchService) resolveCoordinates(ctx context.Context, location string) (*model.Coordinates, error) {
	key := cache.Key("coords", location)

	if cached, ok := s.memCache.Get(key); ok {
		coords := cached.(model.Coordinates)
		return &coords, nil
	}

	if coords, err := s.coordCache.GetCoordinates(ctx, key); err == nil && coords != nil {
		s.memCache.Set(key, *coords, s.cacheCfg.CoordinateTTL)
		return coords, nil
	}

	// postcodes geocode as-is; free-text addresses are scoped to the UK
	text := strings.TrimSpace(location)
	if !util.LooksLikePostcode(text) && !strings.Contains(strings.ToLower(text), "uk") {
		text = fmt.Sprintf("%s, UK", text)
	}

	coords, err := s.placesAPI.ResolveCoordinates(ctx, text)
	if err != nil {
		return nil, err
	}
	if coords == nil {
		return nil, ErrLocationNotFound
	}
	if err := coords.Validate(); err != nil {
		return nil, err
	}

	s.memCache.Set(key, *coords, s.cacheCfg.CoordinateTTL)
	if err := s.coordCache.SetCoordinates(ctx, key, *coords, s.cacheCfg.CoordinateTTL); err != nil {
		logger.Warn("Failed to populate shared coordinate cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return coords, nil
}
