package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/internal/db"
	"gorm.io/gorm"
)

func setupRepoTest(t *testing.T) (BusinessRepository, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	return NewBusinessRepository(testDB), testDB
}

// Manchester city centre
var testPoint = model.Coordinates{Latitude: 53.4808, Longitude: -2.2426}

func testBusiness(placeID string, lat, lng float64) model.Business {
	return model.Business{
		PlaceID:   placeID,
		Name:      "Business " + placeID,
		Category:  "roofer",
		Address:   "1 High St, Manchester, M1 1AE",
		Postcode:  "M1 1AE",
		Rating:    4.0,
		Latitude:  lat,
		Longitude: lng,
		Status:    model.StatusUnverified,
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	repo, testDB := setupRepoTest(t)

	first := testBusiness("p1", 53.48, -2.24)
	require.NoError(t, repo.Upsert(&first, time.Hour))

	// same identity, fresher data
	second := testBusiness("p1", 53.48, -2.24)
	second.Name = "Renamed Roofing"
	second.Rating = 4.8
	require.NoError(t, repo.Upsert(&second, time.Hour))

	var count int64
	testDB.Model(&model.Business{}).Count(&count)
	assert.Equal(t, int64(1), count, "re-upserting one identity leaves one row")

	var stored model.Business
	require.NoError(t, testDB.Where("place_id = ?", "p1").First(&stored).Error)
	assert.Equal(t, "Renamed Roofing", stored.Name)
	assert.Equal(t, 4.8, stored.Rating)
}

func TestUpsert_RefreshesExpiry(t *testing.T) {
	repo, testDB := setupRepoTest(t)

	b := testBusiness("p1", 53.48, -2.24)
	require.NoError(t, repo.Upsert(&b, time.Hour))

	var stored model.Business
	require.NoError(t, testDB.Where("place_id = ?", "p1").First(&stored).Error)
	assert.WithinDuration(t, time.Now().Add(time.Hour), stored.CacheExpiry, 5*time.Second)
	assert.WithinDuration(t, time.Now(), stored.LastUpdated, 5*time.Second)
}

func TestUpsert_PersistsRegistryMatch(t *testing.T) {
	repo, testDB := setupRepoTest(t)

	b := testBusiness("p1", 53.48, -2.24)
	b.Status = model.StatusVerified
	b.Registry = &model.RegistryMatch{
		CompanyNumber: "01234567",
		CompanyName:   "SMITH ROOFING LTD",
		CompanyStatus: "active",
		MatchScore:    0.85,
		MatchedAt:     time.Now(),
		Directors:     []model.Director{{Name: "SMITH, John", Role: "director"}},
	}
	require.NoError(t, repo.Upsert(&b, time.Hour))

	var stored model.Business
	require.NoError(t, testDB.Where("place_id = ?", "p1").First(&stored).Error)
	require.NotNil(t, stored.Registry)
	assert.Equal(t, "01234567", stored.Registry.CompanyNumber)
	require.Len(t, stored.Registry.Directors, 1)
	assert.Equal(t, "SMITH, John", stored.Registry.Directors[0].Name)
}

func TestBulkUpsert(t *testing.T) {
	repo, _ := setupRepoTest(t)

	businesses := []model.Business{
		testBusiness("p1", 53.48, -2.24),
		testBusiness("p2", 53.49, -2.25),
		testBusiness("p1", 53.48, -2.24), // duplicate identity collapses
	}

	saved, err := repo.BulkUpsert(businesses, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, saved)

	stored, err := repo.FindByPlaceIDs([]string{"p1", "p2"})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestFindByPlaceIDs_MissingOmitted(t *testing.T) {
	repo, _ := setupRepoTest(t)

	b := testBusiness("p1", 53.48, -2.24)
	require.NoError(t, repo.Upsert(&b, time.Hour))

	stored, err := repo.FindByPlaceIDs([]string{"p1", "ghost"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "p1", stored[0].PlaceID)
}

func TestFindNear_RadiusCut(t *testing.T) {
	repo, _ := setupRepoTest(t)

	near := testBusiness("near", 53.4810, -2.2430) // tens of meters away
	far := testBusiness("far", 53.9623, -1.0819)   // York, ~90km away
	require.NoError(t, repo.Upsert(&near, time.Hour))
	require.NoError(t, repo.Upsert(&far, time.Hour))

	results, err := repo.FindNear(testPoint, 20000, NearFilter{}, 50, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].PlaceID)
	assert.Less(t, results[0].DistanceMeters, 100.0)
}

func TestFindNear_OrdersByStatusThenDistance(t *testing.T) {
	repo, _ := setupRepoTest(t)

	farVerified := testBusiness("far-verified", 53.52, -2.24)
	farVerified.Status = model.StatusVerified
	nearUnverified := testBusiness("near-unverified", 53.4810, -2.2430)
	midInactive := testBusiness("mid-inactive", 53.50, -2.24)
	midInactive.Status = model.StatusInactive

	require.NoError(t, repo.Upsert(&farVerified, time.Hour))
	require.NoError(t, repo.Upsert(&nearUnverified, time.Hour))
	require.NoError(t, repo.Upsert(&midInactive, time.Hour))

	results, err := repo.FindNear(testPoint, 20000, NearFilter{}, 50, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "far-verified", results[0].PlaceID, "verified outranks nearer unverified")
	assert.Equal(t, "mid-inactive", results[1].PlaceID)
	assert.Equal(t, "near-unverified", results[2].PlaceID)
}

func TestFindNear_Filters(t *testing.T) {
	repo, _ := setupRepoTest(t)

	roofer := testBusiness("roofer", 53.481, -2.243)
	plumber := testBusiness("plumber", 53.482, -2.244)
	plumber.Category = "plumber"
	plumber.Status = model.StatusVerified
	lowRated := testBusiness("low", 53.483, -2.245)
	lowRated.Rating = 2.0

	require.NoError(t, repo.Upsert(&roofer, time.Hour))
	require.NoError(t, repo.Upsert(&plumber, time.Hour))
	require.NoError(t, repo.Upsert(&lowRated, time.Hour))

	byCategory, err := repo.FindNear(testPoint, 20000, NearFilter{Category: "plumber"}, 50, 0)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "plumber", byCategory[0].PlaceID)

	verifiedOnly, err := repo.FindNear(testPoint, 20000, NearFilter{VerifiedOnly: true}, 50, 0)
	require.NoError(t, err)
	require.Len(t, verifiedOnly, 1)
	assert.Equal(t, "plumber", verifiedOnly[0].PlaceID)

	wellRated, err := repo.FindNear(testPoint, 20000, NearFilter{MinRating: 3.5}, 50, 0)
	require.NoError(t, err)
	assert.Len(t, wellRated, 2)
}

func TestFindNear_Pagination(t *testing.T) {
	repo, _ := setupRepoTest(t)

	for i := 0; i < 5; i++ {
		b := testBusiness(string(rune('a'+i)), 53.4810+float64(i)*0.001, -2.2430)
		require.NoError(t, repo.Upsert(&b, time.Hour))
	}

	page1, err := repo.FindNear(testPoint, 20000, NearFilter{}, 2, 0)
	require.NoError(t, err)
	page2, err := repo.FindNear(testPoint, 20000, NearFilter{}, 2, 2)
	require.NoError(t, err)
	page3, err := repo.FindNear(testPoint, 20000, NearFilter{}, 2, 4)
	require.NoError(t, err)

	require.Len(t, page1, 2)
	require.Len(t, page2, 2)
	require.Len(t, page3, 1)

	seen := map[string]bool{}
	for _, r := range append(append(page1, page2...), page3...) {
		assert.False(t, seen[r.PlaceID], "pages must not overlap")
		seen[r.PlaceID] = true
	}

	beyond, err := repo.FindNear(testPoint, 20000, NearFilter{}, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestStats_Global(t *testing.T) {
	repo, _ := setupRepoTest(t)

	verified := testBusiness("v", 53.48, -2.24)
	verified.Status = model.StatusVerified
	plumber := testBusiness("p", 53.49, -2.25)
	plumber.Category = "plumber"

	require.NoError(t, repo.Upsert(&verified, time.Hour))
	require.NoError(t, repo.Upsert(&plumber, time.Hour))

	stats, err := repo.Stats(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.VerifiedCount)
	assert.Equal(t, int64(1), stats.CountsByCategory["roofer"])
	assert.Equal(t, int64(1), stats.CountsByCategory["plumber"])
}

func TestStats_Scoped(t *testing.T) {
	repo, _ := setupRepoTest(t)

	near := testBusiness("near", 53.481, -2.243)
	farAway := testBusiness("york", 53.9623, -1.0819)
	require.NoError(t, repo.Upsert(&near, time.Hour))
	require.NoError(t, repo.Upsert(&farAway, time.Hour))

	stats, err := repo.Stats(&testPoint, 20000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
}

func TestPurgeExpired(t *testing.T) {
	repo, testDB := setupRepoTest(t)

	expired := testBusiness("expired", 53.48, -2.24)
	require.NoError(t, repo.Upsert(&expired, time.Hour))
	fresh := testBusiness("fresh", 53.49, -2.25)
	require.NoError(t, repo.Upsert(&fresh, time.Hour))

	// age one record past its expiry
	require.NoError(t, testDB.Model(&model.Business{}).
		Where("place_id = ?", "expired").
		Update("cache_expiry", time.Now().Add(-time.Minute)).Error)

	purged, err := repo.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	remaining, err := repo.FindByPlaceIDs([]string{"expired", "fresh"})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].PlaceID)
}
