package repository

import (
	"sort"
	"time"

	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/pkg/logger"
	"github.com/tmarsden/tradescout-backend/pkg/util"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NearFilter narrows a geospatial query.
type NearFilter struct {
	Category     string
	VerifiedOnly bool
	MinRating    float64
}

// BusinessRepository is the durable geospatial store for business records.
type BusinessRepository interface {
	Upsert(business *model.Business, ttl time.Duration) error
	BulkUpsert(businesses []model.Business, ttl time.Duration) (int, error)
	FindByPlaceIDs(placeIDs []string) ([]model.Business, error)
	FindNear(point model.Coordinates, radiusMeters int, filter NearFilter, limit, offset int) ([]model.BusinessWithDistance, error)
	Stats(point *model.Coordinates, radiusMeters int) (*model.StoreStats, error)
	PurgeExpired() (int64, error)
}

type businessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

// Upsert inserts or overwrites the record keyed by its place ID. Idempotent:
// re-upserting the same identity leaves one row. LastUpdated and CacheExpiry
// are always refreshed.
func (r *businessRepository) Upsert(business *model.Business, ttl time.Duration) error {
	now := time.Now()
	business.LastUpdated = now
	business.CacheExpiry = now.Add(ttl)

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "place_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "category", "address", "postcode", "phone_number", "website",
			"rating", "rating_count", "latitude", "longitude", "status",
			"registry", "last_updated", "cache_expiry", "updated_at",
		}),
	}).Create(business).Error
	if err != nil {
		logger.Error("Failed to upsert business", err, map[string]interface{}{
			"place_id": business.PlaceID,
		})
		return err
	}
	return nil
}

// BulkUpsert applies Upsert semantics per record. A failure on one record
// does not abort the others; the count of records actually saved is returned.
func (r *businessRepository) BulkUpsert(businesses []model.Business, ttl time.Duration) (int, error) {
	saved := 0
	for i := range businesses {
		if err := r.Upsert(&businesses[i], ttl); err != nil {
			logger.Warn("Skipping business in bulk upsert", map[string]interface{}{
				"place_id": businesses[i].PlaceID,
				"error":    err.Error(),
			})
			continue
		}
		saved++
	}

	logger.Debug("Bulk upsert completed", map[string]interface{}{
		"saved": saved,
		"total": len(businesses),
	})
	return saved, nil
}

// FindByPlaceIDs loads records for the given identities, missing ones
// omitted.
func (r *businessRepository) FindByPlaceIDs(placeIDs []string) ([]model.Business, error) {
	if len(placeIDs) == 0 {
		return nil, nil
	}

	var businesses []model.Business
	if err := r.db.Where("place_id IN ?", placeIDs).Find(&businesses).Error; err != nil {
		logger.Error("Failed to find businesses by place IDs", err)
		return nil, err
	}
	return businesses, nil
}

// FindNear returns records within radiusMeters of point, ordered by
// verification rank (verified > inactive > unverified) then ascending
// distance. Candidate selection uses a bounding box in SQL; the exact
// distance cut and the ordering happen here so they are identical on
// postgres and the sqlite test database. Pagination is stable against an
// unchanged dataset because the sort is total (place ID breaks exact ties).
func (r *businessRepository) FindNear(point model.Coordinates, radiusMeters int, filter NearFilter, limit, offset int) ([]model.BusinessWithDistance, error) {
	minLat, maxLat, minLon, maxLon := util.BoundingBox(point.Latitude, point.Longitude, float64(radiusMeters))

	query := r.db.Model(&model.Business{}).
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLon, maxLon)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.VerifiedOnly {
		query = query.Where("status = ?", model.StatusVerified)
	}
	if filter.MinRating > 0 {
		query = query.Where("rating >= ?", filter.MinRating)
	}

	var candidates []model.Business
	if err := query.Find(&candidates).Error; err != nil {
		logger.Error("Failed to query businesses near point", err, map[string]interface{}{
			"lat":    point.Latitude,
			"lng":    point.Longitude,
			"radius": radiusMeters,
		})
		return nil, err
	}

	results := make([]model.BusinessWithDistance, 0, len(candidates))
	for _, business := range candidates {
		distance := util.DistanceMeters(point.Latitude, point.Longitude, business.Latitude, business.Longitude)
		if distance > float64(radiusMeters) {
			continue
		}
		results = append(results, model.BusinessWithDistance{
			Business:       business,
			DistanceMeters: distance,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		ri, rj := results[i].Status.Rank(), results[j].Status.Rank()
		if ri != rj {
			return ri > rj
		}
		if results[i].DistanceMeters != results[j].DistanceMeters {
			return results[i].DistanceMeters < results[j].DistanceMeters
		}
		return results[i].PlaceID < results[j].PlaceID
	})

	if offset >= len(results) {
		return []model.BusinessWithDistance{}, nil
	}
	results = results[offset:]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Stats summarises the store, scoped to a point and radius when given.
func (r *businessRepository) Stats(point *model.Coordinates, radiusMeters int) (*model.StoreStats, error) {
	stats := &model.StoreStats{CountsByCategory: make(map[string]int64)}

	if point == nil {
		if err := r.db.Model(&model.Business{}).Count(&stats.Total).Error; err != nil {
			return nil, err
		}
		if err := r.db.Model(&model.Business{}).
			Where("status = ?", model.StatusVerified).
			Count(&stats.VerifiedCount).Error; err != nil {
			return nil, err
		}

		type categoryRow struct {
			Category string
			Count    int64
		}
		var rows []categoryRow
		if err := r.db.Model(&model.Business{}).
			Select("category, COUNT(*) as count").
			Group("category").
			Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			stats.CountsByCategory[row.Category] = row.Count
		}
		return stats, nil
	}

	// scoped: reuse the geospatial path so the radius cut matches FindNear
	results, err := r.FindNear(*point, radiusMeters, NearFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, result := range results {
		stats.Total++
		if result.Status == model.StatusVerified {
			stats.VerifiedCount++
		}
		stats.CountsByCategory[result.Category]++
	}
	return stats, nil
}

// PurgeExpired deletes every record whose cache expiry is strictly in the
// past. The single DELETE keeps concurrent readers from seeing partial state.
func (r *businessRepository) PurgeExpired() (int64, error) {
	result := r.db.Where("cache_expiry < ?", time.Now()).Delete(&model.Business{})
	if result.Error != nil {
		logger.Error("Failed to purge expired businesses", result.Error)
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.Info("Purged expired businesses", map[string]interface{}{
			"removed": result.RowsAffected,
		})
	}
	return result.RowsAffected, nil
}
