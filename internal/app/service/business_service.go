package service

import (
	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/internal/app/repository"
)

// NearbyQuery reads stored records around a point without touching upstream
// services.
type NearbyQuery struct {
	Point        model.Coordinates
	RadiusMeters int
	Category     string
	VerifiedOnly bool
	MinRating    float64
	Limit        int
	Offset       int
}

// BusinessService serves read-only queries over the durable store.
type BusinessService interface {
	Nearby(query NearbyQuery) ([]model.BusinessWithDistance, error)
	Stats(point *model.Coordinates, radiusMeters int) (*model.StoreStats, error)
}

type businessService struct {
	repo repository.BusinessRepository
}

func NewBusinessService(repo repository.BusinessRepository) BusinessService {
	return &businessService{repo: repo}
}

func (s *businessService) Nearby(query NearbyQuery) ([]model.BusinessWithDistance, error) {
	if err := query.Point.Validate(); err != nil {
		return nil, err
	}
	if query.RadiusMeters <= 0 {
		query.RadiusMeters = 20000
	}
	if query.RadiusMeters > model.MaxRadiusMeters {
		return nil, model.ErrRadiusOutOfRange
	}
	if query.Limit <= 0 || query.Limit > model.MaxResultCap {
		query.Limit = 50
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	filter := repository.NearFilter{
		Category:     query.Category,
		VerifiedOnly: query.VerifiedOnly,
		MinRating:    query.MinRating,
	}
	return s.repo.FindNear(query.Point, query.RadiusMeters, filter, query.Limit, query.Offset)
}

func (s *businessService) Stats(point *model.Coordinates, radiusMeters int) (*model.StoreStats, error) {
	if point != nil {
		if err := point.Validate(); err != nil {
			return nil, err
		}
		if radiusMeters <= 0 {
			radiusMeters = 20000
		}
	}
	return s.repo.Stats(point, radiusMeters)
}
