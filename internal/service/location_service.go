package service

import (
	"context"
	"errors"
	"strings"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/geocode"
)

type locationServiceImpl struct {
	geo Geocoder
}

// NewLocationService creates the location service.
func NewLocationService(geo Geocoder) LocationService {
	return &locationServiceImpl{geo: geo}
}

func (s *locationServiceImpl) Search(ctx context.Context, query string) ([]domain.Place, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, invalidf("query must be at least 2 characters")
	}
	return s.geo.Search(ctx, query)
}

func (s *locationServiceImpl) Reverse(ctx context.Context, lat, lon float64) (*domain.Place, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, invalidf("coordinate out of range")
	}
	place, err := s.geo.Reverse(ctx, lat, lon)
	if errors.Is(err, geocode.ErrNotFound) {
		return nil, notFound("no place at that location")
	}
	return place, err
}
