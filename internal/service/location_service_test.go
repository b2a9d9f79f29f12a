package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/geocode"
)

type stubGeocoder struct {
	places []domain.Place
	err    error
}

func (g *stubGeocoder) Search(context.Context, string) ([]domain.Place, error) {
	return g.places, g.err
}

func (g *stubGeocoder) Reverse(context.Context, float64, float64) (*domain.Place, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &g.places[0], nil
}

func TestLocationService(t *testing.T) {
	geo := &stubGeocoder{places: []domain.Place{{PlaceID: "1", Name: "Lisbon"}}}
	svc := NewLocationService(geo)
	ctx := context.Background()

	_, err := svc.Search(ctx, " a ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	places, err := svc.Search(ctx, "lisb")
	require.NoError(t, err)
	assert.Len(t, places, 1)

	_, err = svc.Reverse(ctx, 91, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	place, err := svc.Reverse(ctx, 38.7, -9.1)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", place.Name)

	geo.err = geocode.ErrNotFound
	_, err = svc.Reverse(ctx, 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}
