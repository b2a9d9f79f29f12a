package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StormyOasis/linsta-sub001/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.GeocodeConfig{BaseURL: srv.URL + "/", UserAgent: "linsta-test", Timeout: time.Second}, nil)
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "eiffel tower", r.URL.Query().Get("q"))
		assert.Equal(t, "8", r.URL.Query().Get("limit"))
		assert.Equal(t, "linsta-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`[{"place_id":123,"display_name":"Eiffel Tower, Paris","name":"Eiffel Tower",
			"lat":"48.8584","lon":"2.2945","address":{"house_number":"5","road":"Avenue Anatole France","city":"Paris","country":"France"}}]`))
	})

	places, err := c.Search(context.Background(), " eiffel tower ")
	require.NoError(t, err)
	require.Len(t, places, 1)

	p := places[0]
	assert.Equal(t, "123", p.PlaceID)
	assert.Equal(t, "Eiffel Tower", p.Name)
	assert.Equal(t, "5 Avenue Anatole France", p.Street)
	assert.Equal(t, "Paris", p.City)
	assert.InDelta(t, 48.8584, p.Lat, 1e-9)
	assert.InDelta(t, 2.2945, p.Lon, 1e-9)
}

func TestSearch_EmptyQuerySkipsRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	})
	places, err := c.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestReverse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		if r.URL.Query().Get("lat") == "0" {
			w.Write([]byte(`{"error":"Unable to geocode"}`))
			return
		}
		w.Write([]byte(`{"place_id":9,"display_name":"Somewhere","lat":"10.5","lon":"20.25","address":{"town":"Smallville","state":"KS"}}`))
	})

	p, err := c.Reverse(context.Background(), 10.5, 20.25)
	require.NoError(t, err)
	assert.Equal(t, "Smallville", p.City)
	assert.Equal(t, "Somewhere", p.Location().Name)

	_, err = c.Reverse(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Reverse(context.Background(), 91, 0)
	assert.Error(t, err)
}

func TestUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Search(context.Background(), "x")
	assert.Error(t, err)
}
