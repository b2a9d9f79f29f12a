// Package geocode looks places up through a Nominatim-compatible service.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/StormyOasis/linsta-sub001/internal/config"
	"github.com/StormyOasis/linsta-sub001/internal/domain"
	pkglog "github.com/StormyOasis/linsta-sub001/pkg/log"
)

var ErrNotFound = errors.New("place not found")

// Client queries the geocoder and caches answers in Redis when a client is
// given.
type Client struct {
	http    *http.Client
	rdb     *redis.Client
	cfg     config.GeocodeConfig
	baseURL string
}

func NewClient(cfg config.GeocodeConfig, rdb *redis.Client) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 8
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		rdb:     rdb,
		cfg:     cfg,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

type nominatimPlace struct {
	PlaceID     json.Number `json:"place_id"`
	DisplayName string      `json:"display_name"`
	Name        string      `json:"name"`
	Lat         string      `json:"lat"`
	Lon         string      `json:"lon"`
	Address     struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Country     string `json:"country"`
	} `json:"address"`
	Error string `json:"error"`
}

func (p nominatimPlace) toPlace() domain.Place {
	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lon, _ := strconv.ParseFloat(p.Lon, 64)

	city := p.Address.City
	if city == "" {
		city = p.Address.Town
	}
	if city == "" {
		city = p.Address.Village
	}
	street := strings.TrimSpace(p.Address.HouseNumber + " " + p.Address.Road)

	return domain.Place{
		PlaceID:     p.PlaceID.String(),
		DisplayName: p.DisplayName,
		Name:        p.Name,
		Street:      street,
		City:        city,
		State:       p.Address.State,
		Country:     p.Address.Country,
		Lat:         lat,
		Lon:         lon,
	}
}

// Search returns places matching a free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Place{}, nil
	}
	key := "geocode:search:" + strings.ToLower(query)

	var places []domain.Place
	if c.cached(ctx, key, &places) {
		return places, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(c.cfg.Limit))

	var raw []nominatimPlace
	if err := c.get(ctx, "/search", params, &raw); err != nil {
		return nil, err
	}
	places = make([]domain.Place, 0, len(raw))
	for _, p := range raw {
		places = append(places, p.toPlace())
	}

	c.store(ctx, key, places)
	return places, nil
}

// Reverse returns the place at a coordinate.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*domain.Place, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinate out of range: %f,%f", lat, lon)
	}
	// About one metre of precision is plenty for a cache key.
	key := fmt.Sprintf("geocode:reverse:%.5f,%.5f", lat, lon)

	var place domain.Place
	if c.cached(ctx, key, &place) {
		return &place, nil
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")

	var raw nominatimPlace
	if err := c.get(ctx, "/reverse", params, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, ErrNotFound
	}
	place = raw.toPlace()

	c.store(ctx, key, place)
	return &place, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocode returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode geocode response: %w", err)
	}
	return nil
}

func (c *Client) cached(ctx context.Context, key string, out interface{}) bool {
	if c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Str("key", key).Msg("geocode cache read failed")
		}
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (c *Client) store(ctx context.Context, key string, v interface{}) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.cfg.CacheTTL).Err(); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str("key", key).Msg("geocode cache write failed")
	}
}
