package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

type esProfileRepository struct {
	client *elasticsearch.Client
	index  string
}

// NewESProfileRepository creates the profile index repository. Documents
// are keyed by user id.
func NewESProfileRepository(client *elasticsearch.Client, index string) ProfileIndex {
	return &esProfileRepository{client: client, index: index}
}

func (r *esProfileRepository) Index(ctx context.Context, p *domain.Profile) error {
	body, err := encodeBody(p)
	if err != nil {
		return err
	}
	res, err := r.client.Index(r.index, body,
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(p.UserID),
		r.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to index profile: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return esError("index profile", res)
	}
	return nil
}

func (r *esProfileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	res, err := r.client.Get(r.index, userID, r.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		return nil, esError("get profile", res)
	}

	var doc esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !doc.Found {
		return nil, ErrNotFound
	}
	var p domain.Profile
	if err := json.Unmarshal(doc.Source, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

func (r *esProfileRepository) Delete(ctx context.Context, userID string) error {
	res, err := r.client.Delete(r.index, userID,
		r.client.Delete.WithContext(ctx),
		r.client.Delete.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return esError("delete profile", res)
	}
	return nil
}

func (r *esProfileRepository) Search(ctx context.Context, term string, size int) ([]domain.Profile, error) {
	body, err := encodeBody(buildProfileSearchQuery(term, size))
	if err != nil {
		return nil, err
	}
	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, esError("search profiles", res)
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	profiles := make([]domain.Profile, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var p domain.Profile
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
