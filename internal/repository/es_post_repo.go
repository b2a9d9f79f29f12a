package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

type esPostRepository struct {
	client *elasticsearch.Client
	index  string
}

// NewESPostRepository creates the post index repository.
func NewESPostRepository(client *elasticsearch.Client, index string) PostIndex {
	return &esPostRepository{client: client, index: index}
}

func (r *esPostRepository) Index(ctx context.Context, p *domain.Post) error {
	body, err := encodeBody(p)
	if err != nil {
		return err
	}
	res, err := r.client.Index(r.index, body,
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(p.ESID),
		r.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to index post: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return esError("index post", res)
	}
	return nil
}

func (r *esPostRepository) Get(ctx context.Context, esID string) (*domain.Post, error) {
	res, err := r.client.Get(r.index, esID, r.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		return nil, esError("get post", res)
	}

	var doc esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !doc.Found {
		return nil, ErrNotFound
	}
	var p domain.Post
	if err := json.Unmarshal(doc.Source, &p); err != nil {
		return nil, fmt.Errorf("failed to decode post: %w", err)
	}
	p.ESID = esID
	return &p, nil
}

// Delete treats a missing document as deleted so it can be retried.
func (r *esPostRepository) Delete(ctx context.Context, esID string) error {
	res, err := r.client.Delete(r.index, esID,
		r.client.Delete.WithContext(ctx),
		r.client.Delete.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return esError("delete post", res)
	}
	return nil
}

func (r *esPostRepository) search(ctx context.Context, body map[string]interface{}) (*esResponse, error) {
	reader, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(reader),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, esError("search posts", res)
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func (r *esPostRepository) page(ctx context.Context, body map[string]interface{}, size int) (*domain.PostPage, error) {
	result, err := r.search(ctx, body)
	if err != nil {
		return nil, err
	}

	page := &domain.PostPage{Posts: make([]domain.Post, 0, len(result.Hits.Hits))}
	for _, hit := range result.Hits.Hits {
		var p domain.Post
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			continue
		}
		p.ESID = hit.ID
		page.Posts = append(page.Posts, p)
	}
	// A full page may have a successor; hand back the last sort tuple.
	if n := len(result.Hits.Hits); n > 0 && n == size {
		page.Next = cursorFromSort(result.Hits.Hits[n-1].Sort)
	}
	return page, nil
}

func (r *esPostRepository) Search(ctx context.Context, term string, cursor *domain.Cursor, size int) (*domain.PostPage, error) {
	return r.page(ctx, buildPostSearchQuery(term, cursor, size), size)
}

func (r *esPostRepository) ByAuthors(ctx context.Context, userIDs []string, cursor *domain.Cursor, size int) (*domain.PostPage, error) {
	if len(userIDs) == 0 {
		return &domain.PostPage{Posts: []domain.Post{}}, nil
	}
	return r.page(ctx, buildAuthorsQuery(userIDs, cursor, size), size)
}

func (r *esPostRepository) UpdateAuthor(ctx context.Context, author domain.PostAuthor) (int64, error) {
	body, err := encodeBody(buildUpdateAuthorQuery(author))
	if err != nil {
		return 0, err
	}
	res, err := r.client.UpdateByQuery([]string{r.index},
		r.client.UpdateByQuery.WithContext(ctx),
		r.client.UpdateByQuery.WithBody(body),
		r.client.UpdateByQuery.WithConflicts("proceed"),
		r.client.UpdateByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update posts by author: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, esError("update by query", res)
	}

	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Updated, nil
}

func (r *esPostRepository) TopHashtags(ctx context.Context, prefix string, size int) ([]string, error) {
	result, err := r.search(ctx, buildHashtagAggQuery(prefix, size))
	if err != nil {
		return nil, err
	}
	agg := result.Aggregations["hashtags"]
	out := make([]string, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		out = append(out, b.Key)
	}
	return out, nil
}
