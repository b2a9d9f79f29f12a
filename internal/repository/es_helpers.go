package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// esResponse is the generic Elasticsearch search response structure.
type esResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string            `json:"_id"`
			Source json.RawMessage   `json:"_source"`
			Sort   []json.RawMessage `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []struct {
			Key      string `json:"key"`
			DocCount int64  `json:"doc_count"`
		} `json:"buckets"`
	} `json:"aggregations"`
}

type esGetResponse struct {
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

func encodeBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	return bytes.NewReader(data), nil
}

func esError(op string, res *esapi.Response) error {
	return fmt.Errorf("elasticsearch %s error: %s", op, res.String())
}

// EnsureIndices creates the post and profile indices with their mappings
// when they do not exist yet.
func EnsureIndices(ctx context.Context, client *elasticsearch.Client, postsIndex, profilesIndex string) error {
	for name, mapping := range map[string]map[string]interface{}{
		postsIndex:    postsMapping,
		profilesIndex: profilesMapping,
	} {
		if err := ensureIndex(ctx, client, name, mapping); err != nil {
			return err
		}
	}
	return nil
}

func ensureIndex(ctx context.Context, client *elasticsearch.Client, name string, mapping map[string]interface{}) error {
	res, err := client.Indices.Exists([]string{name}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", name, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := encodeBody(mapping)
	if err != nil {
		return err
	}
	res, err = client.Indices.Create(name,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(body),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return esError("create index", res)
	}
	return nil
}
