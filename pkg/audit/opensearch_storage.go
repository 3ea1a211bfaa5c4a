package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
)

// DefaultOpenSearchIndex is the index used when none is given.
const DefaultOpenSearchIndex = "kanbax-audit"

// OpenSearchStorage indexes entries for search. Writes go through the bulk
// API with the entry id as document id, so retried writes do not duplicate.
type OpenSearchStorage struct {
	client *opensearch.Client
	index  string
}

var _ Storage = (*OpenSearchStorage)(nil)

func NewOpenSearchStorage(client *opensearch.Client, index string) *OpenSearchStorage {
	if client == nil {
		panic("audit: nil opensearch client")
	}
	if index == "" {
		index = DefaultOpenSearchIndex
	}
	return &OpenSearchStorage{client: client, index: index}
}

const openSearchMapping = `{
  "mappings": {
    "properties": {
      "id":             {"type": "keyword"},
      "actor_user_id":  {"type": "long"},
      "target_user_id": {"type": "long"},
      "company_id":     {"type": "long"},
      "action":         {"type": "keyword"},
      "board_id":       {"type": "long"},
      "project_id":     {"type": "long"},
      "team_id":        {"type": "long"},
      "task_id":        {"type": "long"},
      "details":        {"type": "text", "index": false},
      "created_at":     {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with its mapping. An existing index is left alone.
func (s *OpenSearchStorage) EnsureIndex(ctx context.Context) error {
	exists, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("audit: check opensearch index: %w", err)
	}
	exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	res, err := s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(openSearchMapping)),
	)
	if err != nil {
		return fmt.Errorf("audit: create opensearch index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("audit: create opensearch index: %s", res.Status())
	}
	return nil
}

func (s *OpenSearchStorage) Store(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, e := range entries {
		r, err := toRecord(e)
		if err != nil {
			return err
		}
		meta := map[string]any{"index": map[string]any{"_index": s.index, "_id": r.ID}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
	}

	res, err := s.client.Bulk(&body, s.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("audit: opensearch bulk: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("audit: opensearch bulk: %s", res.Status())
	}

	var out struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("audit: decode opensearch bulk response: %w", err)
	}
	if out.Errors {
		return errors.New("audit: opensearch bulk reported item failures")
	}
	return nil
}

func (s *OpenSearchStorage) Query(ctx context.Context, c Criteria) ([]Entry, error) {
	body, err := json.Marshal(openSearchQuery(c))
	if err != nil {
		return nil, err
	}
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("audit: opensearch search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("audit: opensearch search: %s", res.Status())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Source record `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("audit: decode opensearch search: %w", err)
	}

	entries := make([]Entry, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		e, err := h.Source.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func openSearchQuery(c Criteria) map[string]any {
	boolQuery := map[string]any{}
	if c.CompanyID != nil {
		boolQuery["filter"] = []any{
			map[string]any{"term": map[string]any{"company_id": *c.CompanyID}},
		}
	} else {
		boolQuery["must_not"] = []any{
			map[string]any{"exists": map[string]any{"field": "company_id"}},
		}
	}

	if c.Involving != nil {
		terms := involvementTerms(c.Involving)
		should := make([]any, 0, len(terms))
		for _, field := range slices.Sorted(maps.Keys(terms)) {
			should = append(should, map[string]any{"terms": map[string]any{field: terms[field]}})
		}
		boolQuery["should"] = should
		boolQuery["minimum_should_match"] = 1
	}

	return map[string]any{
		"size":  c.EffectiveLimit(),
		"query": map[string]any{"bool": boolQuery},
		"sort": []any{
			map[string]any{"created_at": "desc"},
			map[string]any{"id": "desc"},
		},
	}
}
