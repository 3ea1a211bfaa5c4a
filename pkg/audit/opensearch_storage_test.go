package audit_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/pkg/audit"
)

func newOpenSearch(t *testing.T, h http.HandlerFunc) *opensearch.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestOpenSearchStorage_Store(t *testing.T) {
	t.Parallel()

	var lines []string
	client := newOpenSearch(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/_bulk"), r.URL.Path)
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"took":1,"errors":false,"items":[]}`))
	})

	store := audit.NewOpenSearchStorage(client, "")
	err := store.Store(context.Background(), audit.Entry{
		ID:        "e1",
		CompanyID: ptr(10),
		Action:    audit.ActionSubscriptionFailed,
		Details:   audit.SubscriptionFailed{SubscriptionID: "s1", Reason: "card_declined"},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"index":{"_index":"kanbax-audit","_id":"e1"}}`, lines[0])

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &doc))
	assert.Equal(t, "subscription.failed", doc["action"])
	assert.InDelta(t, 10, doc["company_id"], 0)
}

func TestOpenSearchStorage_BulkItemErrors(t *testing.T) {
	t.Parallel()

	client := newOpenSearch(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"took":1,"errors":true,"items":[]}`))
	})
	store := audit.NewOpenSearchStorage(client, "audit")
	assert.Error(t, store.Store(context.Background(), expiredEntry("a")))
}

func TestOpenSearchStorage_Query(t *testing.T) {
	t.Parallel()

	var query map[string]any
	client := newOpenSearch(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audit/_search", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_source":{
			"id":"e9","actor_user_id":2,"company_id":10,"action":"member.added","team_id":5,
			"details":"{\"kind\":\"team\",\"resourceId\":5,\"userId\":8}",
			"created_at":"2026-01-02T00:00:00Z"}}]}}`))
	})

	store := audit.NewOpenSearchStorage(client, "audit")
	entries, err := store.Query(context.Background(), audit.Criteria{
		CompanyID: ptr(10),
		Involving: &audit.Involvement{UserID: 8, TeamIDs: []int64{5}},
		Limit:     100,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.MemberAdded{Kind: "team", ResourceID: 5, UserID: 8}, entries[0].Details)
	assert.Equal(t, int64(5), *entries[0].Subject.TeamID)

	assert.InDelta(t, 100, query["size"], 0)
	boolQuery := query["query"].(map[string]any)["bool"].(map[string]any)
	assert.Len(t, boolQuery["should"], 3)
	assert.Len(t, boolQuery["filter"], 1)
}
