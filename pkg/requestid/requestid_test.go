package requestid_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/pkg/logger"
	"github.com/dmitrymomot/kanbax/pkg/requestid"
)

func serve(t *testing.T, header string) (ctxID, respID string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return ctxID, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("reuses a valid id", func(t *testing.T) {
		t.Parallel()
		ctxID, respID := serve(t, "req_42-abc")
		assert.Equal(t, "req_42-abc", ctxID)
		assert.Equal(t, "req_42-abc", respID)
	})

	t.Run("mints an id when missing", func(t *testing.T) {
		t.Parallel()
		ctxID, respID := serve(t, "")
		assert.Len(t, ctxID, 36)
		assert.Equal(t, ctxID, respID)
	})

	for name, bad := range map[string]string{
		"spaces":     "a b",
		"injection":  "id\r\nX-Admin: 1",
		"too long":   strings.Repeat("a", 129),
		"separators": "a/b",
	} {
		t.Run("replaces "+name, func(t *testing.T) {
			t.Parallel()
			ctxID, respID := serve(t, bad)
			assert.NotEqual(t, bad, ctxID)
			assert.Equal(t, ctxID, respID)
		})
	}
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	log.InfoContext(requestid.WithContext(context.Background(), "req-1"), "handled")
	log.InfoContext(context.Background(), "background")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"request_id":"req-1"`)
	assert.NotContains(t, lines[1], "request_id")
	assert.Empty(t, requestid.FromContext(context.Background()))
}
