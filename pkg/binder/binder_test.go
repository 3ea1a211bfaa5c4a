package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/pkg/binder"
)

type tierRequest struct {
	CompanyID    int64    `path:"companyID" json:"-"`
	Tier         string   `json:"tier"`
	BillingCycle string   `json:"billingCycle"`
	Limit        int      `query:"limit" json:"-"`
	Tags         []string `query:"tag" json:"-"`
	Dry          *bool    `query:"dry" json:"-"`
	ignored      string
}

func params(values map[string]string) func(*http.Request, string) string {
	return func(_ *http.Request, name string) string { return values[name] }
}

func TestJSON(t *testing.T) {
	t.Parallel()

	bind := binder.JSON()

	t.Run("decodes body", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"tier":"freelancer","billingCycle":"yearly"}`))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")

		var req tierRequest
		require.NoError(t, bind(r, &req))
		assert.Equal(t, "freelancer", req.Tier)
		assert.Equal(t, "yearly", req.BillingCycle)
	})

	t.Run("skips GET", func(t *testing.T) {
		t.Parallel()
		var req tierRequest
		err := bind(httptest.NewRequest(http.MethodGet, "/", nil), &req)
		assert.ErrorIs(t, err, binder.ErrBinderNotApplicable)
	})

	tests := []struct {
		name        string
		contentType string
		body        string
		want        error
	}{
		{"missing content type", "", `{}`, binder.ErrMissingContentType},
		{"wrong media type", "text/plain", `{}`, binder.ErrUnsupportedMediaType},
		{"unknown field", "application/json", `{"tier":"free","plan":"x"}`, binder.ErrFailedToParseJSON},
		{"trailing data", "application/json", `{"tier":"free"}{"tier":"x"}`, binder.ErrFailedToParseJSON},
		{"empty body", "application/json", ``, binder.ErrFailedToParseJSON},
		{"oversized", "application/json", `{"tier":"` + strings.Repeat("a", binder.DefaultMaxJSONSize) + `"}`, binder.ErrFailedToParseJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			var req tierRequest
			err := bind(r, &req)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, binder.ErrBindFailed)
		})
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/?limit=25&tag=a,b&tag=c&dry=yes&ignored=1", nil)
	var req tierRequest
	require.NoError(t, binder.Query()(r, &req))
	assert.Equal(t, 25, req.Limit)
	assert.Equal(t, []string{"a", "b", "c"}, req.Tags)
	require.NotNil(t, req.Dry)
	assert.True(t, *req.Dry)
	assert.Empty(t, req.ignored)

	r = httptest.NewRequest(http.MethodGet, "/?limit=many", nil)
	err := binder.Query()(r, &tierRequest{})
	assert.ErrorIs(t, err, binder.ErrFailedToParseQuery)
}

func TestPath(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/", nil)

	var req tierRequest
	require.NoError(t, binder.Path(params(map[string]string{"companyID": "42"}))(r, &req))
	assert.Equal(t, int64(42), req.CompanyID)

	err := binder.Path(params(map[string]string{"companyID": "acme"}))(r, &tierRequest{})
	assert.ErrorIs(t, err, binder.ErrFailedToParsePath)

	err = binder.Path(params(nil))(r, tierRequest{})
	assert.ErrorIs(t, err, binder.ErrBindFailed, "target must be a pointer")

	assert.ErrorIs(t, binder.Path(nil)(r, &req), binder.ErrBinderNotApplicable)
}
