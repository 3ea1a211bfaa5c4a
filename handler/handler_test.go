package handler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/handler"
	"github.com/dmitrymomot/kanbax/pkg/binder"
)

type switchRequest struct {
	Tier  string `json:"tier"`
	Limit int    `query:"limit" json:"-"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var got handler.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestWrap(t *testing.T) {
	t.Parallel()

	echo := func(ctx handler.Context, req switchRequest) handler.Response {
		return handler.JSON(req)
	}

	t.Run("binds in order", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(echo, handler.WithBinders[switchRequest](binder.Query(), binder.JSON()))

		r := httptest.NewRequest(http.MethodPost, "/?limit=3", strings.NewReader(`{"tier":"free"}`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"tier": "free"}, decode(t, w).Data)
	})

	t.Run("not applicable binder is skipped", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(echo, handler.WithBinders[switchRequest](binder.JSON(), binder.Query()))

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/?limit=3", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bind failure is a bad request", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(echo, handler.WithBinders[switchRequest](binder.JSON()))

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"tier":`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decode(t, w).Error.Code)
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		var seen error
		h := handler.Wrap(
			func(handler.Context, switchRequest) handler.Response { return nil },
			handler.WithErrorHandler[switchRequest](func(ctx handler.Context, err error) {
				seen = err
				ctx.ResponseWriter().WriteHeader(http.StatusTeapot)
			}),
		)
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.ErrorIs(t, seen, handler.ErrNilResponse)
		assert.Equal(t, http.StatusTeapot, w.Code)
	})

	t.Run("decorators wrap outermost first", func(t *testing.T) {
		t.Parallel()
		var order []string
		trace := func(name string) handler.Decorator[switchRequest] {
			return func(next handler.HandlerFunc[switchRequest]) handler.HandlerFunc[switchRequest] {
				return func(ctx handler.Context, req switchRequest) handler.Response {
					order = append(order, name)
					return next(ctx, req)
				}
			}
		}
		h := handler.Wrap(echo, handler.WithDecorators(trace("outer"), trace("inner")))
		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, []string{"outer", "inner"}, order)
	})
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"http error", handler.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"wrapped http error", fmt.Errorf("switch: %w", handler.ErrConflict), http.StatusConflict, "conflict"},
		{"custom key", handler.NewHTTPError(http.StatusPaymentRequired, "plan_required"), http.StatusPaymentRequired, "plan_required"},
		{"internal error hides message", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			require.NoError(t, handler.JSONError(tt.err).Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))

			assert.Equal(t, tt.status, w.Code)
			got := decode(t, w)
			require.NotNil(t, got.Error)
			assert.Equal(t, tt.code, got.Error.Code)
			assert.NotContains(t, w.Body.String(), "relation")
		})
	}

	t.Run("validation error", func(t *testing.T) {
		t.Parallel()
		verr := handler.NewValidationError()
		verr.Add("tier", "is required")

		w := httptest.NewRecorder()
		require.NoError(t, handler.JSONError(verr).Render(w, httptest.NewRequest(http.MethodPost, "/", nil)))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		got := decode(t, w)
		assert.Equal(t, "validation_error", got.Error.Code)
		assert.Equal(t, []string{"is required"}, got.Error.Details["tier"])
	})

	t.Run("status and meta options", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		resp := handler.JSON(
			handler.JSONResponse{Data: map[string]int{"currentCount": 1}, Error: &handler.ErrorDetail{Code: "limit_exceeded"}},
			handler.WithJSONStatus(http.StatusForbidden),
			handler.WithJSONMeta(map[string]any{"plan": "free"}),
		)
		require.NoError(t, resp.Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))

		assert.Equal(t, http.StatusForbidden, w.Code)
		got := decode(t, w)
		assert.Equal(t, "limit_exceeded", got.Error.Code)
		assert.Equal(t, map[string]any{"plan": "free"}, got.Meta)
	})
}

func TestEmpty(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	require.NoError(t, handler.Empty().Render(w, httptest.NewRequest(http.MethodDelete, "/", nil)))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestContextValue(t *testing.T) {
	t.Parallel()
	key := handler.NewContextKey("user_id")
	assert.Equal(t, "user_id", key.String())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(contextWith(r, key, int64(7)))
	ctx := handler.NewContext(httptest.NewRecorder(), r)

	assert.Equal(t, int64(7), handler.ContextValue[int64](ctx, key))
	assert.Empty(t, handler.ContextValue[string](ctx, key))

	_, ok := handler.ContextValueOK[int64](ctx, handler.NewContextKey("other"))
	assert.False(t, ok)
}
