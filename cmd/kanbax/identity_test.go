package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderIdentity(t *testing.T) {
	t.Parallel()

	identify := headerIdentity("X-Kanbax-User-ID")

	tests := []struct {
		name  string
		value string
		want  int64
		ok    bool
	}{
		{name: "valid", value: "42", want: 42, ok: true},
		{name: "padded", value: " 7 ", want: 7, ok: true},
		{name: "missing", value: ""},
		{name: "not a number", value: "alice"},
		{name: "zero", value: "0"},
		{name: "negative", value: "-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/billing/usage", nil)
			if tt.value != "" {
				r.Header.Set("X-Kanbax-User-ID", tt.value)
			}

			id, err := identify(r)
			if !tt.ok {
				assert.ErrorIs(t, err, errNoIdentity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}
