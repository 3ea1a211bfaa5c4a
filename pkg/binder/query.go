package binder

import "net/http"

// Query binds URL query parameters by the `query` struct tag. Slices accept
// repeated or comma-separated values; pointers mark optional fields.
//
//	type ActivityRequest struct {
//		Limit int `query:"limit"`
//	}
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrFailedToParseQuery)
	}
}
