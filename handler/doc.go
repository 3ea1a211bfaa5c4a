// Package handler binds HTTP requests into typed structs and renders typed
// JSON responses.
//
// A HandlerFunc receives a Context and the bound request and returns a
// Response. Wrap turns it into an http.HandlerFunc, running the configured
// binders first and routing bind or render failures to an ErrorHandler:
//
//	type TierRequest struct {
//		UserID       int64  `path:"userID" json:"-"`
//		Tier         string `json:"tier"`
//		BillingCycle string `json:"billingCycle"`
//	}
//
//	r.Post("/admin/users/{userID}/tier", handler.Wrap(setTier,
//		handler.WithBinders[TierRequest](binder.Path(chi.URLParam), binder.JSON()),
//	))
//
// JSON bodies share one envelope, {"data":...,"meta":...,"error":{...}}.
// JSONError maps HTTPError to its status and key and ValidationError to 422.
// Any other error renders as a generic 500 without its message.
package handler
