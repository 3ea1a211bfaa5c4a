// Package binder fills request structs from JSON bodies, query strings and
// route parameters.
//
// Each binder matches the handler.Bind signature and only touches the fields
// it owns: JSON decodes the body by `json` tags, Query sets fields tagged
// `query`, Path sets fields tagged `path`. Several binders can feed one
// struct:
//
//	type CompanyTierRequest struct {
//		CompanyID    int64  `path:"companyID" json:"-"`
//		Tier         string `json:"tier"`
//		BillingCycle string `json:"billingCycle"`
//	}
//
// Every failure wraps ErrBindFailed, so handlers can answer 400 without
// inspecting the cause. JSON returns ErrBinderNotApplicable for GET and
// HEAD, which handler.Wrap treats as "skip".
package binder
