// Package billing mounts kanbax's plan and subscription HTTP routes.
//
// Routes (relative to the mount point):
//
//	GET  /plans                                    public plan catalog
//	POST /webhooks                                 provider callbacks
//	POST /subscription                             switch the caller's tier
//	GET  /usage                                    per-resource usage of the caller's scope
//	GET  /activity                                 the caller's visible activity feed
//	POST /admin/users/{userID}/tier                admin tier override for a user
//	POST /admin/companies/{companyID}/tier         admin tier override for a company
//	GET  /admin/companies/{companyID}/audit        company audit trail
//	POST /admin/companies/{companyID}/audit/archive export the trail to S3
//
// Authentication belongs to the host: every route except /plans and
// /webhooks calls Options.Identify. RequireQuota gates the host's own create
// routes:
//
//	r.With(svc.RequireQuota(plan.ResourceBoards)).Post("/boards", createBoard)
//
// A denied request gets 403 with code "limit_exceeded" and the
// entitlement.LimitError as data.
package billing
