// Package entitlement decides whether a scope may create more of a resource
// or use a feature.
//
// A Scope is either a company (usage summed over every member) or a user
// without a company. The governing tier comes from the company's payment
// record or the user's own subscription fields; a lapsed expiry resolves to
// free and fires the ExpiryHook so the caller can persist the change.
//
//	engine := entitlement.NewEngine(repo, catalog, entitlement.WithLogger(log))
//	if err := engine.Check(ctx, scope, plan.ResourceBoards); err != nil {
//		var denial *entitlement.LimitError
//		errors.As(err, &denial) // render upgrade prompt
//	}
//
// Checks fail open: when counts or plans cannot be read the operation is
// allowed, the error logged, and kanbax_entitlement_fail_open_total bumped.
// Feature checks and the team-assignment gate resolve to false instead.
package entitlement
