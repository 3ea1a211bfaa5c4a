// Package permission answers "may this user access that resource".
//
// Checks run top to bottom and stop at the first grant:
//
//  1. a missing resource is denied
//  2. the creator is always granted, across companies too
//  3. direct assignees and team members are granted
//  4. board and objective membership rows grant access
//  5. a user outside the resource's company is denied (tenant gate)
//  6. access to the parent project or team grants access to the child
//  7. membership in any of the resource's teams grants access
//
// The tenant gate runs before parent and team grants, so a team shared with
// another company never opens its resources to outsiders.
//
// Company access is membership. User access is identity or a shared company.
package permission
