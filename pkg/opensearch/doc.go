// Package opensearch creates an OpenSearch client and exposes a readiness check.
// The audit trail mirrors entries into an index for search.
package opensearch
