package opensearch

import "errors"

var (
	ErrNoAddresses      = errors.New("opensearch: OPENSEARCH_ADDRESSES is required for the audit index")
	ErrClientInvalid    = errors.New("opensearch: invalid audit index client configuration")
	ErrClusterUnhealthy = errors.New("opensearch: audit index cluster is unhealthy")
)
