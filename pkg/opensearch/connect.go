package opensearch

import (
	"context"
	"errors"

	"github.com/opensearch-project/opensearch-go/v2"
)

// Connect creates a client and verifies the cluster answers.
func Connect(ctx context.Context, cfg Config) (*opensearch.Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, ErrNoAddresses
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, errors.Join(ErrClientInvalid, err)
	}
	if err := Healthcheck(client)(ctx); err != nil {
		return nil, err
	}
	return client, nil
}
