package opensearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2"
)

// Healthcheck reads the cluster health. Yellow still accepts audit writes;
// red does not.
func Healthcheck(client *opensearch.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := client.Cluster.Health(client.Cluster.Health.WithContext(ctx))
		if err != nil {
			return errors.Join(ErrClusterUnhealthy, err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("%w: %s", ErrClusterUnhealthy, res.Status())
		}

		var health struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
			return errors.Join(ErrClusterUnhealthy, err)
		}
		if health.Status == "red" {
			return fmt.Errorf("%w: status red", ErrClusterUnhealthy)
		}
		return nil
	}
}
