package mongo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/kanbax/pkg/mongo"
)

func TestConnect_RequiresURL(t *testing.T) {
	t.Parallel()
	_, err := mongo.ConnectDatabase(context.Background(), mongo.Config{Database: "kanbax"})
	assert.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)
}
