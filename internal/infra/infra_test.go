package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClientPings(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), "fxwallet-test")
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "fxwallet-test", client.Options().ClientName)
}

func TestNewRedisClientRejectsEmptyURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "", "fxwallet")
	assert.Error(t, err)
}

func TestNewPostgresPoolRejectsEmptyURL(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), "")
	assert.Error(t, err)
}

func TestNewKafkaWriter(t *testing.T) {
	_, err := NewKafkaWriter(nil, "wallet.balance_adjusted")
	assert.Error(t, err)

	w, err := NewKafkaWriter([]string{"localhost:9092"}, "wallet.balance_adjusted")
	require.NoError(t, err)
	assert.Equal(t, "wallet.balance_adjusted", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
