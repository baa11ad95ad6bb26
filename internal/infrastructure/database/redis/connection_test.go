package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/pkg/logger"
)

func testConfig(host, port string) *config.Config {
	return &config.Config{Redis: config.RedisConfig{Host: host, Port: port, PoolSize: 2}}
}

func TestNewConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewConnection(testConfig(mr.Host(), mr.Port()), logger.Discard())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Health(context.Background()))
	require.NoError(t, client.GetClient().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	mr.Close()
	assert.Error(t, client.Health(context.Background()))
}

func TestNewConnection_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err := NewConnection(testConfig(host, port), logger.Discard())
	assert.Error(t, err)
}
