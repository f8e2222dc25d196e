package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezbake/ezbake-image-frack/common/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("test")
	require.NoError(t, err)
	return cfg
}

func TestSetupMemoryTopology(t *testing.T) {
	ctx := context.Background()

	components, err := Setup(ctx, "test", WithCustomConfig(testConfig(t)))
	require.NoError(t, err)
	defer components.Shutdown(ctx)

	assert.NotNil(t, components.Images)
	assert.NotNil(t, components.Queue)
	assert.NotNil(t, components.Artifacts)
	assert.Nil(t, components.Redis)
	require.NoError(t, components.Health(ctx))
}

func TestSetupRedisTopology(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Store.Backend = "redis"
	cfg.Queue.Type = "redis"
	cfg.Redis.Addr = mr.Addr()

	components, err := Setup(ctx, "test", WithCustomConfig(cfg))
	require.NoError(t, err)
	defer components.Shutdown(ctx)

	assert.NotNil(t, components.Redis)
	assert.NotNil(t, components.Images)
	require.NoError(t, components.Health(ctx))
}

func TestSetupWithoutStoreAndQueue(t *testing.T) {
	ctx := context.Background()

	components, err := Setup(ctx, "test", WithCustomConfig(testConfig(t)), WithoutStore(), WithoutQueue())
	require.NoError(t, err)
	defer components.Shutdown(ctx)

	assert.Nil(t, components.Images)
	assert.Nil(t, components.Queue)
}

func TestSetupRejectsUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "redis"
	cfg.Redis.Addr = "127.0.0.1:1" // nothing listens here

	_, err := Setup(context.Background(), "test", WithCustomConfig(cfg))
	require.Error(t, err)
}
