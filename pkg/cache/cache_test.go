package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/kachra/pkg/cache"
)

func TestNilCacheIsEmpty(t *testing.T) {
	var c *cache.Cache
	ctx := context.Background()

	var out []string
	assert.False(t, c.Get(ctx, "products:all", &out))
	assert.NoError(t, c.Set(ctx, "products:all", []string{"AB12C"}, time.Minute))
	assert.Zero(t, c.Version(ctx, "products:version"))
	assert.NoError(t, c.Bump(ctx, "products:version"))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestUnreachableRedisMisses(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := cache.New(rdb, "test:", time.Minute)
	defer c.Close()

	ctx := context.Background()
	var out []string
	assert.False(t, c.Get(ctx, "products:all", &out))
	assert.Error(t, c.Set(ctx, "products:all", []string{"AB12C"}, 0))
	assert.Zero(t, c.Version(ctx, "products:version"))
	assert.Error(t, c.Bump(ctx, "products:version"))
	assert.Error(t, c.Ping(ctx))
}

func TestConnectFailsFast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := cache.Connect(ctx, "127.0.0.1:1", "", time.Minute)
	assert.Error(t, err)
	assert.Nil(t, c)
}
