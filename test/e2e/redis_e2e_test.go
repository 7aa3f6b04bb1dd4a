//go:build e2e

package e2e

import (
	"context"
	"strings"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"statagg"
	"statagg/internal/daemon/publish"
)

// TestRedisPublisherE2E verifies the real Redis path: a flushed batch lands
// in the configured hash with "value timestamp" fields and a TTL. Requires a
// Redis at 127.0.0.1:6379.
func TestRedisPublisherE2E(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping: Redis not reachable on 127.0.0.1:6379: %v", err)
	}

	hashKey := "statagg:e2e:latest"
	require.NoError(t, rc.Del(context.Background(), hashKey).Err())
	t.Cleanup(func() { _ = rc.Del(context.Background(), hashKey).Err() })

	evaler := publish.NewGoRedisEvaler("127.0.0.1:6379")
	defer evaler.Close()
	pub := publish.NewRedisPublisher(evaler, hashKey, 10*time.Minute)

	batch := []statagg.Sample{
		{Name: "stats.gorets.count", Value: 7, Timestamp: 1700000000},
		{Name: "stats.response.time.mean", Value: 50.5, Timestamp: 1700000000},
	}
	require.NoError(t, pub.PublishBatch(context.Background(), batch))

	got, err := rc.HGet(context.Background(), hashKey, "stats.gorets.count").Result()
	require.NoError(t, err)
	require.Equal(t, "7 1700000000", got)

	got, err = rc.HGet(context.Background(), hashKey, "stats.response.time.mean").Result()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "50.5 "), "unexpected field value: %s", got)

	ttl, err := rc.TTL(context.Background(), hashKey).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, 10*time.Minute)
}

// TestRedisPublisherE2E_LatestWins publishes the same metric twice and
// asserts the hash holds the most recent flush only.
func TestRedisPublisherE2E_LatestWins(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping: Redis not reachable on 127.0.0.1:6379: %v", err)
	}

	hashKey := "statagg:e2e:latestwins"
	require.NoError(t, rc.Del(context.Background(), hashKey).Err())
	t.Cleanup(func() { _ = rc.Del(context.Background(), hashKey).Err() })

	evaler := publish.NewGoRedisEvaler("127.0.0.1:6379")
	defer evaler.Close()
	pub := publish.NewRedisPublisher(evaler, hashKey, time.Hour)

	require.NoError(t, pub.PublishBatch(context.Background(),
		[]statagg.Sample{{Name: "stats.gorets.count", Value: 3, Timestamp: 100}}))
	require.NoError(t, pub.PublishBatch(context.Background(),
		[]statagg.Sample{{Name: "stats.gorets.count", Value: 9, Timestamp: 110}}))

	got, err := rc.HGet(context.Background(), hashKey, "stats.gorets.count").Result()
	require.NoError(t, err)
	require.Equal(t, "9 110", got)
}
