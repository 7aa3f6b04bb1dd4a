// Copyright 2026 Esteban Alvarez. All Rights Reserved.
//
// Created: August 2026
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package publish

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"statagg"
)

// RedisEvaler abstracts the minimal surface we need from a Redis client.
// Implementations may wrap github.com/redis/go-redis/v9 (Cmdable.Eval) or
// any equivalent.
type RedisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// RedisPublisher mirrors the latest flushed value of every metric into a
// Redis hash so dashboards can read current values without a carbon query.
// Each batch is applied with a single Lua script per sample:
// HSET <hash> <name> "<value> <timestamp>" plus a TTL refresh on the hash,
// so an abandoned daemon's snapshot ages out on its own.
type RedisPublisher struct {
	client  RedisEvaler
	hashKey string
	ttl     time.Duration
}

// redisLuaScript stores one sample and refreshes the snapshot TTL.
const redisLuaScript = `
local hashKey = KEYS[1]
local field = ARGV[1]
local value = ARGV[2]
local ttlSeconds = tonumber(ARGV[3])
redis.call('HSET', hashKey, field, value)
if ttlSeconds and ttlSeconds > 0 then
  redis.call('EXPIRE', hashKey, ttlSeconds)
end
return 1
`

// NewRedisPublisher returns a publisher writing into hashKey. ttl bounds
// how long a stale snapshot survives; 0 or less defaults to one hour.
func NewRedisPublisher(client RedisEvaler, hashKey string, ttl time.Duration) *RedisPublisher {
	if hashKey == "" {
		hashKey = "statagg:latest"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisPublisher{client: client, hashKey: hashKey, ttl: ttl}
}

// PublishBatch stores every sample's latest value. The first script error
// aborts the batch; re-publishing the same batch is harmless since HSET is
// last-write-wins.
func (r *RedisPublisher) PublishBatch(ctx context.Context, samples []statagg.Sample) error {
	ttlSeconds := int(r.ttl.Seconds())
	for _, s := range samples {
		value := strconv.FormatFloat(s.Value, 'g', -1, 64) + " " + strconv.FormatInt(s.Timestamp, 10)
		args := []interface{}{s.Name, value, ttlSeconds}
		if _, err := r.client.Eval(ctx, redisLuaScript, []string{r.hashKey}, args...); err != nil {
			return fmt.Errorf("publish: redis eval metric=%s: %w", s.Name, err)
		}
	}
	return nil
}
