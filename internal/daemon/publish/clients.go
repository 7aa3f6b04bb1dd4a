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

	redis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// GoRedisEvaler is the production Redis client wrapper implementing
// RedisEvaler on top of github.com/redis/go-redis/v9. Construct it with an
// address like "127.0.0.1:6379".
type GoRedisEvaler struct{ c *redis.Client }

func NewGoRedisEvaler(addr string) *GoRedisEvaler {
	opt := &redis.Options{Addr: addr}
	return &GoRedisEvaler{c: redis.NewClient(opt)}
}

func (g *GoRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return g.c.Eval(ctx, script, keys, args...).Result()
}

// Close releases the underlying client's connections.
func (g *GoRedisEvaler) Close() error { return g.c.Close() }

// LoggingRedisEvaler logs the Lua evaluation instead of running it. It lets
// a dry run select the Redis publisher without a real Redis. Not for
// production use.
type LoggingRedisEvaler struct{}

func (LoggingRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	log.WithFields(log.Fields{
		"script_len": len(script),
		"keys":       keys,
		"args":       args,
	}).Info("redis dry-run eval")
	return int64(1), nil
}
