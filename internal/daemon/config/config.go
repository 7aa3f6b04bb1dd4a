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

// Package config loads daemon configuration from an optional YAML file with
// STATAGG_* environment overrides. Defaults are set in code so an empty
// deployment runs with just a log publisher.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every knob of the daemon.
type Config struct {
	// ListenUDP is the statsd datagram address; empty disables UDP.
	ListenUDP string `mapstructure:"listen_udp"`
	// ListenTCP is the statsd stream address; empty disables TCP.
	ListenTCP string `mapstructure:"listen_tcp"`
	// HTTPAddr serves /status, /list_metrics and /metrics; empty disables.
	HTTPAddr string `mapstructure:"http_addr"`

	// Prefix is prepended (dot-joined) to every emitted metric name.
	Prefix string `mapstructure:"prefix"`

	FlushInterval    time.Duration `mapstructure:"flush_interval"`
	EvictionAge      time.Duration `mapstructure:"eviction_age"`
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`

	// CarbonHosts are "host:port" endpoints; metrics are sharded across
	// them by consistent hashing. Empty means no graphite publishing.
	CarbonHosts []string `mapstructure:"carbon_hosts"`
	// ReplicaCount is the ring's virtual node count; 0 uses the default.
	ReplicaCount int `mapstructure:"replica_count"`
	// Replicate fans every sample out to all carbon hosts.
	Replicate bool `mapstructure:"replicate"`

	// RedisAddr enables mirroring latest values into Redis when non-empty.
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisHash string        `mapstructure:"redis_hash"`
	RedisTTL  time.Duration `mapstructure:"redis_ttl"`

	// FilePath appends every flushed sample to a plaintext log file when
	// non-empty.
	FilePath string `mapstructure:"file_path"`

	// LogSamples prints every flushed sample; the default sink when no
	// carbon host is configured.
	LogSamples bool `mapstructure:"log_samples"`

	// Rules is the router rule chain, one "condition => target" per entry.
	Rules []string `mapstructure:"rules"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration. path may be empty, in which case only defaults
// and STATAGG_* environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_udp", ":8125")
	v.SetDefault("listen_tcp", "")
	v.SetDefault("http_addr", ":8126")
	v.SetDefault("prefix", "statagg")
	v.SetDefault("flush_interval", 10*time.Second)
	v.SetDefault("eviction_age", time.Hour)
	v.SetDefault("eviction_interval", 10*time.Minute)
	v.SetDefault("carbon_hosts", []string{})
	v.SetDefault("replica_count", 0)
	v.SetDefault("replicate", false)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_hash", "statagg:latest")
	v.SetDefault("redis_ttl", time.Hour)
	v.SetDefault("file_path", "")
	v.SetDefault("log_samples", false)
	v.SetDefault("rules", []string{})
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("statagg")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ListenUDP == "" && c.ListenTCP == "" {
		return fmt.Errorf("config: at least one of listen_udp and listen_tcp must be set")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("config: flush_interval must be positive, got %s", c.FlushInterval)
	}
	if c.EvictionAge > 0 && c.EvictionInterval <= 0 {
		return fmt.Errorf("config: eviction_interval must be positive when eviction_age is set")
	}
	return nil
}
