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

// Package main is the entry point for stataggd, the statsd-style metric
// aggregation daemon.
//
// The daemon accepts metric lines over UDP and TCP, routes them through a
// configurable rule chain, aggregates them in memory with compact streaming
// estimators (counters, gauges, timers, meters, distinct counts), and every
// flush interval ships the aggregated samples downstream: sharded across
// carbon hosts via consistent hashing, mirrored into Redis, or simply
// logged. An HTTP endpoint exposes status, the live metric list, and
// Prometheus metrics about the daemon itself.
//
// This file wires the pieces together and manages graceful shutdown: on
// SIGINT/SIGTERM the listeners stop first, then the flusher runs a final
// flush so nothing aggregated since the last tick is lost.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"statagg/internal/daemon/api"
	"statagg/internal/daemon/config"
	"statagg/internal/daemon/core"
	"statagg/internal/daemon/publish"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional; defaults plus STATAGG_* env vars apply without it)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("log_level", cfg.LogLevel).Warn("unknown log level, keeping info")
	}

	publisher, cleanup, err := buildPublisher(cfg)
	if err != nil {
		log.WithError(err).Fatal("could not build publisher")
	}
	defer cleanup()

	router, err := core.NewRouter(cfg.Rules)
	if err != nil {
		log.WithError(err).Fatal("could not parse router rules")
	}
	defer router.Close()

	registry := core.NewRegistry(cfg.Prefix, nil)
	processor := core.NewProcessor(registry)

	flusher := core.NewFlusher(registry, publisher, nil,
		cfg.FlushInterval, cfg.EvictionAge, cfg.EvictionInterval)
	flusher.Start()

	listener, err := core.NewListener(processor, router, cfg.ListenUDP, cfg.ListenTCP)
	if err != nil {
		log.WithError(err).Fatal("could not bind listeners")
	}
	listener.Start()

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		mux := http.NewServeMux()
		api.NewServer(registry).RegisterRoutes(mux)
		httpServer = &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
		go func() {
			log.WithField("addr", cfg.HTTPAddr).Info("introspection server listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Fatal("introspection server failed")
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")

	// Stop accepting new lines first, then flush what is in memory.
	listener.Stop()
	flusher.Stop()

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("introspection server shutdown failed")
		}
	}

	log.Info("daemon stopped")
}

// buildPublisher assembles the configured downstream sinks. With nothing
// configured the daemon still runs, logging its flushes.
func buildPublisher(cfg *config.Config) (publish.Publisher, func(), error) {
	var publishers []publish.Publisher
	var cleanups []func()

	if len(cfg.CarbonHosts) > 0 {
		graphite, err := publish.NewGraphitePublisher(cfg.CarbonHosts, publish.GraphiteOptions{
			ReplicaCount: cfg.ReplicaCount,
			Replicate:    cfg.Replicate,
		})
		if err != nil {
			return nil, nil, err
		}
		publishers = append(publishers, graphite)
		cleanups = append(cleanups, graphite.Close)
	}

	if cfg.RedisAddr != "" {
		client := publish.NewGoRedisEvaler(cfg.RedisAddr)
		publishers = append(publishers, publish.NewRedisPublisher(client, cfg.RedisHash, cfg.RedisTTL))
		cleanups = append(cleanups, func() { _ = client.Close() })
	}

	if cfg.FilePath != "" {
		file, err := publish.NewFilePublisher(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		publishers = append(publishers, file)
		cleanups = append(cleanups, func() { _ = file.Close() })
	}

	if cfg.LogSamples || len(publishers) == 0 {
		publishers = append(publishers, publish.LogPublisher{})
	}

	cleanup := func() {
		for _, c := range cleanups {
			c()
		}
	}
	return publish.NewMultiPublisher(publishers...), cleanup, nil
}
