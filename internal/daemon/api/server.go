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

// Package api implements the HTTP introspection surface of the daemon:
// process status, the list of live metrics, and the Prometheus endpoint.
package api

import (
	"encoding/json"
	"net/http"
	"path"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"statagg/internal/daemon/core"
)

// Server handles the introspection HTTP requests.
type Server struct {
	registry  *core.Registry
	startTime time.Time
}

// NewServer creates a server over the given registry.
func NewServer(registry *core.Registry) *Server {
	return &Server{registry: registry, startTime: time.Now()}
}

// RegisterRoutes sets up the HTTP routes on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/list_metrics", s.handleListMetrics)
	mux.Handle("/metrics", promhttp.Handler())
}

type statusResponse struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	LiveReporters int              `json:"live_reporters"`
	Totals        core.EventTotals `json:"totals"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusResponse{
		Status:        "OK",
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		LiveReporters: s.registry.Len(),
		Totals:        core.GetEventTotals(),
	})
}

type listMetricsResponse struct {
	Names []string `json:"names"`
}

// handleListMetrics lists registered metric names, optionally filtered by a
// glob in the "like" query parameter.
func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	glob := r.URL.Query().Get("like")
	if glob != "" {
		if _, err := path.Match(glob, ""); err != nil {
			http.Error(w, "bad glob pattern", http.StatusBadRequest)
			return
		}
	}

	names := s.registry.Names()
	if glob != "" {
		filtered := names[:0]
		for _, name := range names {
			if ok, _ := path.Match(glob, name); ok {
				filtered = append(filtered, name)
			}
		}
		names = filtered
	}
	sort.Strings(names)
	writeJSON(w, listMetricsResponse{Names: names})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

// ListenAndServe starts the introspection server on addr with sane
// timeouts. Graceful shutdown is handled by the caller owning the
// http.Server; this helper is for simple deployments.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("introspection server listening")
	return httpServer.ListenAndServe()
}
