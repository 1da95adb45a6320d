// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package http is the liaison translating the HTTP surface onto the index
// service. It owns no business logic.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrelsearch/kestrel/kestrel/index"
	"github.com/kestrelsearch/kestrel/pkg/logger"
)

const (
	readHeaderTimeout = 3 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// ServerOptions configures the liaison server.
type ServerOptions struct {
	Service  *index.Service
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer
	Addr     string
}

// Server serves the JSON API and the metrics endpoint.
type Server struct {
	svc *index.Service
	l   *logger.Logger
	srv *http.Server
}

// NewServer builds the router and binds it to opts.Addr.
func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger("liaison-http")
	}
	s := &Server{svc: opts.Service, l: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.health)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/disk", s.diskUsage)
		r.Post("/query/parse", s.parseQuery)
		r.Route("/indexes", func(r chi.Router) {
			r.Get("/", s.listIndexes)
			r.Post("/", s.createIndex)
			r.Route("/{index}", func(r chi.Router) {
				r.Get("/", s.indexInfo)
				r.Delete("/", s.deleteIndex)
				r.Put("/open", s.openIndex)
				r.Put("/close", s.closeIndex)
				r.Put("/refresh", s.refreshIndex)
				r.Post("/search", s.search)
				r.Route("/documents", func(r chi.Router) {
					r.Post("/", s.addDocument)
					r.Put("/", s.addOrUpdateDocument)
					r.Delete("/", s.deleteAllDocuments)
					r.Get("/{id}", s.getDocument)
					r.Delete("/{id}", s.deleteDocument)
				})
			})
		})
	})

	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Serve blocks serving requests until Shutdown or a listener error.
func (s *Server) Serve() error {
	s.l.Info().Str("addr", s.srv.Addr).Msg("liaison listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
