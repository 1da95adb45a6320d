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

// Command kestrel runs the standalone search engine: the index service behind
// the HTTP liaison.
package main

import (
	"context"
	"os"
	"syscall"

	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/kestrelsearch/kestrel/kestrel/index"
	liaisonhttp "github.com/kestrelsearch/kestrel/kestrel/liaison/http"
	"github.com/kestrelsearch/kestrel/pkg/config"
	"github.com/kestrelsearch/kestrel/pkg/logger"
)

type options struct {
	root           string
	addr           string
	loggingEnv     string
	loggingLevel   string
	queryCacheSize int
	watchRoot      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:           "kestrel",
		Short:         "Kestrel is a schema-based full-text search engine",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load("kestrel", cmd.Flags()); err != nil {
				return err
			}
			return logger.Init(logger.Logging{Env: opts.loggingEnv, Level: opts.loggingLevel})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(opts)
		},
	}
	cmd.Flags().StringVar(&opts.root, "root", "./data", "directory holding index data and definitions")
	cmd.Flags().StringVar(&opts.addr, "addr", ":17800", "listen address of the HTTP liaison")
	cmd.Flags().StringVar(&opts.loggingEnv, "logging-env", "prod", "logging environment: prod or dev")
	cmd.Flags().StringVar(&opts.loggingLevel, "logging-level", "info", "root logging level")
	cmd.Flags().IntVar(&opts.queryCacheSize, "query-cache-size", 0, "parsed query cache size, 0 for the default")
	cmd.Flags().BoolVar(&opts.watchRoot, "watch-root", false, "create indexes from definition files dropped into the root directory")
	return cmd
}

func serve(opts options) error {
	l := logger.GetLogger("main")
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := index.NewService(index.ServiceOptions{
		Root:           opts.root,
		Metrics:        index.NewMetrics(registry),
		QueryCacheSize: opts.queryCacheSize,
		WatchRoot:      opts.watchRoot,
	})
	if err != nil {
		return err
	}

	server := liaisonhttp.NewServer(liaisonhttp.ServerOptions{
		Addr:     opts.addr,
		Service:  svc,
		Gatherer: registry,
	})

	var g run.Group
	g.Add(server.Serve, func(error) {
		if shutdownErr := server.Shutdown(); shutdownErr != nil {
			l.Warn().Err(shutdownErr).Msg("liaison shutdown failed")
		}
	})
	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	err = g.Run()
	var signalErr run.SignalError
	if errors.As(err, &signalErr) {
		l.Info().Str("signal", signalErr.Signal.String()).Msg("shutting down")
		err = nil
	}
	return multierr.Append(err, svc.Close())
}
