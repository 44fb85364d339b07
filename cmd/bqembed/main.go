// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command bqembed serves pages with runnable BigQuery blocks.
//
// Usage:
//
//	bqembed [-config bqembed.yaml] [-address :8080] [-pages dir|gs://bucket/prefix]
//	        [-project id] [-location EU] [-auth consent|default] [-editable]
//
// Flags override the values in the configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/bqembed"
	"cloud.google.com/go/bqembed/internal/detect"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("GOOGLE_SDK_GO_LOGGING_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, logger, os.Args[1:]); err != nil {
		slog.Error("bqembed: failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}
	cfg.ProjectID, err = detect.ProjectID(ctx, cfg.ProjectID)
	if err != nil {
		return err
	}

	srv, err := bqembed.NewServer(ctx, cfg, bqembed.WithLogger(logger))
	if err != nil {
		return err
	}
	defer srv.Close()

	hs := &http.Server{
		Addr:              cfg.Address,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("bqembed: serving", "address", cfg.Address, "pages", cfg.Pages, "project", cfg.ProjectID, "auth", cfg.Auth.Mode)
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("bqembed: shutting down")
		return hs.Shutdown(sctx)
	})
	return g.Wait()
}

// parseConfig loads the configuration file, if any, and applies the flags
// that were set on top of it.
func parseConfig(args []string) (bqembed.Config, error) {
	fs := flag.NewFlagSet("bqembed", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "path to a YAML configuration file")
		address    = fs.String("address", "", "listen address")
		pages      = fs.String("pages", "", "page directory or gs://bucket/prefix")
		project    = fs.String("project", "", "billing project ID")
		location   = fs.String("location", "", "query location")
		authMode   = fs.String("auth", "", "authentication mode: consent or default")
		editable   = fs.Bool("editable", false, "let readers edit queries before running them")
	)
	if err := fs.Parse(args); err != nil {
		return bqembed.Config{}, err
	}
	if fs.NArg() > 0 {
		return bqembed.Config{}, fmt.Errorf("bqembed: unexpected arguments %q", fs.Args())
	}

	cfg := bqembed.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = bqembed.LoadConfig(*configPath); err != nil {
			return cfg, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "address":
			cfg.Address = *address
		case "pages":
			cfg.Pages = *pages
		case "project":
			cfg.ProjectID = *project
		case "location":
			cfg.Location = *location
		case "auth":
			cfg.Auth.Mode = *authMode
		case "editable":
			cfg.Editable = *editable
		}
	})
	return cfg, cfg.Validate()
}
