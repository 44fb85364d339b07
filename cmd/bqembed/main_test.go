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

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/bqembed"
)

func TestParseConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bqembed.yaml")
	content := "address: \":9000\"\npages: /srv/pages\nauth:\n  mode: default\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := parseConfig([]string{"-config", path, "-project", "p1", "-location", "US", "-editable"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Address != ":9000" || cfg.Pages != "/srv/pages" {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.ProjectID != "p1" || cfg.Location != "US" || !cfg.Editable {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Auth.Mode != bqembed.AuthDefault {
		t.Errorf("Auth.Mode: got %q, want %q", cfg.Auth.Mode, bqembed.AuthDefault)
	}
}

func TestParseConfigWithoutFile(t *testing.T) {
	cfg, err := parseConfig([]string{"-auth", "default", "-pages", "gs://docs/site"})
	if err != nil {
		t.Fatal(err)
	}
	def := bqembed.DefaultConfig()
	if cfg.Address != def.Address || cfg.ProjectID != def.ProjectID {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	if cfg.Pages != "gs://docs/site" {
		t.Errorf("Pages: got %q", cfg.Pages)
	}
}

func TestParseConfigErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-auth", "consent"},
		{"-auth", "default", "extra"},
		{"-nope"},
	} {
		if _, err := parseConfig(args); err == nil {
			t.Errorf("parseConfig(%q): got nil error", strings.Join(args, " "))
		}
	}
}
