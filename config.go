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

package bqembed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/bqembed/authflow"
	"cloud.google.com/go/bqembed/page"
	"cloud.google.com/go/bqembed/query"
	"gopkg.in/yaml.v3"
)

// Authentication modes.
const (
	// AuthConsent asks each reader for access with the OAuth consent screen.
	// Every browser session holds its own grant.
	AuthConsent = "consent"
	// AuthDefault runs every query with Application Default Credentials.
	AuthDefault = "default"
)

// Config configures a Server. The YAML keys are given in the field tags.
type Config struct {
	// Address is the listen address of the binary.
	Address string `yaml:"address"`
	// ProjectID is the billing project, or query.DetectProjectID.
	ProjectID string `yaml:"project-id"`
	// Location is where queries run.
	Location string `yaml:"location"`
	// APIKey is sent with every BigQuery request when set.
	APIKey string `yaml:"api-key"`
	// Pages is a local directory or a gs://bucket/prefix URI.
	Pages string `yaml:"pages"`
	// Editable lets readers change query text before running it.
	Editable bool `yaml:"editable"`
	// MaxPages bounds the number of live page instances.
	MaxPages int `yaml:"max-pages"`

	Auth  AuthConfig  `yaml:"auth"`
	Query QueryConfig `yaml:"query"`
}

// AuthConfig selects how queries are authorized.
type AuthConfig struct {
	// Mode is AuthConsent or AuthDefault.
	Mode         string `yaml:"mode"`
	ClientID     string `yaml:"client-id"`
	ClientSecret string `yaml:"client-secret"`
	// RedirectURL must route to the server's /oauth2/callback.
	RedirectURL string `yaml:"redirect-url"`
	// MaxSessions bounds the number of reader sessions kept in consent mode.
	MaxSessions int `yaml:"max-sessions"`
}

// QueryConfig tunes query execution. Durations are written as "10s", "1m".
type QueryConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll-interval"`
	MaxWait      time.Duration `yaml:"max-wait"`
}

// DefaultConfig returns the configuration used for keys a file leaves out.
func DefaultConfig() Config {
	return Config{
		Address:   "localhost:8080",
		ProjectID: query.DetectProjectID,
		Location:  query.DefaultLocation,
		Pages:     ".",
		MaxPages:  page.DefaultMaxPages,
		Auth:      AuthConfig{Mode: AuthConsent, MaxSessions: authflow.DefaultMaxSessions},
		Query: QueryConfig{
			Timeout:      query.DefaultQueryTimeout,
			PollInterval: query.DefaultPollInterval,
			MaxWait:      query.DefaultMaxWait,
		},
	}
}

// LoadConfig reads a YAML configuration file over DefaultConfig and
// validates the result. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("bqembed: parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	switch {
	case c.ProjectID == "":
		return errors.New("bqembed: project-id is required")
	case c.Pages == "":
		return errors.New("bqembed: pages is required")
	case c.MaxPages < 0:
		return errors.New("bqembed: max-pages must not be negative")
	case c.Auth.MaxSessions < 0:
		return errors.New("bqembed: auth.max-sessions must not be negative")
	case c.Query.Timeout < 0, c.Query.MaxWait < 0:
		return errors.New("bqembed: query durations must not be negative")
	case c.Query.PollInterval <= 0:
		return errors.New("bqembed: query.poll-interval must be positive")
	}
	if strings.HasPrefix(c.Pages, "gs://") {
		if _, _, err := page.ParseGCSURI(c.Pages); err != nil {
			return err
		}
	}
	switch c.Auth.Mode {
	case AuthDefault:
	case AuthConsent:
		if c.Auth.ClientID == "" || c.Auth.ClientSecret == "" || c.Auth.RedirectURL == "" {
			return errors.New("bqembed: consent auth requires auth.client-id, auth.client-secret and auth.redirect-url")
		}
	default:
		return fmt.Errorf("bqembed: unknown auth.mode %q", c.Auth.Mode)
	}
	return nil
}
