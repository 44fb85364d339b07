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

// Package authflow authenticates the reader against BigQuery and builds the
// query client used for every run.
//
// An Authenticator holds at most one ready client. It is created lazily by the
// first call to Ensure; concurrent callers share that single setup. A setup
// that fails is not remembered, so the next call to Ensure tries again. A
// client whose credentials have lapsed is discarded the same way.
//
// Credentials come from one of two sources:
//   - Consent runs the interactive three-legged OAuth flow. Until the reader
//     has granted access, Ensure returns a *ConsentRequiredError carrying the
//     URL of the consent screen. Sessions gives every browser session its
//     own Consent and Authenticator.
//   - DefaultCredentials uses Application Default Credentials, for servers
//     where a service account runs every query.
package authflow // import "cloud.google.com/go/bqembed/authflow"

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cloud.google.com/go/bqembed/internal"
	"cloud.google.com/go/bqembed/query"
	"github.com/googleapis/gax-go/v2/internallog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
)

// Scopes are the OAuth2 scopes requested for running queries.
var Scopes = []string{query.Scope, query.PlatformReadOnlyScope}

// Credentials supplies the OAuth2 token source used by the query client.
type Credentials interface {
	// TokenSource returns a token source, or an error if no credentials are
	// available yet. The returned source may outlive ctx.
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// granter is implemented by Credentials whose grant can lapse.
type granter interface {
	Granted() bool
}

// SetupFunc builds a query client that authenticates with ts.
type SetupFunc func(ctx context.Context, ts oauth2.TokenSource) (*query.Client, error)

// ClientConfig describes the query client an Authenticator builds.
type ClientConfig struct {
	// ProjectID is the billing project, or query.DetectProjectID.
	ProjectID string
	// APIKey is sent with every request when not empty.
	APIKey string
	// Location overrides query.DefaultLocation when not empty.
	Location string
	// QueryTimeout overrides query.DefaultQueryTimeout when positive.
	QueryTimeout time.Duration
	// Polling is applied with query.Client.SetPolling.
	Polling []query.PollOption
	// Logger is passed to query.Client.SetLogger.
	Logger *slog.Logger
	// Options are appended to the options used to construct the client.
	Options []option.ClientOption
	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// Setup is a SetupFunc. The client's requests carry the API key, if any, and
// the bearer token from ts.
func (cfg ClientConfig) Setup(ctx context.Context, ts oauth2.TokenSource) (*query.Client, error) {
	var rt http.RoundTripper = &internal.Transport{Base: cfg.Base}
	if cfg.APIKey != "" {
		rt = &transport.APIKey{Key: cfg.APIKey, Transport: rt}
	}
	hc := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: rt}}

	opts := append([]option.ClientOption{option.WithHTTPClient(hc)}, cfg.Options...)
	c, err := query.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Location != "" {
		c.Location = cfg.Location
	}
	if cfg.QueryTimeout > 0 {
		c.QueryTimeout = cfg.QueryTimeout
	}
	if len(cfg.Polling) > 0 {
		c.SetPolling(cfg.Polling...)
	}
	c.SetLogger(cfg.Logger)
	return c, nil
}

// Authenticator lazily sets up the query client. It is safe for concurrent
// use.
type Authenticator struct {
	creds  Credentials
	setup  SetupFunc
	logger *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	client *query.Client
}

// New returns an Authenticator that obtains tokens from creds and builds the
// client with setup. A nil logger uses the default.
func New(creds Credentials, setup SetupFunc, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		creds:  creds,
		setup:  setup,
		logger: internallog.New(logger),
	}
}

// Authenticated reports whether a client has been set up and its
// credentials are still granted.
func (a *Authenticator) Authenticated() bool {
	return a.current() != nil
}

// current returns the ready client. It forgets a client whose credentials
// have lapsed.
func (a *Authenticator) current() *query.Client {
	a.mu.RLock()
	c := a.client
	a.mu.RUnlock()
	if c == nil {
		return nil
	}
	if g, ok := a.creds.(granter); ok && !g.Granted() {
		a.mu.Lock()
		if a.client == c {
			a.client = nil
		}
		a.mu.Unlock()
		a.logger.Info("authflow: credentials lapsed, discarding client")
		return nil
	}
	return c
}

// Ensure returns the ready client, setting it up first if needed. Calls made
// while a setup is in flight wait for it instead of starting another. If ctx
// is done first, Ensure returns ctx.Err() and the setup continues for the
// other callers.
func (a *Authenticator) Ensure(ctx context.Context) (*query.Client, error) {
	if c := a.current(); c != nil {
		return c, nil
	}
	ch := a.group.DoChan("setup", func() (interface{}, error) {
		if c := a.current(); c != nil {
			return c, nil
		}
		sctx := context.WithoutCancel(ctx)
		ts, err := a.creds.TokenSource(sctx)
		if err != nil {
			return nil, err
		}
		c, err := a.setup(sctx, ts)
		if err != nil {
			return nil, fmt.Errorf("authflow: setting up client: %w", err)
		}
		a.mu.Lock()
		a.client = c
		a.mu.Unlock()
		a.logger.InfoContext(sctx, "authflow: client ready", "project", c.Project())
		return c, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*query.Client), nil
	}
}

