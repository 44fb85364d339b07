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

package authflow

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2/internallog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// StateTTL is how long a consent request stays valid.
const StateTTL = 10 * time.Minute

// ErrUnknownState is returned when a consent callback names a state that was
// never issued, has already been used or has expired.
var ErrUnknownState = errors.New("authflow: unknown or expired consent state")

// ConsentRequiredError is returned while the reader has not granted access.
// The reader grants it by visiting AuthURL.
type ConsentRequiredError struct {
	AuthURL string
}

func (e *ConsentRequiredError) Error() string {
	return "authflow: consent required"
}

// ConsentDeniedError is returned when the reader declines the consent screen.
// A later attempt may succeed.
type ConsentDeniedError struct {
	// Reason is the error code reported by the authorization server, such as
	// "access_denied".
	Reason string
}

func (e *ConsentDeniedError) Error() string {
	return fmt.Sprintf("authflow: consent denied: %s", e.Reason)
}

// ConsentConfig configures a Consent.
type ConsentConfig struct {
	ClientID     string
	ClientSecret string
	// RedirectURL is where the authorization server sends the reader back.
	// It must route to Consent.ServeHTTP.
	RedirectURL string
	// Endpoint defaults to google.Endpoint.
	Endpoint oauth2.Endpoint
	// Logger defaults to the environment-controlled logger.
	Logger *slog.Logger
}

type pendingState struct {
	verifier string
	created  time.Time
}

// Consent is Credentials backed by the interactive three-legged OAuth flow.
// It holds the grant of a single reader; Sessions keeps one Consent per
// browser session.
type Consent struct {
	config *oauth2.Config
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]pendingState
	token   *oauth2.Token
}

// NewConsent returns a Consent for the given OAuth client.
func NewConsent(cfg ConsentConfig) *Consent {
	ep := cfg.Endpoint
	if ep.AuthURL == "" {
		ep = google.Endpoint
	}
	return &Consent{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     ep,
			Scopes:       Scopes,
		},
		logger:  internallog.New(cfg.Logger),
		now:     time.Now,
		pending: make(map[string]pendingState),
	}
}

// TokenSource returns a refreshing token source once consent has been
// granted, and a *ConsentRequiredError before that. Each
// *ConsentRequiredError carries a fresh consent URL.
//
// When the grant can no longer produce a token, because the access token
// expired without a refresh token or the authorization server rejected the
// refresh, the grant is dropped and the source fails with a
// *ConsentRequiredError so the reader is asked again.
func (c *Consent) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return nil, &ConsentRequiredError{AuthURL: c.beginLocked()}
	}
	return &grantTokenSource{
		c:     c,
		grant: c.token,
		src:   c.config.TokenSource(context.WithoutCancel(ctx), c.token),
	}, nil
}

// grantTokenSource reports a lapsed grant to its Consent.
type grantTokenSource struct {
	c     *Consent
	grant *oauth2.Token
	src   oauth2.TokenSource
}

func (g *grantTokenSource) Token() (*oauth2.Token, error) {
	tok, err := g.src.Token()
	if err == nil {
		return tok, nil
	}
	var re *oauth2.RetrieveError
	if g.grant.RefreshToken != "" && !errors.As(err, &re) {
		return nil, err
	}
	g.c.logger.Info("authflow: grant lapsed", "error", err)
	return nil, fmt.Errorf("authflow: renewing access token: %w", g.c.revoke(g.grant))
}

// revoke drops grant if it is still the current one and returns a
// *ConsentRequiredError for a new request.
func (c *Consent) revoke(grant *oauth2.Token) *ConsentRequiredError {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == grant {
		c.token = nil
	}
	return &ConsentRequiredError{AuthURL: c.beginLocked()}
}

// Granted reports whether a token has been obtained.
func (c *Consent) Granted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != nil
}

// beginLocked registers a new state and returns the consent URL for it.
func (c *Consent) beginLocked() string {
	now := c.now()
	for s, p := range c.pending {
		if now.Sub(p.created) > StateTTL {
			delete(c.pending, s)
		}
	}
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	c.pending[state] = pendingState{verifier: verifier, created: now}
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
}

// take removes state from the pending set.
func (c *Consent) take(state string) (pendingState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[state]
	if !ok {
		return pendingState{}, ErrUnknownState
	}
	delete(c.pending, state)
	if c.now().Sub(p.created) > StateTTL {
		return pendingState{}, ErrUnknownState
	}
	return p, nil
}

// Complete exchanges the authorization code returned for state and stores
// the token.
func (c *Consent) Complete(ctx context.Context, state, code string) error {
	p, err := c.take(state)
	if err != nil {
		return err
	}
	tok, err := c.config.Exchange(ctx, code, oauth2.VerifierOption(p.verifier))
	if err != nil {
		return fmt.Errorf("authflow: exchanging authorization code: %w", err)
	}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	c.logger.InfoContext(ctx, "authflow: consent granted")
	return nil
}

// Fail records that the reader declined the consent request for state. It
// returns the resulting *ConsentDeniedError.
func (c *Consent) Fail(state, reason string) error {
	if _, err := c.take(state); err != nil {
		return err
	}
	c.logger.Info("authflow: consent denied", "reason", reason)
	return &ConsentDeniedError{Reason: reason}
}

var callbackTemplate = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>BigQuery authorization</title></head>
<body><p>{{.Message}}</p>
<script>
if (window.opener) {
  window.opener.postMessage({type: "bqembed-auth", ok: {{.OK}}, message: {{.Message}}}, window.location.origin);
  window.close();
}
</script>
</body></html>
`))

// ServeHTTP handles the redirect from the authorization server. It completes
// or fails the pending request named by the state parameter and answers with
// a page that notifies the window that opened the consent screen.
func (c *Consent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")
	var err error
	if reason := q.Get("error"); reason != "" {
		err = c.Fail(state, reason)
	} else {
		err = c.Complete(r.Context(), state, q.Get("code"))
	}
	writeCallback(w, r, c.logger, err)
}

// writeCallback answers a consent callback with the outcome err.
func writeCallback(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := http.StatusOK
	data := struct {
		OK      bool
		Message string
	}{OK: true, Message: "Authorization complete. You can close this window."}
	if err != nil {
		var denied *ConsentDeniedError
		switch {
		case errors.Is(err, ErrUnknownState):
			status = http.StatusBadRequest
		case errors.As(err, &denied):
			status = http.StatusForbidden
		default:
			status = http.StatusBadGateway
			logger.ErrorContext(r.Context(), "authflow: consent callback failed", "error", err)
		}
		data.OK = false
		data.Message = err.Error()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := callbackTemplate.Execute(w, data); err != nil {
		logger.ErrorContext(r.Context(), "authflow: writing callback page", "error", err)
	}
}
