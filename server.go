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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/bqembed/authflow"
	"cloud.google.com/go/bqembed/page"
	"cloud.google.com/go/bqembed/query"
	"cloud.google.com/go/storage"
	"github.com/googleapis/gax-go/v2/internallog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// maxRunRequest bounds the body of a run request.
const maxRunRequest = 1 << 20

// An Option configures a Server.
type Option interface {
	apply(*serverOptions)
}

type serverOptions struct {
	source        page.Source
	creds         authflow.Credentials
	clientOptions []option.ClientOption
	endpoint      oauth2.Endpoint
	logger        *slog.Logger
}

type withSource struct{ s page.Source }

func (w withSource) apply(o *serverOptions) { o.source = w.s }

// WithSource serves pages from s instead of the configured pages location.
func WithSource(s page.Source) Option {
	return withSource{s}
}

type withCredentials struct{ c authflow.Credentials }

func (w withCredentials) apply(o *serverOptions) { o.creds = w.c }

// WithCredentials authorizes queries with c instead of the configured
// auth mode.
func WithCredentials(c authflow.Credentials) Option {
	return withCredentials{c}
}

type withClientOptions []option.ClientOption

func (w withClientOptions) apply(o *serverOptions) {
	o.clientOptions = append(o.clientOptions, w...)
}

// WithClientOptions passes opts to the BigQuery client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return withClientOptions(opts)
}

type withConsentEndpoint oauth2.Endpoint

func (w withConsentEndpoint) apply(o *serverOptions) { o.endpoint = oauth2.Endpoint(w) }

// WithConsentEndpoint replaces Google's OAuth endpoint in consent mode.
func WithConsentEndpoint(ep oauth2.Endpoint) Option {
	return withConsentEndpoint(ep)
}

type withLogger struct{ l *slog.Logger }

func (w withLogger) apply(o *serverOptions) { o.logger = w.l }

// WithLogger sets the logger of the server and every component it builds.
func WithLogger(l *slog.Logger) Option {
	return withLogger{l}
}

// Server serves pages and runs their queries. It implements http.Handler.
type Server struct {
	pages *page.Controller
	// auth serves every run, unless sessions is set.
	auth     *authflow.Authenticator
	sessions *authflow.Sessions
	logger   *slog.Logger
	handler http.Handler
	closers []func() error
}

// NewServer builds a Server from a validated configuration.
func NewServer(ctx context.Context, cfg Config, opts ...Option) (*Server, error) {
	var o serverOptions
	for _, opt := range opts {
		opt.apply(&o)
	}
	s := &Server{logger: internallog.New(o.logger)}

	src := o.source
	if src == nil {
		var err error
		if src, err = s.openSource(ctx, cfg.Pages); err != nil {
			return nil, err
		}
	}

	clientCfg := authflow.ClientConfig{
		ProjectID:    cfg.ProjectID,
		APIKey:       cfg.APIKey,
		Location:     cfg.Location,
		QueryTimeout: cfg.Query.Timeout,
		Logger:       o.logger,
		Options:      o.clientOptions,
	}
	if cfg.Query.PollInterval > 0 {
		clientCfg.Polling = append(clientCfg.Polling, query.WithPollInterval(cfg.Query.PollInterval))
	}
	if cfg.Query.MaxWait > 0 {
		clientCfg.Polling = append(clientCfg.Polling, query.WithMaxWait(cfg.Query.MaxWait))
	}

	switch {
	case o.creds != nil:
		s.auth = authflow.New(o.creds, clientCfg.Setup, o.logger)
	case cfg.Auth.Mode == AuthConsent:
		s.sessions = authflow.NewSessions(authflow.SessionsConfig{
			Consent: authflow.ConsentConfig{
				ClientID:     cfg.Auth.ClientID,
				ClientSecret: cfg.Auth.ClientSecret,
				RedirectURL:  cfg.Auth.RedirectURL,
				Endpoint:     o.endpoint,
				Logger:       o.logger,
			},
			Setup:       clientCfg.Setup,
			MaxSessions: cfg.Auth.MaxSessions,
			Logger:      o.logger,
		})
	case cfg.Auth.Mode == AuthDefault:
		s.auth = authflow.New(&authflow.DefaultCredentials{}, clientCfg.Setup, o.logger)
	default:
		s.Close()
		return nil, fmt.Errorf("bqembed: unknown auth.mode %q", cfg.Auth.Mode)
	}

	s.pages = page.NewController(page.Config{
		Source:   src,
		Auth:     runAuth{s.auth},
		Editable: cfg.Editable,
		MaxPages: cfg.MaxPages,
		Logger:   o.logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET "+page.DefaultScriptURL, s.serveScript)
	mux.HandleFunc("POST /api/run", s.serveRun)
	if s.sessions != nil {
		mux.Handle("GET /oauth2/callback", s.sessions)
	}
	mux.HandleFunc("GET /{name...}", s.servePage)
	s.handler = otelhttp.NewHandler(mux, "bqembed",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.Pattern
		}))
	return s, nil
}

func (s *Server) openSource(ctx context.Context, pages string) (page.Source, error) {
	if !strings.HasPrefix(pages, "gs://") {
		return page.NewDirSource(pages), nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("bqembed: creating storage client: %w", err)
	}
	src, err := page.NewGCSSource(client, pages)
	if err != nil {
		client.Close()
		return nil, err
	}
	s.closers = append(s.closers, client.Close)
	return src, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close releases the clients the server created.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}

type sessionAuthKey struct{}

// runAuth adapts an Authenticator to page.Authenticator. The authenticator
// of the caller's session, when the context carries one, takes precedence
// over the shared one.
type runAuth struct {
	shared *authflow.Authenticator
}

func (ra runAuth) Ensure(ctx context.Context) (page.Executor, error) {
	a := ra.shared
	if sa, ok := ctx.Value(sessionAuthKey{}).(*authflow.Authenticator); ok {
		a = sa
	}
	if a == nil {
		return nil, errors.New("bqembed: no authenticator for run")
	}
	c, err := a.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Server) serveScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Write(page.Script)
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	inst, err := s.pages.Open(r.Context(), r.PathValue("name"))
	if errors.Is(err, page.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "bqembed: opening page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(inst.HTML())
}

type runRequest struct {
	Page   string `json:"page"`
	Widget string `json:"widget"`
	Query  string `json:"query"`
}

type runResponse struct {
	Seq   uint64 `json:"seq"`
	HTML  string `json:"html"`
	Stale bool   `json:"stale"`
}

type errorResponse struct {
	Error   string `json:"error"`
	AuthURL string `json:"authURL,omitempty"`
}

func (s *Server) serveRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunRequest))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed run request: " + err.Error()})
		return
	}
	if req.Page == "" || req.Widget == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "run request needs page and widget"})
		return
	}

	ctx := r.Context()
	if s.sessions != nil {
		ctx = context.WithValue(ctx, sessionAuthKey{}, s.sessions.ForRequest(w, r).Auth)
	}
	out, err := s.pages.Run(ctx, req.Page, req.Widget, req.Query)
	if err != nil {
		status, resp := runError(err)
		if status >= http.StatusInternalServerError {
			s.logger.ErrorContext(r.Context(), "bqembed: run failed", "page", req.Page, "widget", req.Widget, "error", err)
		}
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Seq: out.Seq, HTML: string(out.HTML), Stale: out.Stale})
}

// runError maps a run failure to an HTTP status and response body.
func runError(err error) (int, errorResponse) {
	resp := errorResponse{Error: err.Error()}
	var (
		consent *authflow.ConsentRequiredError
		denied  *authflow.ConsentDeniedError
		shape   *query.RowShapeError
		timeout *query.WaitTimeoutError
		apiErr  *googleapi.Error
	)
	switch {
	case errors.As(err, &consent):
		resp.AuthURL = consent.AuthURL
		return http.StatusUnauthorized, resp
	case errors.As(err, &denied):
		return http.StatusForbidden, resp
	case errors.Is(err, page.ErrUnknownPage), errors.Is(err, page.ErrUnknownWidget):
		return http.StatusNotFound, resp
	case errors.As(err, &shape), errors.As(err, &timeout):
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			resp.Error = apiErr.Message
		}
		return http.StatusBadGateway, resp
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, resp
	}
	return http.StatusInternalServerError, resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
