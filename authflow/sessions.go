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
	"container/list"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2/internallog"
)

// SessionCookie names the cookie that identifies a browser session.
const SessionCookie = "bqembed_session"

// DefaultMaxSessions bounds the number of live sessions.
const DefaultMaxSessions = 10000

// Session is the consent state of one browser session.
type Session struct {
	ID      string
	Consent *Consent
	Auth    *Authenticator
}

// SessionsConfig configures Sessions.
type SessionsConfig struct {
	Consent ConsentConfig
	Setup   SetupFunc
	// MaxSessions defaults to DefaultMaxSessions. The least recently used
	// session is dropped beyond it.
	MaxSessions int
	Logger      *slog.Logger
}

// Sessions keeps a Consent and an Authenticator per browser session, so each
// reader grants access with their own identity. It is safe for concurrent
// use.
type Sessions struct {
	cfg         SessionsConfig
	maxSessions int
	logger      *slog.Logger

	mu   sync.Mutex
	lru  *list.List // of *Session, most recent first
	byID map[string]*list.Element
}

// NewSessions returns an empty session store.
func NewSessions(cfg SessionsConfig) *Sessions {
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Sessions{
		cfg:         cfg,
		maxSessions: maxSessions,
		logger:      internallog.New(cfg.Logger),
		lru:         list.New(),
		byID:        make(map[string]*list.Element),
	}
}

// Lookup returns the session named by the request's cookie.
func (s *Sessions) Lookup(r *http.Request) (*Session, bool) {
	ck, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[ck.Value]
	if !ok {
		return nil, false
	}
	s.lru.MoveToFront(e)
	return e.Value.(*Session), true
}

// ForRequest returns the session of r, starting a new one and setting its
// cookie on w when r has none.
func (s *Sessions) ForRequest(w http.ResponseWriter, r *http.Request) *Session {
	if sess, ok := s.Lookup(r); ok {
		return sess
	}
	consent := NewConsent(s.cfg.Consent)
	sess := &Session{
		ID:      uuid.NewString(),
		Consent: consent,
		Auth:    New(consent, s.cfg.Setup, s.cfg.Logger),
	}
	s.mu.Lock()
	s.byID[sess.ID] = s.lru.PushFront(sess)
	for s.lru.Len() > s.maxSessions {
		e := s.lru.Back()
		s.lru.Remove(e)
		delete(s.byID, e.Value.(*Session).ID)
	}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.DebugContext(r.Context(), "authflow: session started", "session", sess.ID)
	return sess
}

// ServeHTTP hands the consent callback to the Consent of the caller's
// session. A callback without a known session fails like an unknown state.
func (s *Sessions) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.Lookup(r)
	if !ok {
		writeCallback(w, r, s.logger, ErrUnknownState)
		return
	}
	sess.Consent.ServeHTTP(w, r)
}
