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
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"
)

func newTestSessions(t *testing.T, maxSessions int) *Sessions {
	ts := newTokenServer(t, longGrant)
	return NewSessions(SessionsConfig{
		Consent: ConsentConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost/oauth2/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:   ts.URL + "/auth",
				TokenURL:  ts.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		Setup:       (&fakeSetup{}).setup,
		MaxSessions: maxSessions,
	})
}

// startSession opens a session and returns it with its cookie.
func startSession(t *testing.T, s *Sessions) (*Session, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	sess := s.ForRequest(rec, httptest.NewRequest(http.MethodPost, "/api/run", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie || cookies[0].Value != sess.ID {
		t.Fatalf("cookies: got %v, want %s=%s", cookies, SessionCookie, sess.ID)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}
	return sess, cookies[0]
}

func requireConsent(t *testing.T, a *Authenticator) string {
	t.Helper()
	_, err := a.Ensure(context.Background())
	var cre *ConsentRequiredError
	if !errors.As(err, &cre) {
		t.Fatalf("Ensure: got %v, want *ConsentRequiredError", err)
	}
	u, err := url.Parse(cre.AuthURL)
	if err != nil {
		t.Fatal(err)
	}
	return u.Query().Get("state")
}

func sessionCallback(s *Sessions, ck *http.Cookie, state string) int {
	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback?"+url.Values{"state": {state}, "code": {"good"}}.Encode(), nil)
	if ck != nil {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec.Code
}

func TestSessionsSeparateGrants(t *testing.T) {
	s := newTestSessions(t, 0)
	first, firstCookie := startSession(t, s)
	state := requireConsent(t, first.Auth)
	if code := sessionCallback(s, firstCookie, state); code != http.StatusOK {
		t.Fatalf("callback: status %d, want 200", code)
	}
	if _, err := first.Auth.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure after consent: %v", err)
	}

	// A request carrying the cookie finds the same session.
	req := httptest.NewRequest(http.MethodPost, "/api/run", nil)
	req.AddCookie(firstCookie)
	if got := s.ForRequest(httptest.NewRecorder(), req); got != first {
		t.Error("request with the session cookie got another session")
	}

	// Another browser is asked for its own consent.
	second, _ := startSession(t, s)
	if second.ID == first.ID {
		t.Fatal("two browsers share a session")
	}
	requireConsent(t, second.Auth)
}

func TestSessionsCallbackBoundToSession(t *testing.T) {
	s := newTestSessions(t, 0)
	first, _ := startSession(t, s)
	_, secondCookie := startSession(t, s)
	state := requireConsent(t, first.Auth)

	if code := sessionCallback(s, nil, state); code != http.StatusBadRequest {
		t.Errorf("callback without a session: status %d, want 400", code)
	}
	if code := sessionCallback(s, secondCookie, state); code != http.StatusBadRequest {
		t.Errorf("callback from another session: status %d, want 400", code)
	}
	if first.Consent.Granted() {
		t.Error("first session granted by another session's callback")
	}
}

func TestSessionsEviction(t *testing.T) {
	s := newTestSessions(t, 1)
	_, firstCookie := startSession(t, s)
	startSession(t, s)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(firstCookie)
	if _, ok := s.Lookup(req); ok {
		t.Error("least recently used session was not evicted")
	}
}
