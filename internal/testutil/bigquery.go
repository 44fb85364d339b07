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

package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	bq "google.golang.org/api/bigquery/v2"
)

// Call records one request received by a BigQueryServer.
type Call struct {
	Method string
	// Path is relative to the endpoint, e.g. "projects/p/queries/job_1".
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// BigQueryServer is a scripted stand-in for the BigQuery REST endpoints used
// by jobs.query and jobs.getQueryResults. The first jobs.query call receives
// the configured QueryResponse; every jobs.getQueryResults call receives the
// next scripted response in order.
type BigQueryServer struct {
	srv *httptest.Server
	t   testing.TB

	mu      sync.Mutex
	query   *bq.QueryResponse
	results []*bq.GetQueryResultsResponse
	calls   []Call
	status  int
}

// NewBigQueryServer starts a BigQueryServer. It is closed when the test ends.
func NewBigQueryServer(t testing.TB, first *bq.QueryResponse, rest ...*bq.GetQueryResultsResponse) *BigQueryServer {
	s := &BigQueryServer{
		t:       t,
		query:   first,
		results: rest,
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

// Endpoint returns a value suitable for option.WithEndpoint.
func (s *BigQueryServer) Endpoint() string {
	return s.srv.URL + "/bigquery/v2/"
}

// FailWith makes every subsequent request fail with the given HTTP status.
func (s *BigQueryServer) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Calls returns the requests received so far.
func (s *BigQueryServer) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *BigQueryServer) serve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.t.Errorf("reading request body: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{
		Method: r.Method,
		Path:   strings.TrimPrefix(r.URL.Path, "/bigquery/v2/"),
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})

	if s.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		fmt.Fprintf(w, `{"error":{"code":%d,"message":"scripted failure","errors":[{"reason":"backendError","message":"scripted failure"}]}}`, s.status)
		return
	}

	var resp interface{}
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/queries"):
		if s.query == nil {
			http.Error(w, "unexpected jobs.query", http.StatusInternalServerError)
			return
		}
		resp, s.query = s.query, nil
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/queries/"):
		if len(s.results) == 0 {
			http.Error(w, "unexpected jobs.getQueryResults", http.StatusInternalServerError)
			return
		}
		resp, s.results = s.results[0], s.results[1:]
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.t.Errorf("encoding response: %v", err)
	}
}
