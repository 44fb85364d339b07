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

package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "guides"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "guides", "intro.md"), []byte("# Intro"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewDirSource(dir)
	ctx := context.Background()

	got, err := src.ReadFile(ctx, "guides/intro.md")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "# Intro" {
		t.Errorf("got %q, want %q", got, "# Intro")
	}
	for _, name := range []string{"missing.html", "../secret", "/etc/passwd", "guides/../../x"} {
		if _, err := src.ReadFile(ctx, name); !errors.Is(err, ErrNotFound) {
			t.Errorf("ReadFile(%q): got %v, want ErrNotFound", name, err)
		}
	}
}

func TestParseGCSURI(t *testing.T) {
	for _, tc := range []struct {
		uri            string
		bucket, prefix string
		wantErr        bool
	}{
		{uri: "gs://docs", bucket: "docs"},
		{uri: "gs://docs/", bucket: "docs"},
		{uri: "gs://docs/site/pages/", bucket: "docs", prefix: "site/pages"},
		{uri: "gs:///pages", wantErr: true},
		{uri: "/var/pages", wantErr: true},
	} {
		bucket, prefix, err := ParseGCSURI(tc.uri)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseGCSURI(%q): got error %v, want error %t", tc.uri, err, tc.wantErr)
			continue
		}
		if bucket != tc.bucket || prefix != tc.prefix {
			t.Errorf("ParseGCSURI(%q) = %q, %q; want %q, %q", tc.uri, bucket, prefix, tc.bucket, tc.prefix)
		}
	}
}

// toServer sends every request to the test server regardless of host.
type toServer struct {
	target *url.URL
}

func (rt toServer) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestGCSSource(t *testing.T) {
	const content = "<pre class=\"bigquery\">SELECT 1</pre>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/site/index.html") {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(content))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
	}))
	defer srv.Close()
	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	client, err := storage.NewClient(ctx,
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithHTTPClient(&http.Client{Transport: toServer{target: target}}),
		storage.WithJSONReads())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	src, err := NewGCSSource(client, "gs://docs/site")
	if err != nil {
		t.Fatal(err)
	}
	got, err := src.ReadFile(ctx, "index.html")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != content {
		t.Errorf("got %q, want %q", got, content)
	}
	if _, err := src.ReadFile(ctx, "missing.html"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing object: got %v, want ErrNotFound", err)
	}
	if _, err := src.ReadFile(ctx, "../index.html"); !errors.Is(err, ErrNotFound) {
		t.Errorf("invalid name: got %v, want ErrNotFound", err)
	}
}
