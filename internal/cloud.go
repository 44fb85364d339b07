// Copyright 2014 Google Inc. All Rights Reserved.
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

// Package internal provides support for the bqembed packages.
//
// Users should not import this package directly.
package internal

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Version is the current version of bqembed.
const Version = "0.3.0"

// UserAgent is appended to the User-Agent header of outgoing API requests.
var UserAgent = "gcloud-golang-bqembed/" + Version

// APIClientHeader is the value of the x-goog-api-client header.
var APIClientHeader = fmt.Sprintf("gl-go/%s gccl/%s", goVersion(), Version)

// Transport is an http.RoundTripper that appends the bqembed user agent to
// the original request's User-Agent header and sets x-goog-api-client.
type Transport struct {
	// Base represents the actual http.RoundTripper
	// the requests will be delegated to.
	Base http.RoundTripper
}

// RoundTrip appends a user-agent to the existing user-agent
// header and delegates the request to the base http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = cloneRequest(req)
	ua := req.Header.Get("User-Agent")
	if ua == "" {
		ua = UserAgent
	} else {
		ua = fmt.Sprintf("%s %s", ua, UserAgent)
	}
	req.Header.Set("User-Agent", ua)
	if req.Header.Get("x-goog-api-client") == "" {
		req.Header.Set("x-goog-api-client", APIClientHeader)
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// cloneRequest returns a clone of the provided *http.Request.
// The clone is a shallow copy of the struct and its Header map.
func cloneRequest(r *http.Request) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	r2.Header = make(http.Header, len(r.Header))
	for k, s := range r.Header {
		r2.Header[k] = append([]string(nil), s...)
	}
	return r2
}

// goVersion returns the Go runtime version without the "go" prefix. Devel and
// pre-release builds keep only the numeric part.
func goVersion() string {
	v := strings.TrimPrefix(runtime.Version(), "go")
	if i := strings.IndexFunc(v, func(r rune) bool { return r != '.' && (r < '0' || r > '9') }); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return "UNKNOWN"
	}
	return v
}
