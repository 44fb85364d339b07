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

// Package bqembed serves pages with runnable BigQuery blocks.
//
// A page is an HTML or Markdown document in which SQL is written in
// <pre class="bigquery"> elements, or in Markdown code fences tagged
// "bigquery". The server rewrites every such block into a widget with a Run
// button. When the reader presses Run, the query is sent to BigQuery with
// jobs.query, polled with jobs.getQueryResults until the job completes, read
// page by page and returned as an HTML table that replaces the widget's
// results region.
//
// # Serving pages
//
// Build a Server from a Config and serve it:
//
//	cfg, err := bqembed.LoadConfig("bqembed.yaml")
//	if err != nil {
//		// TODO: Handle error.
//	}
//	srv, err := bqembed.NewServer(ctx, cfg)
//	if err != nil {
//		// TODO: Handle error.
//	}
//	defer srv.Close()
//	http.ListenAndServe(cfg.Address, srv)
//
// # Authentication
//
// With auth.mode "consent" each reader is asked for access through the OAuth
// consent screen the first time a query runs. The grant belongs to the
// reader's browser session, identified by a cookie, and is asked for again
// once it can no longer be refreshed. The run answers 401 with the consent
// URL; the page script opens it in a popup and runs the query again once
// access is granted. With auth.mode "default" queries run with Application
// Default Credentials.
//
// Queries use the BigQuery read-only scope. An API key, if configured, is
// sent with every request.
//
// # Errors
//
// Run failures are reported to the page as JSON with an HTTP status:
// 401 when consent is required, 404 for an unknown page or widget, 422 when
// the result has a malformed row or the job did not finish within
// query.max-wait, and 502 for errors returned by BigQuery.
package bqembed // import "cloud.google.com/go/bqembed"
