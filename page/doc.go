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

// Package page serves documents with runnable BigQuery blocks.
//
// Rewrite finds the query blocks of an HTML document and turns each into a
// widget: the block, a Run button and a results region. A Controller loads
// pages from a Source, keeps one Instance per served copy and runs widgets on
// request, rendering results with package table.
//
// Pages are named without extension. A page "guide" is served from
// "guide.html", or from "guide.md" converted with goldmark.
package page // import "cloud.google.com/go/bqembed/page"

import (
	_ "embed"
)

// Script is the browser script that forwards Run clicks to the server and
// swaps results into the page.
//
//go:embed static/bqembed.js
var Script []byte
