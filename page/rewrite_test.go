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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const twoBlocks = `<!DOCTYPE html>
<html><head><title>Report</title></head>
<body>
<h1>Report</h1>
<pre class="bigquery">SELECT 1 AS one</pre>
<p>Between</p>
<pre class="sql bigquery" id="second">
  SELECT word FROM t WHERE n &lt; 3
</pre>
<pre class="other">not a query</pre>
</body></html>`

func TestRewriteFindsBlocks(t *testing.T) {
	doc, err := Rewrite(strings.NewReader(twoBlocks), RewriteOptions{PageID: "page-1"})
	if err != nil {
		t.Fatal(err)
	}
	want := []Block{
		{Widget: "w0", Query: "SELECT 1 AS one"},
		{Widget: "w1", Query: "SELECT word FROM t WHERE n < 3"},
	}
	if diff := cmp.Diff(want, doc.Blocks); diff != "" {
		t.Errorf("Blocks mismatch (-want +got):\n%s", diff)
	}

	got := string(doc.HTML())
	for _, s := range []string{
		`<div class="bigquery-wrapper" data-widget="w0"><pre class="bigquery">SELECT 1 AS one</pre><button type="button" class="bigquery-run">Run</button><div class="bigquery-results"></div></div>`,
		`<div class="bigquery-wrapper" data-widget="w1"><pre class="sql bigquery" id="second">`,
		`<pre class="other">not a query</pre>`,
		`<script src="/static/bqembed.js" data-page="page-1" defer=""></script></body>`,
		`<title>Report</title>`,
	} {
		if !strings.Contains(got, s) {
			t.Errorf("output does not contain %q:\n%s", s, got)
		}
	}
	if strings.Contains(got, "contenteditable") {
		t.Errorf("blocks are editable without Editable:\n%s", got)
	}
	if n := strings.Count(got, "bigquery-wrapper"); n != 2 {
		t.Errorf("got %d wrappers, want 2", n)
	}
}

func TestRewriteEditable(t *testing.T) {
	doc, err := Rewrite(strings.NewReader(`<pre class="bigquery">SELECT 1</pre>`), RewriteOptions{
		PageID:    "p",
		Editable:  true,
		ScriptURL: "/js/w.js",
	})
	if err != nil {
		t.Fatal(err)
	}
	got := string(doc.HTML())
	for _, s := range []string{
		`<pre class="bigquery" contenteditable="plaintext-only">SELECT 1</pre>`,
		`<script src="/js/w.js" data-page="p" defer=""></script>`,
	} {
		if !strings.Contains(got, s) {
			t.Errorf("output does not contain %q:\n%s", s, got)
		}
	}
}

func TestRewriteFencedCode(t *testing.T) {
	src := `<pre><code class="language-bigquery">SELECT 2
</code></pre><pre><code class="language-go">fmt.Println()</code></pre>`
	doc, err := Rewrite(strings.NewReader(src), RewriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Block{{Widget: "w0", Query: "SELECT 2"}}, doc.Blocks); diff != "" {
		t.Errorf("Blocks mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(doc.HTML()), `data-widget="w0"><pre><code class="language-bigquery">`) {
		t.Errorf("fenced block not wrapped:\n%s", doc.HTML())
	}
}

func TestRewriteNoBlocks(t *testing.T) {
	doc, err := Rewrite(strings.NewReader(`<p>nothing here</p>`), RewriteOptions{PageID: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Blocks) != 0 {
		t.Errorf("got %d blocks, want 0", len(doc.Blocks))
	}
	if !strings.Contains(string(doc.HTML()), `data-page="p"`) {
		t.Errorf("script tag missing:\n%s", doc.HTML())
	}
}

func TestMarkdownToHTML(t *testing.T) {
	src := "# Sales\n\n```bigquery\nSELECT region, SUM(total) FROM sales GROUP BY region\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"
	out, err := MarkdownToHTML([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Rewrite(strings.NewReader(string(out)), RewriteOptions{PageID: "p"})
	if err != nil {
		t.Fatal(err)
	}
	want := []Block{{Widget: "w0", Query: "SELECT region, SUM(total) FROM sales GROUP BY region"}}
	if diff := cmp.Diff(want, doc.Blocks); diff != "" {
		t.Errorf("Blocks mismatch (-want +got):\n%s", diff)
	}
	got := string(doc.HTML())
	if !strings.Contains(got, "<h1>Sales</h1>") {
		t.Errorf("heading missing:\n%s", got)
	}
	if !strings.Contains(got, "<table>") {
		t.Errorf("GFM table missing:\n%s", got)
	}
}
