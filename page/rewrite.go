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
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultScriptURL is where pages load the widget script from.
const DefaultScriptURL = "/static/bqembed.js"

// RewriteOptions controls how Rewrite rewrites a page.
type RewriteOptions struct {
	// PageID is written to the script tag's data-page attribute.
	PageID string
	// Editable marks query blocks as editable plain text.
	Editable bool
	// ScriptURL defaults to DefaultScriptURL.
	ScriptURL string
}

// Block is a query block found in a page.
type Block struct {
	// Widget is the widget id, unique within the page.
	Widget string
	// Query is the text of the block as written in the page.
	Query string
}

// Document is a page whose query blocks have been turned into widgets.
type Document struct {
	Blocks []Block
	html   []byte
}

// HTML returns the rewritten page.
func (d *Document) HTML() []byte {
	return d.html
}

// Rewrite parses an HTML page and wraps every query block in a widget.
//
// A query block is a pre element with class "bigquery", or a pre element
// whose child is a code element with class "language-bigquery" (the form
// Markdown renderers give fenced code). Each block is replaced in place by
//
//	<div class="bigquery-wrapper" data-widget="w0">
//	  <pre class="bigquery">...</pre>
//	  <button type="button" class="bigquery-run">Run</button>
//	  <div class="bigquery-results"></div>
//	</div>
//
// and a script tag loading the widget script is appended to the body.
func Rewrite(r io.Reader, opts RewriteOptions) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("page: parsing HTML: %w", err)
	}
	var blocks []*html.Node
	findBlocks(root, &blocks)

	doc := &Document{Blocks: make([]Block, 0, len(blocks))}
	for i, pre := range blocks {
		id := "w" + strconv.Itoa(i)
		doc.Blocks = append(doc.Blocks, Block{Widget: id, Query: strings.TrimSpace(textContent(pre))})
		wrap(pre, id, opts.Editable)
	}

	body := findElement(root, atom.Body)
	if body == nil {
		return nil, fmt.Errorf("page: document has no body")
	}
	script := opts.ScriptURL
	if script == "" {
		script = DefaultScriptURL
	}
	body.AppendChild(element(atom.Script,
		html.Attribute{Key: "src", Val: script},
		html.Attribute{Key: "data-page", Val: opts.PageID},
		html.Attribute{Key: "defer", Val: ""},
	))

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("page: rendering HTML: %w", err)
	}
	doc.html = buf.Bytes()
	return doc, nil
}

// findBlocks appends query blocks under n in document order.
func findBlocks(n *html.Node, out *[]*html.Node) {
	if isBlock(n) {
		*out = append(*out, n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		findBlocks(c, out)
	}
}

func isBlock(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Pre {
		return false
	}
	if hasClass(n, "bigquery") {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code && hasClass(c, "language-bigquery") {
			return true
		}
	}
	return false
}

// wrap replaces pre with a widget wrapper containing it.
func wrap(pre *html.Node, id string, editable bool) {
	wrapper := element(atom.Div,
		html.Attribute{Key: "class", Val: "bigquery-wrapper"},
		html.Attribute{Key: "data-widget", Val: id},
	)
	pre.Parent.InsertBefore(wrapper, pre)
	pre.Parent.RemoveChild(pre)
	if editable {
		setAttr(pre, "contenteditable", "plaintext-only")
	}
	wrapper.AppendChild(pre)

	button := element(atom.Button,
		html.Attribute{Key: "type", Val: "button"},
		html.Attribute{Key: "class", Val: "bigquery-run"},
	)
	button.AppendChild(&html.Node{Type: html.TextNode, Data: "Run"})
	wrapper.AppendChild(button)
	wrapper.AppendChild(element(atom.Div, html.Attribute{Key: "class", Val: "bigquery-results"}))
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "class" {
			for _, f := range strings.Fields(a.Val) {
				if f == class {
					return true
				}
			}
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
