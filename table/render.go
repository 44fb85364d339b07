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

// Package table turns a query result into an HTML table.
package table // import "cloud.google.com/go/bqembed/table"

import (
	"bytes"
	"html/template"
	"io"

	"cloud.google.com/go/bqembed/query"
)

// Table is a rendered query result.
type Table struct {
	// Header holds one label per schema field, in order.
	Header []string
	// Rows holds one entry per result row. Each has len(Header) values.
	Rows [][]string
}

// Render builds a Table from res. It is pure: res is not modified.
//
// A NULL cell renders as empty text. A result with no rows produces a
// header-only table. A row whose cell count differs from the number of fields
// yields a *query.RowShapeError.
func Render(res *query.Result) (*Table, error) {
	t := &Table{
		Header: make([]string, 0, len(res.Schema)),
		Rows:   make([][]string, 0, len(res.Rows)),
	}
	for _, f := range res.Schema {
		t.Header = append(t.Header, f.Name)
	}
	for i, row := range res.Rows {
		if len(row) != len(t.Header) {
			return nil, &query.RowShapeError{Row: i, Got: len(row), Want: len(t.Header)}
		}
		out := make([]string, len(row))
		for j, c := range row {
			if !c.Null {
				out[j] = c.Value
			}
		}
		t.Rows = append(t.Rows, out)
	}
	return t, nil
}

var tableTemplate = template.Must(template.New("table").Parse(
	`<table class="bigquery-table"><thead><tr>` +
		`{{range .Header}}<th>{{.}}</th>{{end}}` +
		`</tr></thead><tbody>` +
		`{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}` +
		`</tbody></table>`))

// WriteHTML writes the table as escaped HTML markup.
func (t *Table) WriteHTML(w io.Writer) error {
	return tableTemplate.Execute(w, t)
}

// HTML returns the table markup.
func (t *Table) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.WriteHTML(&buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
