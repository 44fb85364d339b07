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

package query

import (
	"fmt"
	"strings"

	bq "google.golang.org/api/bigquery/v2"
)

// Result is the complete result of a query.
type Result struct {
	// Schema describes the columns. It is taken from the response in which
	// the job was first seen complete and applies to every row.
	Schema []Field
	// Rows holds the rows of every result page, in page order. It is never
	// nil.
	Rows []Row
}

// Field is a result column.
type Field struct {
	// Name labels the column.
	Name string
	// Type is the BigQuery type name, such as "STRING" or "INT64". It is
	// informational only.
	Type string
}

// Row is one result row. It has one Cell per schema field.
type Row []Cell

// Cell is one value of a row, as text.
type Cell struct {
	// Value is the textual form of the value. It is empty for NULL.
	Value string
	// Null reports whether the value was NULL.
	Null bool
}

// RowShapeError reports a row whose cell count differs from the number of
// schema fields. Rows are never truncated or padded to fit.
type RowShapeError struct {
	// Row is the zero-based index of the row in the result.
	Row int
	// Got is the number of cells in the row.
	Got int
	// Want is the number of schema fields.
	Want int
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("bqembed: row %d has %d cells, schema has %d fields", e.Row, e.Got, e.Want)
}

func fieldsFromSchema(s *bq.TableSchema) []Field {
	if s == nil {
		return []Field{}
	}
	fields := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		fields = append(fields, Field{Name: f.Name, Type: f.Type})
	}
	return fields
}

// appendRows converts rows and appends them to r.Rows.
func (r *Result) appendRows(rows []*bq.TableRow) error {
	for _, tr := range rows {
		var cells []*bq.TableCell
		if tr != nil {
			cells = tr.F
		}
		if len(cells) != len(r.Schema) {
			return &RowShapeError{Row: len(r.Rows), Got: len(cells), Want: len(r.Schema)}
		}
		row := make(Row, len(cells))
		for i, c := range cells {
			if c == nil || c.V == nil {
				row[i] = Cell{Null: true}
				continue
			}
			row[i] = Cell{Value: formatValue(c.V)}
		}
		r.Rows = append(r.Rows, row)
	}
	return nil
}

// formatValue renders a value of the REST row format as text. Scalars arrive
// as strings. REPEATED values arrive as a list of {"v": value} objects and
// RECORD values as {"f": [{"v": value}, ...]}.
func formatValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			parts = append(parts, formatValue(unwrapCell(e)))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		if fs, ok := v["f"].([]interface{}); ok {
			parts := make([]string, 0, len(fs))
			for _, e := range fs {
				parts = append(parts, formatValue(unwrapCell(e)))
			}
			return "{" + strings.Join(parts, ", ") + "}"
		}
		if inner, ok := v["v"]; ok {
			return formatValue(inner)
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}

func unwrapCell(e interface{}) interface{} {
	if m, ok := e.(map[string]interface{}); ok {
		if inner, ok := m["v"]; ok && len(m) == 1 {
			return inner
		}
	}
	return e
}
