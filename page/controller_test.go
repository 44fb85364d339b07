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
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"cloud.google.com/go/bqembed/query"
	"github.com/google/go-cmp/cmp"
)

// fakeExecutor returns a one-column result echoing the query. Queries
// listed in block wait until their channel is closed.
type fakeExecutor struct {
	mu      sync.Mutex
	queries []string
	block   map[string]chan struct{}
	errs    map[string]error
}

func (f *fakeExecutor) Execute(ctx context.Context, sql string) (*query.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, sql)
	ch := f.block[sql]
	err := f.errs[sql]
	f.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &query.Result{
		Schema: []query.Field{{Name: "q"}},
		Rows:   []query.Row{{{Value: sql}}},
	}, nil
}

type fakeAuth struct {
	exec Executor
	err  error
}

func (f *fakeAuth) Ensure(context.Context) (Executor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.exec, nil
}

func testSource() Source {
	return &DirSource{fsys: fstest.MapFS{
		"index.html": {Data: []byte(`<pre class="bigquery">SELECT 'a'</pre><pre class="bigquery">SELECT 'b'</pre>`)},
		"notes.md":   {Data: []byte("```bigquery\nSELECT 'md'\n```\n")},
		"both.html":  {Data: []byte(`<p>html wins</p>`)},
		"both.md":    {Data: []byte("md loses")},
	}}
}

func newTestController(exec *fakeExecutor) *Controller {
	return NewController(Config{
		Source: testSource(),
		Auth:   &fakeAuth{exec: exec},
	})
}

func TestOpen(t *testing.T) {
	c := newTestController(&fakeExecutor{})
	ctx := context.Background()

	inst, err := c.Open(ctx, "/")
	if err != nil {
		t.Fatal(err)
	}
	if inst.Name != "index" {
		t.Errorf("Name: got %q, want index", inst.Name)
	}
	var queries []string
	for _, w := range inst.Widgets() {
		queries = append(queries, w.ID+"="+w.Query)
	}
	if diff := cmp.Diff([]string{"w0=SELECT 'a'", "w1=SELECT 'b'"}, queries); diff != "" {
		t.Errorf("widgets mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(inst.HTML()), `data-page="`+inst.ID+`"`) {
		t.Errorf("page id not in script tag:\n%s", inst.HTML())
	}

	md, err := c.Open(ctx, "notes")
	if err != nil {
		t.Fatal(err)
	}
	if w, ok := md.Widget("w0"); !ok || w.Query != "SELECT 'md'" {
		t.Errorf("Markdown widget: got %+v, %t", w, ok)
	}

	both, err := c.Open(ctx, "both")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(both.HTML()), "html wins") {
		t.Errorf(".html not preferred over .md:\n%s", both.HTML())
	}

	if _, err := c.Open(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing page: got %v, want ErrNotFound", err)
	}

	again, err := c.Open(ctx, "index")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID == inst.ID {
		t.Error("two opens share an instance id")
	}
}

func TestRun(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestController(exec)
	ctx := context.Background()
	inst, err := c.Open(ctx, "index")
	if err != nil {
		t.Fatal(err)
	}

	out, err := c.Run(ctx, inst.ID, "w1", "SELECT 'edited'")
	if err != nil {
		t.Fatal(err)
	}
	if out.Seq != 1 || out.Stale {
		t.Errorf("got Seq %d Stale %t, want 1 false", out.Seq, out.Stale)
	}
	if !strings.Contains(string(out.HTML), "<td>SELECT &#39;edited&#39;</td>") {
		t.Errorf("unexpected table: %s", out.HTML)
	}
	w1, _ := inst.Widget("w1")
	snap := w1.Snapshot()
	if snap.State != Idle || snap.Results != out.HTML || snap.Seq != 1 {
		t.Errorf("w1 snapshot: %+v", snap)
	}
	w0, _ := inst.Widget("w0")
	if snap := w0.Snapshot(); snap.Seq != 0 || snap.Results != "" {
		t.Errorf("w0 changed by a w1 run: %+v", snap)
	}

	// An empty query runs the block text.
	if _, err := c.Run(ctx, inst.ID, "w0", "  "); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"SELECT 'edited'", "SELECT 'a'"}, exec.queries); diff != "" {
		t.Errorf("queries mismatch (-want +got):\n%s", diff)
	}
}

func TestRunUnknown(t *testing.T) {
	c := newTestController(&fakeExecutor{})
	ctx := context.Background()
	inst, err := c.Open(ctx, "index")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Run(ctx, "nope", "w0", ""); !errors.Is(err, ErrUnknownPage) {
		t.Errorf("got %v, want ErrUnknownPage", err)
	}
	if _, err := c.Run(ctx, inst.ID, "w9", ""); !errors.Is(err, ErrUnknownWidget) {
		t.Errorf("got %v, want ErrUnknownWidget", err)
	}
}

func TestRunFailure(t *testing.T) {
	boom := errors.New("boom")
	exec := &fakeExecutor{errs: map[string]error{"SELECT bad": boom}}
	c := newTestController(exec)
	ctx := context.Background()
	inst, err := c.Open(ctx, "index")
	if err != nil {
		t.Fatal(err)
	}

	first, err := c.Run(ctx, inst.ID, "w0", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Run(ctx, inst.ID, "w0", "SELECT bad"); !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
	w0, _ := inst.Widget("w0")
	snap := w0.Snapshot()
	if snap.State != Failed || !errors.Is(snap.Err, boom) {
		t.Errorf("snapshot: %+v", snap)
	}
	if snap.Results != first.HTML {
		t.Error("failed run replaced the previous results")
	}
}

func TestRunAuthFailure(t *testing.T) {
	denied := errors.New("consent required")
	c := NewController(Config{Source: testSource(), Auth: &fakeAuth{err: denied}})
	ctx := context.Background()
	inst, err := c.Open(ctx, "index")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Run(ctx, inst.ID, "w0", ""); !errors.Is(err, denied) {
		t.Fatalf("got %v, want %v", err, denied)
	}
	w0, _ := inst.Widget("w0")
	if got := w0.Snapshot().State; got != Failed {
		t.Errorf("State: got %v, want %v", got, Failed)
	}
}

func TestRunStaleSuppressed(t *testing.T) {
	release := make(chan struct{})
	exec := &fakeExecutor{block: map[string]chan struct{}{"SELECT slow": release}}
	c := newTestController(exec)
	ctx := context.Background()
	inst, err := c.Open(ctx, "index")
	if err != nil {
		t.Fatal(err)
	}
	w0, _ := inst.Widget("w0")

	type result struct {
		out *Outcome
		err error
	}
	slow := make(chan result, 1)
	go func() {
		out, err := c.Run(ctx, inst.ID, "w0", "SELECT slow")
		slow <- result{out, err}
	}()
	// Wait until the slow run is executing.
	for {
		exec.mu.Lock()
		n := len(exec.queries)
		exec.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	fast, err := c.Run(ctx, inst.ID, "w0", "SELECT fast")
	if err != nil {
		t.Fatal(err)
	}
	if fast.Seq != 2 || fast.Stale {
		t.Errorf("fast run: got Seq %d Stale %t, want 2 false", fast.Seq, fast.Stale)
	}

	close(release)
	r := <-slow
	if r.err != nil {
		t.Fatal(r.err)
	}
	if r.out.Seq != 1 || !r.out.Stale || r.out.HTML != "" {
		t.Errorf("slow run: got %+v, want stale Seq 1", r.out)
	}
	if got := w0.Snapshot().Results; got != fast.HTML {
		t.Errorf("results: got %s, want the fast run's %s", got, fast.HTML)
	}
}

func TestRunStaleFailureSuppressed(t *testing.T) {
	release := make(chan struct{})
	exec := &fakeExecutor{
		block: map[string]chan struct{}{"SELECT slow": release},
		errs:  map[string]error{"SELECT slow": errors.New("boom")},
	}
	c := newTestController(exec)
	ctx := context.Background()
	inst, err := c.Open(ctx, "index")
	if err != nil {
		t.Fatal(err)
	}

	slow := make(chan error, 1)
	var stale *Outcome
	go func() {
		var err error
		stale, err = c.Run(ctx, inst.ID, "w0", "SELECT slow")
		slow <- err
	}()
	for {
		exec.mu.Lock()
		n := len(exec.queries)
		exec.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if _, err := c.Run(ctx, inst.ID, "w0", "SELECT fast"); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-slow; err != nil {
		t.Fatalf("stale failure returned error %v", err)
	}
	if !stale.Stale {
		t.Errorf("got %+v, want stale outcome", stale)
	}
	w0, _ := inst.Widget("w0")
	if got := w0.Snapshot().State; got != Idle {
		t.Errorf("State: got %v, want %v", got, Idle)
	}
}

func TestRunRowShapeError(t *testing.T) {
	c := NewController(Config{Source: testSource(), Auth: &fakeAuth{exec: badShape{}}})
	ctx := context.Background()
	inst, err := c.Open(ctx, "index")
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Run(ctx, inst.ID, "w0", "")
	var rse *query.RowShapeError
	if !errors.As(err, &rse) {
		t.Fatalf("got %v, want *query.RowShapeError", err)
	}
}

type badShape struct{}

func (badShape) Execute(context.Context, string) (*query.Result, error) {
	return &query.Result{
		Schema: []query.Field{{Name: "a"}, {Name: "b"}},
		Rows:   []query.Row{{{Value: "1"}}},
	}, nil
}

func TestPageEviction(t *testing.T) {
	c := NewController(Config{Source: testSource(), Auth: &fakeAuth{exec: &fakeExecutor{}}, MaxPages: 2})
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		inst, err := c.Open(ctx, "index")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, inst.ID)
		if i == 1 {
			// Touch the first instance so the second is least recently used.
			if _, err := c.Lookup(ids[0]); err != nil {
				t.Fatal(err)
			}
		}
	}
	for i, want := range []error{nil, ErrUnknownPage, nil} {
		if _, err := c.Lookup(ids[i]); !errors.Is(err, want) {
			t.Errorf("Lookup(instance %d): got %v, want %v", i, err, want)
		}
	}
}

func TestStateString(t *testing.T) {
	var got []string
	for _, s := range []State{Idle, Authenticating, Querying, Rendering, Failed, State(42)} {
		got = append(got, s.String())
	}
	want := "idle authenticating querying rendering failed unknown"
	if g := strings.Join(got, " "); g != want {
		t.Errorf("got %q, want %q", g, want)
	}
}
