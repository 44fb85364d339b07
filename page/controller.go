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
	"container/list"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"path"
	"strings"
	"sync"

	"cloud.google.com/go/bqembed/query"
	"cloud.google.com/go/bqembed/table"
	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2/internallog"
)

// DefaultMaxPages bounds the number of live page instances.
const DefaultMaxPages = 1000

var (
	// ErrUnknownPage is returned by Run for a page instance that was never
	// opened or has been evicted.
	ErrUnknownPage = errors.New("page: unknown page instance")
	// ErrUnknownWidget is returned by Run for a widget id the page does not
	// have.
	ErrUnknownWidget = errors.New("page: unknown widget")
)

// Executor runs a query to completion.
type Executor interface {
	Execute(ctx context.Context, sql string) (*query.Result, error)
}

// Authenticator returns a ready Executor, authenticating first if needed.
type Authenticator interface {
	Ensure(ctx context.Context) (Executor, error)
}

// Config configures a Controller.
type Config struct {
	Source Source
	Auth   Authenticator
	// Editable lets readers change query text before running it.
	Editable bool
	// MaxPages defaults to DefaultMaxPages.
	MaxPages int
	// ScriptURL defaults to DefaultScriptURL.
	ScriptURL string
	Logger    *slog.Logger
}

// Instance is one served copy of a page. Each time a page is opened it gets
// a new instance with its own widgets.
type Instance struct {
	// ID identifies the instance in run requests.
	ID string
	// Name is the page name it was opened from.
	Name string

	doc     *Document
	widgets map[string]*Widget
	order   []*Widget
}

// HTML returns the rewritten page.
func (i *Instance) HTML() []byte {
	return i.doc.HTML()
}

// Widget returns the widget with the given id.
func (i *Instance) Widget(id string) (*Widget, bool) {
	w, ok := i.widgets[id]
	return w, ok
}

// Widgets returns the widgets in document order.
func (i *Instance) Widgets() []*Widget {
	return i.order
}

// Outcome is the result of a run.
type Outcome struct {
	// Seq is the sequence number of the run within its widget.
	Seq uint64
	// HTML is the results table. It is empty when Stale is set.
	HTML template.HTML
	// Stale reports that a later run of the same widget started before this
	// one finished, so this run's result was not applied.
	Stale bool
}

// Controller opens pages and runs their widgets. It is safe for concurrent
// use.
type Controller struct {
	src       Source
	auth      Authenticator
	editable  bool
	scriptURL string
	maxPages  int
	logger    *slog.Logger

	mu    sync.Mutex
	lru   *list.List // of *Instance, most recent first
	pages map[string]*list.Element
}

// NewController returns a Controller.
func NewController(cfg Config) *Controller {
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Controller{
		src:       cfg.Source,
		auth:      cfg.Auth,
		editable:  cfg.Editable,
		scriptURL: cfg.ScriptURL,
		maxPages:  maxPages,
		logger:    internallog.New(cfg.Logger),
		lru:       list.New(),
		pages:     make(map[string]*list.Element),
	}
}

// Open loads the named page and registers a new instance of it. The name has
// no extension: "name.html" is tried first, then "name.md". It returns
// ErrNotFound if neither exists.
func (c *Controller) Open(ctx context.Context, name string) (*Instance, error) {
	name = strings.Trim(path.Clean("/"+name), "/")
	if name == "" {
		name = "index"
	}
	src, err := c.load(ctx, name)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	doc, err := Rewrite(bytes.NewReader(src), RewriteOptions{
		PageID:    id,
		Editable:  c.editable,
		ScriptURL: c.scriptURL,
	})
	if err != nil {
		return nil, err
	}
	inst := &Instance{
		ID:      id,
		Name:    name,
		doc:     doc,
		widgets: make(map[string]*Widget, len(doc.Blocks)),
	}
	for _, b := range doc.Blocks {
		w := &Widget{ID: b.Widget, Query: b.Query}
		inst.widgets[w.ID] = w
		inst.order = append(inst.order, w)
	}
	c.register(inst)
	c.logger.DebugContext(ctx, "page: opened", "page", name, "instance", id, "widgets", len(inst.order))
	return inst, nil
}

func (c *Controller) load(ctx context.Context, name string) ([]byte, error) {
	b, err := c.src.ReadFile(ctx, name+".html")
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	md, err := c.src.ReadFile(ctx, name+".md")
	if err != nil {
		return nil, err
	}
	return MarkdownToHTML(md)
}

func (c *Controller) register(inst *Instance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[inst.ID] = c.lru.PushFront(inst)
	for c.lru.Len() > c.maxPages {
		e := c.lru.Back()
		c.lru.Remove(e)
		delete(c.pages, e.Value.(*Instance).ID)
	}
}

// Lookup returns a registered page instance and marks it recently used.
func (c *Controller) Lookup(id string) (*Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.pages[id]
	if !ok {
		return nil, ErrUnknownPage
	}
	c.lru.MoveToFront(e)
	return e.Value.(*Instance), nil
}

// Run executes sql for a widget and renders the result. An empty sql runs the
// block text as written in the page.
//
// Every run takes the next sequence number of its widget. The result is
// applied to the widget only if no later run of the same widget has started;
// otherwise the Outcome is marked Stale. A stale run that fails returns a
// stale Outcome instead of its error.
func (c *Controller) Run(ctx context.Context, pageID, widgetID, sql string) (*Outcome, error) {
	inst, err := c.Lookup(pageID)
	if err != nil {
		return nil, err
	}
	w, ok := inst.Widget(widgetID)
	if !ok {
		return nil, ErrUnknownWidget
	}
	if strings.TrimSpace(sql) == "" {
		sql = w.Query
	}

	seq := w.begin()
	failed := func(err error) (*Outcome, error) {
		if !w.fail(seq, err) {
			return &Outcome{Seq: seq, Stale: true}, nil
		}
		c.logger.DebugContext(ctx, "page: run failed", "instance", pageID, "widget", widgetID, "seq", seq, "error", err)
		return nil, err
	}

	exec, err := c.auth.Ensure(ctx)
	if err != nil {
		return failed(err)
	}
	w.advance(seq, Querying)
	res, err := exec.Execute(ctx, sql)
	if err != nil {
		return failed(err)
	}
	w.advance(seq, Rendering)
	tbl, err := table.Render(res)
	if err != nil {
		return failed(err)
	}
	out, err := tbl.HTML()
	if err != nil {
		return failed(fmt.Errorf("page: rendering table: %w", err))
	}
	if !w.succeed(seq, out) {
		return &Outcome{Seq: seq, Stale: true}, nil
	}
	c.logger.DebugContext(ctx, "page: run complete", "instance", pageID, "widget", widgetID, "seq", seq, "rows", len(res.Rows))
	return &Outcome{Seq: seq, HTML: out}, nil
}
