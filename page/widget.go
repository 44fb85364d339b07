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
	"html/template"
	"sync"
)

// State is the run state of a widget.
type State int

const (
	// Idle means no run is in progress.
	Idle State = iota
	// Authenticating means the latest run is waiting for a query client.
	Authenticating
	// Querying means the latest run is executing its query.
	Querying
	// Rendering means the latest run is building its results table.
	Rendering
	// Failed means the latest run ended with an error.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Authenticating:
		return "authenticating"
	case Querying:
		return "querying"
	case Rendering:
		return "rendering"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Widget is one query block of a page instance. Runs of a widget may overlap;
// only the most recently started run changes its state.
type Widget struct {
	// ID is unique within the page.
	ID string
	// Query is the block text as written in the page.
	Query string

	mu      sync.Mutex
	seq     uint64
	state   State
	results template.HTML
	err     error
}

// Snapshot is the observable state of a widget.
type Snapshot struct {
	// Seq is the sequence number of the latest run, zero before any.
	Seq   uint64
	State State
	// Results is the markup of the results region.
	Results template.HTML
	// Err is the error of the latest run when State is Failed.
	Err error
}

// Snapshot returns the current state of the widget.
func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{Seq: w.seq, State: w.state, Results: w.results, Err: w.err}
}

// begin starts a run and returns its sequence number.
func (w *Widget) begin() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	w.state = Authenticating
	w.err = nil
	return w.seq
}

// advance moves the widget to state if seq is still the latest run.
func (w *Widget) advance(seq uint64, state State) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.seq {
		return false
	}
	w.state = state
	return true
}

// succeed replaces the results region if seq is still the latest run.
func (w *Widget) succeed(seq uint64, results template.HTML) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.seq {
		return false
	}
	w.state = Idle
	w.results = results
	return true
}

// fail records err if seq is still the latest run. The results region keeps
// its previous content.
func (w *Widget) fail(seq uint64, err error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.seq {
		return false
	}
	w.state = Failed
	w.err = err
	return true
}
