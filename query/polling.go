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
	"context"
	"time"
)

const (
	// DefaultPollInterval is the fixed pause between completion checks.
	DefaultPollInterval = time.Second
	// DefaultMaxWait bounds the accumulated pause while polling.
	DefaultMaxWait = 10 * time.Minute
)

type pollConfig struct {
	interval time.Duration
	maxWait  time.Duration
	sleep    func(context.Context, time.Duration) error
}

func defaultPollConfig() *pollConfig {
	return &pollConfig{
		interval: DefaultPollInterval,
		maxWait:  DefaultMaxWait,
	}
}

// PollOption configures how a Client waits for incomplete jobs.
type PollOption interface {
	apply(config *pollConfig)
}

// WithPollInterval sets the fixed pause between jobs.getQueryResults calls
// while a job is incomplete. The pause does not grow between calls.
func WithPollInterval(d time.Duration) PollOption {
	return withPollInterval(d)
}

type withPollInterval time.Duration

func (w withPollInterval) apply(config *pollConfig) {
	config.interval = time.Duration(w)
}

// WithMaxWait bounds the accumulated pause spent polling one job. When it is
// reached, Job.Wait returns a *WaitTimeoutError. Zero removes the bound; the
// context passed to Job.Wait still applies.
func WithMaxWait(d time.Duration) PollOption {
	return withMaxWait(d)
}

type withMaxWait time.Duration

func (w withMaxWait) apply(config *pollConfig) {
	config.maxWait = time.Duration(w)
}

// SetPolling configures the client with custom polling behavior. All jobs
// started by this client afterwards use the configuration.
func (c *Client) SetPolling(opts ...PollOption) {
	pc := *c.polling
	for _, opt := range opts {
		opt.apply(&pc)
	}
	c.polling = &pc
}
