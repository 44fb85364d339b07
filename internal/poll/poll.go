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

// Package poll repeats a check at a fixed interval until it reports
// completion.
package poll

import (
	"context"
	"fmt"
	"time"

	gax "github.com/googleapis/gax-go/v2"
)

// Poller calls a check at a fixed interval.
type Poller struct {
	// Interval is the fixed pause before every check. It does not grow.
	Interval time.Duration
	// MaxWait bounds the accumulated pause. Zero means no bound.
	MaxWait time.Duration
	// Sleep pauses for the given duration or until the context is done.
	// Defaults to gax.Sleep.
	Sleep func(context.Context, time.Duration) error
}

// Until calls f once per interval until f's first return value is true. It
// returns when one of the following occurs:
//   - f returns stop=true: Until returns f's error (nil on success).
//   - f returns a non-nil error: Until returns that error without calling f
//     again. Errors are never retried.
//   - The accumulated wait reaches MaxWait (when MaxWait > 0): Until returns a
//     *TimeoutError.
//   - The context is done while waiting: Until returns the context's error.
//
// f is first called after one interval has elapsed.
func (p *Poller) Until(ctx context.Context, f func() (stop bool, err error)) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = gax.Sleep
	}
	var waited time.Duration
	attempts := 0
	for {
		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
		waited += p.Interval
		attempts++

		stop, err := f()
		if err != nil || stop {
			return err
		}
		if p.MaxWait > 0 && waited >= p.MaxWait {
			return &TimeoutError{MaxWait: p.MaxWait, Attempts: attempts}
		}
	}
}

// TimeoutError is returned by Until when the check did not report completion
// within the maximum wait.
type TimeoutError struct {
	// MaxWait is the configured bound on the accumulated wait.
	MaxWait time.Duration
	// Attempts is the number of times the check was called.
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("not complete after waiting %v (%d checks)", e.MaxWait, e.Attempts)
}
