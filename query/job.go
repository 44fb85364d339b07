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
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bqembed/internal/poll"
)

// JobHandle identifies an asynchronous BigQuery query job.
type JobHandle struct {
	ProjectID string
	JobID     string
	Location  string
}

func (h JobHandle) String() string {
	if h.Location == "" {
		return fmt.Sprintf("%s:%s", h.ProjectID, h.JobID)
	}
	return fmt.Sprintf("%s:%s.%s", h.ProjectID, h.Location, h.JobID)
}

// A Job is a query submitted by Client.Start.
//
// Wait and Read must not be called concurrently.
type Job struct {
	c *Client

	// last is the most recent response for the job.
	last *queryPage
	// completion is the response in which completion was first observed.
	completion *queryPage
}

// Handle returns the identity of the job.
func (j *Job) Handle() JobHandle {
	return j.last.job
}

// Complete reports whether completion has been observed.
func (j *Job) Complete() bool {
	return j.completion != nil
}

// Wait blocks until the job is complete. While it is not, Wait sleeps for the
// client's poll interval and calls jobs.getQueryResults again. Wait returns
// a *WaitTimeoutError if the client's maximum wait is reached first, and the
// context's error if ctx is done. API errors are returned without retrying.
func (j *Job) Wait(ctx context.Context) error {
	if j.Complete() {
		return nil
	}
	h := j.Handle()
	if h.JobID == "" {
		return errors.New("bqembed: incomplete query response has no job reference")
	}
	cfg := j.c.polling
	p := &poll.Poller{
		Interval: cfg.interval,
		MaxWait:  cfg.maxWait,
		Sleep:    cfg.sleep,
	}
	polls := 0
	err := p.Until(ctx, func() (bool, error) {
		polls++
		page, err := j.c.svc.getQueryResults(ctx, h, "")
		if err != nil {
			return true, err
		}
		j.last = page
		j.c.logger.DebugContext(ctx, "bqembed: polled job", "job", h.String(), "poll", polls, "complete", page.complete)
		if page.complete {
			j.completion = page
		}
		return page.complete, nil
	})
	var te *poll.TimeoutError
	if errors.As(err, &te) {
		return &WaitTimeoutError{Job: h, MaxWait: te.MaxWait, Polls: te.Attempts}
	}
	return err
}

// Read returns the result of a complete job: the schema and rows of the
// response in which completion was observed, followed by the rows of every
// further page, in page order.
func (j *Job) Read(ctx context.Context) (*Result, error) {
	if !j.Complete() {
		return nil, errors.New("bqembed: Read called before the job completed")
	}
	first := j.completion
	res := &Result{Schema: fieldsFromSchema(first.schema), Rows: []Row{}}
	if err := res.appendRows(first.rows); err != nil {
		return nil, err
	}

	h := first.job
	token := first.pageToken
	pages := 1
	for token != "" {
		if h.JobID == "" {
			return nil, errors.New("bqembed: paginated response has no job reference")
		}
		page, err := j.c.svc.getQueryResults(ctx, h, token)
		if err != nil {
			return nil, err
		}
		if err := res.appendRows(page.rows); err != nil {
			return nil, err
		}
		token = page.pageToken
		pages++
	}
	j.c.logger.DebugContext(ctx, "bqembed: read job result", "job", h.String(), "pages", pages, "rows", len(res.Rows))
	return res, nil
}

// WaitTimeoutError is returned by Job.Wait when the job did not complete
// within the client's maximum wait.
type WaitTimeoutError struct {
	Job     JobHandle
	MaxWait time.Duration
	Polls   int
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("bqembed: job %s not complete after %v (%d polls)", e.Job, e.MaxWait, e.Polls)
}
