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
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/bqembed/internal"
	"cloud.google.com/go/bqembed/internal/detect"
	"github.com/googleapis/gax-go/v2/internallog"
	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// Scope is the read-only OAuth2 scope for running queries.
	Scope = "https://www.googleapis.com/auth/bigquery.readonly"
	// PlatformReadOnlyScope is requested together with Scope.
	PlatformReadOnlyScope = "https://www.googleapis.com/auth/cloud-platform.read-only"

	// DefaultLocation is the location queries run in unless Client.Location
	// is changed.
	DefaultLocation = "EU"
	// DefaultQueryTimeout is how long jobs.query waits for the job before
	// returning an incomplete response.
	DefaultQueryTimeout = 10 * time.Second
)

// DetectProjectID is a sentinel value that instructs NewClient to detect the
// project ID. It is given in place of the projectID argument. NewClient will
// use the GOOGLE_CLOUD_PROJECT environment variable or the project ID of the
// application default credentials.
const DetectProjectID = detect.ProjectIDSentinel

// Client runs queries in a single billing project.
// A Client is safe for concurrent use.
type Client struct {
	// Location is the location queries run in. Defaults to DefaultLocation.
	Location string

	// QueryTimeout bounds how long the initial jobs.query call waits for the
	// job server-side. It does not bound polling; see WithMaxWait.
	QueryTimeout time.Duration

	projectID string
	svc       service
	polling   *pollConfig
	logger    *slog.Logger
}

// NewClient constructs a new Client which can run queries billed to the
// given project.
//
// If the project ID is set to DetectProjectID, NewClient will attempt to detect
// the project ID.
func NewClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*Client, error) {
	o := []option.ClientOption{
		option.WithScopes(Scope, PlatformReadOnlyScope),
		option.WithUserAgent(internal.UserAgent),
	}
	o = append(o, opts...)
	bqs, err := bq.NewService(ctx, o...)
	if err != nil {
		return nil, fmt.Errorf("bqembed: constructing client: %w", err)
	}
	projectID, err = detect.ProjectID(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	return newClient(projectID, &bigqueryService{s: bqs}), nil
}

func newClient(projectID string, svc service) *Client {
	return &Client{
		Location:     DefaultLocation,
		QueryTimeout: DefaultQueryTimeout,
		projectID:    projectID,
		svc:          svc,
		polling:      defaultPollConfig(),
		logger:       internallog.New(nil),
	}
}

// Project returns the project ID queries are billed to.
func (c *Client) Project() string {
	return c.projectID
}

// SetLogger sets the logger used for job progress. A nil logger restores the
// default, which is controlled by the GOOGLE_SDK_GO_LOGGING_LEVEL environment
// variable.
func (c *Client) SetLogger(l *slog.Logger) {
	c.logger = internallog.New(l)
}

// Execute submits sql, waits for the job to complete and returns every row of
// the result.
func (c *Client) Execute(ctx context.Context, sql string) (*Result, error) {
	job, err := c.Start(ctx, sql)
	if err != nil {
		return nil, err
	}
	if err := job.Wait(ctx); err != nil {
		return nil, err
	}
	return job.Read(ctx)
}

// Start submits sql with jobs.query and returns a handle to the job. The
// returned Job may already be complete.
func (c *Client) Start(ctx context.Context, sql string) (*Job, error) {
	req := &bq.QueryRequest{
		Query:        sql,
		UseLegacySql: googleapi.Bool(false),
		Location:     c.Location,
		TimeoutMs:    c.QueryTimeout.Milliseconds(),
	}
	page, err := c.svc.query(ctx, c.projectID, req)
	if err != nil {
		return nil, err
	}
	job := &Job{c: c, last: page}
	if page.complete {
		job.completion = page
	}
	c.logger.DebugContext(ctx, "bqembed: query submitted", "job", page.job.JobID, "complete", page.complete)
	return job, nil
}
