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
	"net/http"

	"cloud.google.com/go/bqembed/internal"
	"cloud.google.com/go/bqembed/internal/trace"
	bq "google.golang.org/api/bigquery/v2"
)

// service is the subset of the BigQuery REST API used to run queries.
// *bigqueryService implements it over the generated client; tests substitute
// scripted fakes.
type service interface {
	// query calls jobs.query.
	query(ctx context.Context, projectID string, req *bq.QueryRequest) (*queryPage, error)
	// getQueryResults calls jobs.getQueryResults for the job. An empty
	// pageToken asks for the first page.
	getQueryResults(ctx context.Context, job JobHandle, pageToken string) (*queryPage, error)
}

// queryPage is the part of a jobs.query or jobs.getQueryResults response
// that this package uses.
type queryPage struct {
	complete  bool
	job       JobHandle
	pageToken string
	schema    *bq.TableSchema
	rows      []*bq.TableRow
}

func setClientHeader(headers http.Header) {
	headers.Set("x-goog-api-client", internal.APIClientHeader)
}

type bigqueryService struct {
	s *bq.Service
}

func (s *bigqueryService) query(ctx context.Context, projectID string, req *bq.QueryRequest) (*queryPage, error) {
	call := s.s.Jobs.Query(projectID, req).Context(ctx)
	setClientHeader(call.Header())

	sCtx := trace.StartSpan(ctx, "bqembed.jobs.query")
	res, err := call.Do()
	trace.EndSpan(sCtx, err)
	if err != nil {
		return nil, fmt.Errorf("bqembed: jobs.query: %w", err)
	}
	return &queryPage{
		complete:  res.JobComplete,
		job:       handleFromReference(res.JobReference, projectID, req.Location),
		pageToken: res.PageToken,
		schema:    res.Schema,
		rows:      res.Rows,
	}, nil
}

func (s *bigqueryService) getQueryResults(ctx context.Context, job JobHandle, pageToken string) (*queryPage, error) {
	call := s.s.Jobs.GetQueryResults(job.ProjectID, job.JobID).Context(ctx)
	if job.Location != "" {
		call = call.Location(job.Location)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	setClientHeader(call.Header())

	sCtx := trace.StartSpan(ctx, "bqembed.jobs.getQueryResults")
	trace.TracePrintf(sCtx, map[string]interface{}{"page_token": pageToken != ""}, "job %s", job.JobID)
	res, err := call.Do()
	trace.EndSpan(sCtx, err)
	if err != nil {
		return nil, fmt.Errorf("bqembed: jobs.getQueryResults: %w", err)
	}
	return &queryPage{
		complete:  res.JobComplete,
		job:       handleFromReference(res.JobReference, job.ProjectID, job.Location),
		pageToken: res.PageToken,
		schema:    res.Schema,
		rows:      res.Rows,
	}, nil
}

func handleFromReference(ref *bq.JobReference, projectID, location string) JobHandle {
	h := JobHandle{ProjectID: projectID, Location: location}
	if ref == nil {
		return h
	}
	h.JobID = ref.JobId
	if ref.ProjectId != "" {
		h.ProjectID = ref.ProjectId
	}
	if ref.Location != "" {
		h.Location = ref.Location
	}
	return h
}
