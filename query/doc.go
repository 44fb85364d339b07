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

/*
Package query runs SQL against BigQuery and collects the complete result.

A query is submitted with jobs.query. When BigQuery does not finish the job
within the request timeout, the job is polled with jobs.getQueryResults at a
fixed interval until it reports completion. The rows of every result page are
then concatenated, in page order, into a single Result.

	client, err := query.NewClient(ctx, "my-project")
	if err != nil {
		// TODO: Handle error.
	}
	res, err := client.Execute(ctx, "SELECT name, total FROM dataset.table")
	if err != nil {
		// TODO: Handle error.
	}
	for _, row := range res.Rows {
		fmt.Println(row[0].Value, row[1].Value)
	}

The steps can also be driven one at a time with Client.Start, Job.Wait and
Job.Read.

# Errors

Errors from the BigQuery API are returned wrapped; use errors.As with
*googleapi.Error to inspect them. Nothing is retried. A poll that does not see
the job complete within the configured maximum wait fails with a
*WaitTimeoutError, and rows whose cell count does not match the schema fail
with a *RowShapeError.
*/
package query // import "cloud.google.com/go/bqembed/query"
