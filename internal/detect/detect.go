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

// Package detect resolves the project that queries are billed to.
package detect

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/transport"
)

const (
	// ProjectIDSentinel asks ProjectID to detect the project.
	ProjectIDSentinel = "*detect-project-id*"

	envProjectID = "GOOGLE_CLOUD_PROJECT"
)

var (
	// for testing
	envLookupFunc = os.Getenv
	adcLookupFunc = transport.Creds
)

// ProjectID tries to detect the project ID from the environment if the sentinel
// value, "*detect-project-id*", is sent. It looks in the following order:
//  1. GOOGLE_CLOUD_PROJECT envvar
//  2. ADC creds.ProjectID
func ProjectID(ctx context.Context, projectID string, opts ...option.ClientOption) (string, error) {
	if projectID != ProjectIDSentinel {
		return projectID, nil
	}
	if id := envLookupFunc(envProjectID); id != "" {
		return id, nil
	}
	creds, err := adcLookupFunc(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("detect: fetching creds: %w", err)
	}
	if creds.ProjectID == "" {
		return "", errors.New("detect: unable to detect project ID; set project-id or GOOGLE_CLOUD_PROJECT")
	}
	return creds.ProjectID, nil
}
