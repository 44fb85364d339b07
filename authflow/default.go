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

package authflow

import (
	"context"
	"fmt"

	"cloud.google.com/go/auth/credentials"
	"cloud.google.com/go/auth/oauth2adapt"
	"golang.org/x/oauth2"
)

// DefaultCredentials is Credentials backed by Application Default
// Credentials.
type DefaultCredentials struct {
	// Options overrides the detection options. Scopes defaults to Scopes.
	Options *credentials.DetectOptions
}

// TokenSource detects the default credentials and adapts them to an
// oauth2.TokenSource.
func (d *DefaultCredentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	opts := &credentials.DetectOptions{}
	if d.Options != nil {
		o := *d.Options
		opts = &o
	}
	if len(opts.Scopes) == 0 {
		opts.Scopes = Scopes
	}
	creds, err := credentials.DetectDefault(opts)
	if err != nil {
		return nil, fmt.Errorf("authflow: detecting default credentials: %w", err)
	}
	return oauth2adapt.TokenSourceFromTokenProvider(creds), nil
}
