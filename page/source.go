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
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// ErrNotFound is returned by a Source for a page that does not exist.
var ErrNotFound = errors.New("page: not found")

// Source loads page files by name. Names use forward slashes and are
// relative to the root of the source.
type Source interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// DirSource reads pages from a local directory. Names that would leave the
// directory are reported as not found.
type DirSource struct {
	fsys fs.FS
}

// NewDirSource returns a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{fsys: os.DirFS(dir)}
}

// ReadFile implements Source.
func (s *DirSource) ReadFile(_ context.Context, name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, ErrNotFound
	}
	b, err := fs.ReadFile(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("page: reading %s: %w", name, err)
	}
	return b, nil
}

// GCSSource reads pages from objects in a Cloud Storage bucket.
type GCSSource struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSource returns a GCSSource for a "gs://bucket/prefix" URI. The
// caller owns client.
func NewGCSSource(client *storage.Client, uri string) (*GCSSource, error) {
	bucket, prefix, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	return &GCSSource{client: client, bucket: bucket, prefix: prefix}, nil
}

// ParseGCSURI splits a "gs://bucket/prefix" URI. The prefix may be empty.
func ParseGCSURI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("page: %q is not a gs:// URI", uri)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("page: %q has no bucket", uri)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// ReadFile implements Source.
func (s *GCSSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, ErrNotFound
	}
	object := name
	if s.prefix != "" {
		object = path.Join(s.prefix, name)
	}
	r, err := s.client.Bucket(s.bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("page: opening gs://%s/%s: %w", s.bucket, object, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("page: reading gs://%s/%s: %w", s.bucket, object, err)
	}
	return b, nil
}
