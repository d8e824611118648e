// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/coursesearch/core"
)

// FingerprintSuffix is appended to a snapshot path to name its fingerprint
// sidecar.
const FingerprintSuffix = ".fingerprint"

// Snapshot is the parsed content of a snapshot file together with the
// fingerprint of the bytes it was read from.
type Snapshot struct {
	Courses     []*core.Course
	Fingerprint string
}

// ReadSnapshot reads and parses a JSON array of courses. The catalog is
// validated before it is returned.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnreadable, err)
	}

	courses, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Snapshot{
		Courses:     courses,
		Fingerprint: core.Fingerprint(data),
	}, nil
}

// Parse decodes a snapshot from data and validates it.
func Parse(data []byte) ([]*core.Course, error) {
	var courses []*core.Course
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&courses); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotMalformed, err)
	}
	if courses == nil {
		return nil, fmt.Errorf("%w: not a JSON array", ErrSnapshotMalformed)
	}
	if err := core.ValidateCatalog(courses); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotMalformed, err)
	}
	return courses, nil
}

// WriteSnapshot writes courses as an indented JSON array. The file is
// written to a temporary sibling and renamed into place so a failed write
// never leaves a truncated snapshot behind.
func WriteSnapshot(path string, courses []*core.Course) error {
	data, err := json.MarshalIndent(courses, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return writeAtomic(path, data)
}

// ReadFingerprint returns the fingerprint stored next to a snapshot, or an
// empty string when there is none.
func ReadFingerprint(snapshotPath string) (string, error) {
	data, err := os.ReadFile(snapshotPath + FingerprintSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteFingerprint stores fingerprint next to a snapshot.
func WriteFingerprint(snapshotPath, fingerprint string) error {
	return writeAtomic(snapshotPath+FingerprintSuffix, []byte(fingerprint+"\n"))
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
