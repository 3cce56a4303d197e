// Copyright (c) 2025, the apigate authors.  All rights reserved.
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

package manifest

import (
	"sync"
	"time"
)

// Document is a versioned, whole-document-replacement holder for a stack
// spec. There is no field-level patching: Replace swaps the entire record
// under the document lock, so concurrent writers race with clean
// last-write-wins semantics instead of interleaved partial updates.
type Document struct {
	mu       sync.RWMutex
	spec     *StackSpec
	revision int64
	updated  time.Time
}

// NewDocument creates a document at revision 1 holding the given spec.
// The spec is copied so later caller mutations don't leak in.
func NewDocument(spec *StackSpec) *Document {
	s := *spec
	return &Document{
		spec:     &s,
		revision: 1,
		updated:  time.Now().UTC(),
	}
}

// Get returns a copy of the current spec and its revision. The copy is
// safe to read and mutate without holding any lock.
func (d *Document) Get() (StackSpec, int64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return *d.spec, d.revision
}

// Replace swaps the entire spec and bumps the revision. It returns the new
// revision. The previous spec is discarded whole; there is no merge.
func (d *Document) Replace(spec *StackSpec) int64 {
	s := *spec

	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec = &s
	d.revision++
	d.updated = time.Now().UTC()
	return d.revision
}

// Revision returns the current revision number.
func (d *Document) Revision() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// UpdatedAt returns when the document was last replaced.
func (d *Document) UpdatedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.updated
}
