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

package cli

import "testing"

func TestResolveBuildTarget(t *testing.T) {
	const specRef = "ghcr.io/acme/apiserver:v1.0.0"

	tests := []struct {
		name     string
		output   string
		wantRef  string
		wantDir  string
		wantPush bool
		wantErr  bool
	}{
		{
			name:    "local directory keeps spec reference",
			output:  "./out",
			wantRef: specRef,
			wantDir: "./out",
		},
		{
			name:     "registry target overrides reference and pushes",
			output:   "oci://localhost:5000/acme/apiserver:v2.0.0",
			wantRef:  "localhost:5000/acme/apiserver:v2.0.0",
			wantPush: true,
		},
		{
			name:     "registry target without tag gets default",
			output:   "oci://ghcr.io/acme/apiserver",
			wantRef:  "ghcr.io/acme/apiserver:" + defaultOCITag,
			wantPush: true,
		},
		{
			name:    "malformed registry target",
			output:  "oci://ghcr.io/ACME/apiserver",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target, err := resolveBuildTarget(specRef, tc.output)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("resolveBuildTarget(%q) expected error, got %+v", tc.output, target)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveBuildTarget(%q) error = %v", tc.output, err)
			}
			if target.Reference != tc.wantRef {
				t.Errorf("Reference = %q, want %q", target.Reference, tc.wantRef)
			}
			if target.LayoutDir != tc.wantDir {
				t.Errorf("LayoutDir = %q, want %q", target.LayoutDir, tc.wantDir)
			}
			if target.Push != tc.wantPush {
				t.Errorf("Push = %v, want %v", target.Push, tc.wantPush)
			}
		})
	}
}
