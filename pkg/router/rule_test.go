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

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apigate/apigate/pkg/manifest"
)

func apiRule() manifest.RouteRule {
	return manifest.RouteRule{
		Name:           "api",
		PathPattern:    manifest.DefaultPathPattern,
		RewriteTarget:  manifest.DefaultRewriteTarget,
		BackendService: manifest.DefaultServiceName,
		BackendPort:    manifest.DefaultServicePort,
	}
}

func TestCompile(t *testing.T) {
	rule, err := Compile(apiRule())
	require.NoError(t, err)
	assert.Equal(t, "api", rule.Name)
	assert.Equal(t, "http://apiserver-service:8000", rule.Backend)
}

func TestCompileInvalid(t *testing.T) {
	r := apiRule()
	r.PathPattern = "/api(["
	_, err := Compile(r)
	assert.Error(t, err)

	r = apiRule()
	r.RewriteTarget = "/$9"
	_, err = Compile(r)
	assert.Error(t, err)
}

func TestRewrite(t *testing.T) {
	rule, err := Compile(apiRule())
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		matched bool
	}{
		{name: "nested path", path: "/api/status", want: "/status", matched: true},
		{name: "deep path", path: "/api/v1/items/42", want: "/v1/items/42", matched: true},
		{name: "bare prefix maps to root", path: "/api", want: "/", matched: true},
		{name: "trailing slash maps to root", path: "/api/", want: "/", matched: true},
		{name: "prefix not followed by boundary", path: "/apiserver", matched: false},
		{name: "unrelated path", path: "/other", matched: false},
		{name: "root path", path: "/", matched: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := rule.Rewrite(tc.path)
			assert.Equal(t, tc.matched, ok)
			if tc.matched {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestRewriteAnchored(t *testing.T) {
	rule, err := Compile(apiRule())
	require.NoError(t, err)

	// The pattern only matches at the start of the path.
	_, ok := rule.Rewrite("/v1/api/status")
	assert.False(t, ok)
}

func TestRuleSetFirstMatchWins(t *testing.T) {
	narrow := manifest.RouteRule{
		Name:           "health",
		PathPattern:    `/api/health(/|$)(.*)`,
		RewriteTarget:  "/internal/health",
		BackendService: "health-service",
		BackendPort:    9000,
	}

	rs, err := NewRuleSet(narrow, apiRule())
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())

	rule, rewritten, ok := rs.Match("/api/health")
	require.True(t, ok)
	assert.Equal(t, "health", rule.Name)
	assert.Equal(t, "/internal/health", rewritten)

	rule, rewritten, ok = rs.Match("/api/status")
	require.True(t, ok)
	assert.Equal(t, "api", rule.Name)
	assert.Equal(t, "/status", rewritten)
}

func TestRuleSetNoMatch(t *testing.T) {
	rs, err := NewRuleSet(apiRule())
	require.NoError(t, err)

	_, _, ok := rs.Match("/other")
	assert.False(t, ok)
}

func TestNewRuleSetPropagatesRuleName(t *testing.T) {
	bad := apiRule()
	bad.PathPattern = "("
	_, err := NewRuleSet(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"api"`)
}
