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
	"fmt"
	"regexp"
	"strings"

	"github.com/apigate/apigate/pkg/manifest"
)

// Rule is a compiled route rule: an anchored path regex, a rewrite
// template, and the backend it forwards to.
type Rule struct {
	pattern *regexp.Regexp
	rewrite string

	// Name is the source rule name, used in logs and metrics labels.
	Name string
	// Backend is the upstream base URL (scheme://host:port).
	Backend string
}

// Compile validates and compiles a manifest route rule. The pattern is
// anchored at the start of the path; the in-cluster service DNS name forms
// the backend URL.
func Compile(r manifest.RouteRule) (*Rule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	pattern := r.PathPattern
	if !strings.HasPrefix(pattern, "^") {
		pattern = "^" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		// Validate compiled the unanchored form already; this only fires
		// for patterns that become invalid when anchored.
		return nil, fmt.Errorf("failed to compile anchored pattern %q: %w", pattern, err)
	}

	return &Rule{
		pattern: re,
		rewrite: r.RewriteTarget,
		Name:    r.Name,
		Backend: fmt.Sprintf("http://%s:%d", r.BackendService, r.BackendPort),
	}, nil
}

// Rewrite tests path against the rule. On a match it returns the rewritten
// upstream path and true. An empty rewrite result maps to "/" so the
// upstream always receives a rooted path.
func (r *Rule) Rewrite(path string) (string, bool) {
	idx := r.pattern.FindStringSubmatchIndex(path)
	if idx == nil {
		return "", false
	}

	out := r.pattern.ExpandString(nil, r.rewrite, path, idx)
	rewritten := string(out)
	if rewritten == "" {
		rewritten = "/"
	}
	return rewritten, true
}

// RuleSet is an ordered collection of compiled rules. Match returns the
// first rule whose pattern matches: declaration order is the documented
// tie-break when patterns overlap.
type RuleSet struct {
	rules []*Rule
}

// NewRuleSet compiles the given manifest rules in order.
func NewRuleSet(rules ...manifest.RouteRule) (*RuleSet, error) {
	rs := &RuleSet{rules: make([]*Rule, 0, len(rules))}
	for _, r := range rules {
		compiled, err := Compile(r)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		rs.rules = append(rs.rules, compiled)
	}
	return rs, nil
}

// Match finds the first matching rule for path and returns it with the
// rewritten upstream path.
func (rs *RuleSet) Match(path string) (*Rule, string, bool) {
	for _, r := range rs.rules {
		if rewritten, ok := r.Rewrite(path); ok {
			return r, rewritten, true
		}
	}
	return nil, "", false
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}
