// Copyright (c) 2026 TTBT Enterprises LLC
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

package search

import "strings"

// Record is the searchable face of a list entry.
type Record struct {
	// Fields maps a filter key to the values it matches, case-insensitively
	// by substring. A key with several values matches if any value does.
	Fields map[string][]string

	// Ordered maps a filter key to a value compared with the range
	// operators, such as an RFC 3339 date.
	Ordered map[string]string
}

// Matches reports whether r satisfies every filter and every free-text
// word. Free text is looked up in all Fields. Unknown keys never match.
func (q Query) Matches(r Record) bool {
	for _, word := range q.FreeText {
		if !anyContains(r.all(), word) {
			return false
		}
	}
	for _, f := range q.Filters {
		if v, ok := r.Ordered[f.Key]; ok {
			if !compare(v, f) {
				return false
			}
			continue
		}
		vals, ok := r.Fields[f.Key]
		if !ok || !anyContains(vals, strings.ToLower(f.Value)) {
			return false
		}
	}
	return true
}

func (r Record) all() []string {
	var out []string
	for _, v := range r.Fields {
		out = append(out, v...)
	}
	return out
}

func anyContains(vals []string, substrLower string) bool {
	for _, v := range vals {
		if strings.Contains(strings.ToLower(v), substrLower) {
			return true
		}
	}
	return false
}

func compare(v string, f Filter) bool {
	switch f.Operator {
	case OpEqual:
		return strings.HasPrefix(v, f.Value)
	case OpGreater:
		return v > f.Value
	case OpGreaterOrEqual:
		return v >= f.Value
	case OpLess:
		return v < f.Value
	case OpLessOrEqual:
		return v <= f.Value
	case OpRange:
		// "~" sorts after every digit and letter so the upper bound is
		// inclusive of anything it prefixes.
		return v >= f.Value && v <= f.MaxValue+"~"
	}
	return true
}
