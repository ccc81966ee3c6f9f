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

// Package search parses game list queries such as
// `status:completed team:"Blue Jays" date:>=2026-04-01 finals`.
package search

import (
	"strings"
	"unicode"
)

// Operator defines the type of comparison for a filter.
type Operator string

const (
	OpEqual          Operator = "="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpRange          Operator = ".." // date:2026-04..2026-05
)

// Longest prefix first so ">=" is not read as ">".
var prefixOperators = []Operator{OpGreaterOrEqual, OpLessOrEqual, OpGreater, OpLess}

// Filter is one key:value criterion.
type Filter struct {
	Key      string
	Value    string
	MaxValue string // OpRange only
	Operator Operator
}

// Query is a parsed list query.
type Query struct {
	Filters  []Filter
	FreeText []string
}

// Parse splits input into filters and free text. Keys and free text are
// lower-cased; filter values keep their case.
func Parse(input string) Query {
	q := Query{
		Filters:  make([]Filter, 0),
		FreeText: make([]string, 0),
	}

	for _, token := range Tokenize(input) {
		key, val, ok := strings.Cut(token, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		quoted := strings.HasPrefix(val, "\"") || strings.HasPrefix(val, "'")
		// "foo:", ":bar" and "a:b:c" are free text.
		if !ok || key == "" || val == "" || (strings.Contains(val, ":") && !quoted) {
			q.FreeText = append(q.FreeText, strings.ToLower(Unquote(token)))
			continue
		}
		q.Filters = append(q.Filters, parseFilter(key, val))
	}
	return q
}

func parseFilter(key, val string) Filter {
	if lo, hi, ok := strings.Cut(val, ".."); ok {
		return Filter{Key: key, Value: Unquote(lo), MaxValue: Unquote(hi), Operator: OpRange}
	}
	for _, op := range prefixOperators {
		if rest, ok := strings.CutPrefix(val, string(op)); ok {
			return Filter{Key: key, Value: Unquote(rest), Operator: op}
		}
	}
	return Filter{Key: key, Value: Unquote(val), Operator: OpEqual}
}

// Tokenize splits the string on white space, keeping quoted runs together.
// Quotes stay in the token; use Unquote to strip them.
func Tokenize(input string) []string {
	var tokens []string
	var current strings.Builder
	quote := rune(0)

	for _, r := range input {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			current.WriteRune(r)
		case unicode.IsSpace(r):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		case r == '"' || r == '\'':
			quote = r
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// Unquote removes one pair of matching surrounding quotes.
func Unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
