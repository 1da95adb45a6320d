// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package analysis provides a registry resolving analyzer names to
// tokenizer+filter pipelines of the underlying index engine.
package analysis

import (
	"bytes"
	"strings"
	"sync"
	"unicode"

	"github.com/blugelabs/bluge/analysis"
	"github.com/blugelabs/bluge/analysis/analyzer"
	"github.com/blugelabs/bluge/analysis/tokenizer"
	"github.com/pkg/errors"
)

// Built-in analyzer names.
const (
	AnalyzerStandard   = "standard"
	AnalyzerKeyword    = "keyword"
	AnalyzerSimple     = "simple"
	AnalyzerWhitespace = "whitespace"
	AnalyzerURL        = "url"
)

// ErrAnalyzerNotFound indicates the requested analyzer is not registered.
var ErrAnalyzerNotFound = errors.New("analyzer not found")

// Registry resolves analyzer names to built analyzers.
// Names are matched case-insensitively.
type Registry struct {
	analyzers map[string]*analysis.Analyzer
	mu        sync.RWMutex
}

// NewRegistry creates a Registry seeded with the built-in analyzers.
func NewRegistry() *Registry {
	return &Registry{
		analyzers: map[string]*analysis.Analyzer{
			AnalyzerStandard:   analyzer.NewStandardAnalyzer(),
			AnalyzerKeyword:    analyzer.NewKeywordAnalyzer(),
			AnalyzerSimple:     analyzer.NewSimpleAnalyzer(),
			AnalyzerWhitespace: {Tokenizer: tokenizer.NewWhitespaceTokenizer()},
			AnalyzerURL:        newURLAnalyzer(),
		},
	}
}

// Register adds or replaces an analyzer under the given name.
func (r *Registry) Register(name string, a *analysis.Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[strings.ToLower(name)] = a
}

// Resolve returns the analyzer registered under name.
func (r *Registry) Resolve(name string) (*analysis.Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[strings.ToLower(name)]
	if !ok {
		return nil, errors.Wrap(ErrAnalyzerNotFound, name)
	}
	return a, nil
}

func newURLAnalyzer() *analysis.Analyzer {
	return &analysis.Analyzer{
		Tokenizer: tokenizer.NewCharacterTokenizer(func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsNumber(r)
		}),
		TokenFilters: []analysis.TokenFilter{
			newAlphanumericFilter(),
		},
	}
}

type alphanumericFilter struct{}

func newAlphanumericFilter() *alphanumericFilter {
	return &alphanumericFilter{}
}

func (f *alphanumericFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, token := range input {
		termRunes := []rune{}
		for _, r := range bytes.Runes(token.Term) {
			if unicode.IsLetter(r) || unicode.IsNumber(r) {
				termRunes = append(termRunes, r)
			}
		}
		token.Term = analysis.BuildTermFromRunes(termRunes)
	}
	return input
}
