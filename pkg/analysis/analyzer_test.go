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

package analysis

import (
	"testing"
	"unicode"

	"github.com/blugelabs/bluge/analysis/analyzer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBuiltins(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{AnalyzerStandard, AnalyzerKeyword, AnalyzerSimple, AnalyzerWhitespace, AnalyzerURL} {
		a, err := r.Resolve(name)
		require.NoError(t, err, name)
		assert.NotNil(t, a, name)
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	a, err := r.Resolve("KeyWord")
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestResolveUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("nope")
	assert.ErrorIs(t, err, ErrAnalyzerNotFound)
}

func TestRegisterOverrides(t *testing.T) {
	r := NewRegistry()
	custom := analyzer.NewKeywordAnalyzer()
	r.Register("Mine", custom)
	got, err := r.Resolve("mine")
	require.NoError(t, err)
	assert.Same(t, custom, got)
}

func TestURLAnalyzerTokenizesAlphanumericRuns(t *testing.T) {
	r := NewRegistry()
	a, err := r.Resolve(AnalyzerURL)
	require.NoError(t, err)
	tokens := a.Analyze([]byte("https://example.com/a1"))
	assert.NotEmpty(t, tokens)
	for _, tok := range tokens {
		for _, c := range string(tok.Term) {
			assert.True(t, unicode.IsLetter(c) || unicode.IsNumber(c),
				"unexpected rune %q in token %q", c, tok.Term)
		}
	}
}
