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

package kql

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// ErrSyntax marks parse failures. The wrapped message carries the
// position information reported by the parser.
var ErrSyntax = errors.New("syntax error")

// Lexer and parsers are initialized in init().
var (
	kqlLexer       lexer.Definition
	queryParser    *participle.Parser[grammarQuery]
	functionParser *participle.Parser[grammarFunctionCall]
)

func init() {
	kqlLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Keyword", Pattern: `(?i)\b(and|or|not|eq)\b`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "String", Pattern: `'(?:[^'\\]|\\.)*'`},
		{Name: "Operators", Pattern: `>=|<=|[=><,:(){}\[\]]`},
		{Name: "whitespace", Pattern: `\s+`},
	})

	options := []participle.Option{
		participle.Lexer(kqlLexer),
		participle.Unquote("String"),
		participle.CaseInsensitive("Keyword"),
		participle.UseLookahead(2),
	}
	var err error
	queryParser, err = participle.Build[grammarQuery](options...)
	if err != nil {
		panic(fmt.Sprintf("failed to build KQL query parser: %v", err))
	}
	functionParser, err = participle.Build[grammarFunctionCall](options...)
	if err != nil {
		panic(fmt.Sprintf("failed to build KQL function parser: %v", err))
	}
}

// ParseQuery parses a KQL query string into its AST.
// The returned tree is immutable and safe for concurrent readers.
func ParseQuery(query string) (Node, error) {
	grammar, err := queryParser.ParseString("", query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return grammar.toAST(), nil
}

// ParseFunction parses a bare function-call expression, e.g. "add(f1, '2')".
// It backs computed-field scripts and the function evaluation surface.
func ParseFunction(expr string) (*FunctionNode, error) {
	grammar, err := functionParser.ParseString("", expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return grammar.toAST(), nil
}
