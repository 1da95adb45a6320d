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

//nolint:govet // ignore fieldalignment in this file; layout is the KQL grammar
package kql

import (
	"strings"
)

// grammarQuery represents the root expression parsed by Participle:
// a predicate followed by any number of AND/OR continuations.
type grammarQuery struct {
	Left *grammarPredicate   `parser:"@@"`
	Rest []*grammarQueryRest `parser:"@@*"`
}

// grammarQueryRest represents one boolean continuation.
type grammarQueryRest struct {
	Op    string            `parser:"@('AND'|'OR')"`
	Right *grammarPredicate `parser:"@@"`
}

// grammarPredicate represents an optionally negated comparison or group.
type grammarPredicate struct {
	Not        bool               `parser:"@'NOT'?"`
	Paren      *grammarQuery      `parser:"( '(' @@ ')'"`
	Comparison *grammarComparison `parser:"| @@ )"`
}

// grammarComparison represents `field op value` with an optional trailing
// parameter block that attaches to this predicate.
type grammarComparison struct {
	Field  string             `parser:"@Ident"`
	Op     string             `parser:"@('EQ'|'='|'>'|'>='|'<'|'<=')"`
	Value  *grammarValue      `parser:"@@"`
	Params *grammarParamBlock `parser:"@@?"`
}

// grammarValue is the right-hand side of a comparison. A bare identifier is
// deliberately absent: unquoted words are reserved for the left-hand side.
type grammarValue struct {
	Literal  *string              `parser:"  @String"`
	Function *grammarFunctionCall `parser:"| @@"`
	List     *grammarList         `parser:"| @@"`
}

// grammarList represents a bracketed list of string literals.
type grammarList struct {
	Values []string `parser:"'[' @String ( ',' @String )* ']'"`
}

// grammarFunctionCall represents `name(arg, ...)`.
type grammarFunctionCall struct {
	Name string        `parser:"@Ident '('"`
	Args []*grammarArg `parser:"( @@ ( ',' @@ )* )? ')'"`
}

// grammarArg is a function argument: literal, nested call, or field reference.
type grammarArg struct {
	Literal  *string              `parser:"  @String"`
	Function *grammarFunctionCall `parser:"| @@"`
	Field    *string              `parser:"| @Ident"`
}

// grammarParamBlock represents `{key:'value', ...}`.
type grammarParamBlock struct {
	Params []*grammarParam `parser:"'{' @@ ( ',' @@ )* '}'"`
}

// grammarParam is one key/value pair of a parameter block.
type grammarParam struct {
	Key   string `parser:"@Ident ':'"`
	Value string `parser:"@String"`
}

func (g *grammarQuery) toAST() Node {
	node := g.Left.toAST()
	for _, rest := range g.Rest {
		op := BoolOpAnd
		if strings.EqualFold(rest.Op, "or") {
			op = BoolOpOr
		}
		node = &BinaryNode{Op: op, Left: node, Right: rest.Right.toAST()}
	}
	return node
}

func (g *grammarPredicate) toAST() Node {
	var node Node
	if g.Paren != nil {
		node = g.Paren.toAST()
	} else {
		node = g.Comparison.toAST()
	}
	if g.Not {
		node = &NotNode{Inner: node}
	}
	return node
}

func (g *grammarComparison) toAST() Node {
	n := &ComparisonNode{
		Field: g.Field,
		Op:    parseCompareOp(g.Op),
		Value: g.Value.toAST(),
	}
	if g.Params != nil {
		n.Params = make(map[string]string, len(g.Params.Params))
		for _, p := range g.Params.Params {
			n.Params[strings.ToLower(p.Key)] = p.Value
		}
	}
	return n
}

func parseCompareOp(op string) CompareOp {
	switch strings.ToLower(op) {
	case "eq", "=":
		return CompareOpEq
	case ">":
		return CompareOpGt
	case ">=":
		return CompareOpGte
	case "<":
		return CompareOpLt
	default:
		return CompareOpLte
	}
}

func (g *grammarValue) toAST() ValueNode {
	switch {
	case g.Literal != nil:
		return &LiteralNode{Value: *g.Literal}
	case g.Function != nil:
		return g.Function.toAST()
	default:
		return &ListNode{Values: g.List.Values}
	}
}

func (g *grammarFunctionCall) toAST() *FunctionNode {
	n := &FunctionNode{Name: g.Name, Args: make([]ValueNode, 0, len(g.Args))}
	for _, a := range g.Args {
		n.Args = append(n.Args, a.toAST())
	}
	return n
}

func (g *grammarArg) toAST() ValueNode {
	switch {
	case g.Literal != nil:
		return &LiteralNode{Value: *g.Literal}
	case g.Function != nil:
		return g.Function.toAST()
	default:
		return &FieldNode{Name: *g.Field}
	}
}
