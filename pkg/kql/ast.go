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

// Package kql provides Kestrel Query Language parsing capabilities.
package kql

// Node represents a node in the Abstract Syntax Tree.
type Node interface {
	node()
}

// BoolOp is a boolean connective between predicates.
type BoolOp string

// Boolean connectives.
const (
	BoolOpAnd BoolOp = "and"
	BoolOpOr  BoolOp = "or"
)

// CompareOp is a comparison operator of a predicate.
type CompareOp string

// Comparison operators.
const (
	CompareOpEq  CompareOp = "eq"
	CompareOpGt  CompareOp = ">"
	CompareOpGte CompareOp = ">="
	CompareOpLt  CompareOp = "<"
	CompareOpLte CompareOp = "<="
)

// BinaryNode connects two predicate subtrees with AND or OR.
type BinaryNode struct {
	Left  Node
	Right Node
	Op    BoolOp
}

func (n *BinaryNode) node() {}

// NotNode negates its inner predicate.
type NotNode struct {
	Inner Node
}

func (n *NotNode) node() {}

// ComparisonNode compares a field against a value.
// Params carries the optional per-predicate parameter block, e.g. boost.
type ComparisonNode struct {
	Params map[string]string
	Field  string
	Op     CompareOp
	Value  ValueNode
}

func (n *ComparisonNode) node() {}

// ValueNode is the right-hand side of a comparison or a function argument.
type ValueNode interface {
	valueNode()
}

// LiteralNode is a quoted string literal.
type LiteralNode struct {
	Value string
}

func (n *LiteralNode) valueNode() {}

// FieldNode is a bare field reference, legal only inside function arguments.
type FieldNode struct {
	Name string
}

func (n *FieldNode) valueNode() {}

// ListNode is a bracketed list of string literals.
type ListNode struct {
	Values []string
}

func (n *ListNode) valueNode() {}

// FunctionNode is a named function call with ordered arguments.
type FunctionNode struct {
	Name string
	Args []ValueNode
}

func (n *FunctionNode) valueNode() {}
