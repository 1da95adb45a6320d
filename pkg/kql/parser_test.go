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

package kql_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kestrelsearch/kestrel/pkg/kql"
)

var _ = Describe("ParseQuery", func() {
	It("parses a single comparison", func() {
		node, err := kql.ParseQuery("title eq 'sparta'")
		Expect(err).NotTo(HaveOccurred())
		cmp, ok := node.(*kql.ComparisonNode)
		Expect(ok).To(BeTrue())
		Expect(cmp.Field).To(Equal("title"))
		Expect(cmp.Op).To(Equal(kql.CompareOpEq))
		Expect(cmp.Value).To(Equal(&kql.LiteralNode{Value: "sparta"}))
	})

	It("accepts = as an alias of eq", func() {
		node, err := kql.ParseQuery("title = 'sparta'")
		Expect(err).NotTo(HaveOccurred())
		Expect(node.(*kql.ComparisonNode).Op).To(Equal(kql.CompareOpEq))
	})

	It("parses range operators", func() {
		for op, want := range map[string]kql.CompareOp{
			">": kql.CompareOpGt, ">=": kql.CompareOpGte,
			"<": kql.CompareOpLt, "<=": kql.CompareOpLte,
		} {
			node, err := kql.ParseQuery("price " + op + " '10'")
			Expect(err).NotTo(HaveOccurred())
			Expect(node.(*kql.ComparisonNode).Op).To(Equal(want))
		}
	})

	It("folds and/or left-associatively", func() {
		node, err := kql.ParseQuery("a eq '1' and b eq '2' or c eq '3'")
		Expect(err).NotTo(HaveOccurred())
		or, ok := node.(*kql.BinaryNode)
		Expect(ok).To(BeTrue())
		Expect(or.Op).To(Equal(kql.BoolOpOr))
		and, ok := or.Left.(*kql.BinaryNode)
		Expect(ok).To(BeTrue())
		Expect(and.Op).To(Equal(kql.BoolOpAnd))
		Expect(and.Left.(*kql.ComparisonNode).Field).To(Equal("a"))
		Expect(or.Right.(*kql.ComparisonNode).Field).To(Equal("c"))
	})

	It("matches boolean keywords case-insensitively", func() {
		node, err := kql.ParseQuery("a EQ '1' AND NOT b Eq '2'")
		Expect(err).NotTo(HaveOccurred())
		and := node.(*kql.BinaryNode)
		Expect(and.Op).To(Equal(kql.BoolOpAnd))
		_, ok := and.Right.(*kql.NotNode)
		Expect(ok).To(BeTrue())
	})

	It("parses grouped predicates", func() {
		node, err := kql.ParseQuery("a eq '1' and (b eq '2' or c eq '3')")
		Expect(err).NotTo(HaveOccurred())
		and := node.(*kql.BinaryNode)
		Expect(and.Op).To(Equal(kql.BoolOpAnd))
		or, ok := and.Right.(*kql.BinaryNode)
		Expect(ok).To(BeTrue())
		Expect(or.Op).To(Equal(kql.BoolOpOr))
	})

	It("negates a grouped expression", func() {
		node, err := kql.ParseQuery("not (a eq '1' or b eq '2')")
		Expect(err).NotTo(HaveOccurred())
		not, ok := node.(*kql.NotNode)
		Expect(ok).To(BeTrue())
		_, ok = not.Inner.(*kql.BinaryNode)
		Expect(ok).To(BeTrue())
	})

	It("parses a function call on the value side", func() {
		node, err := kql.ParseQuery("price eq add('1', multiply('2', qty))")
		Expect(err).NotTo(HaveOccurred())
		call, ok := node.(*kql.ComparisonNode).Value.(*kql.FunctionNode)
		Expect(ok).To(BeTrue())
		Expect(call.Name).To(Equal("add"))
		Expect(call.Args).To(HaveLen(2))
		nested, ok := call.Args[1].(*kql.FunctionNode)
		Expect(ok).To(BeTrue())
		Expect(nested.Args[1]).To(Equal(&kql.FieldNode{Name: "qty"}))
	})

	It("parses a list of values", func() {
		node, err := kql.ParseQuery("state eq ['NY', 'CA', 'WA']")
		Expect(err).NotTo(HaveOccurred())
		list, ok := node.(*kql.ComparisonNode).Value.(*kql.ListNode)
		Expect(ok).To(BeTrue())
		Expect(list.Values).To(Equal([]string{"NY", "CA", "WA"}))
	})

	It("attaches a parameter block to the nearest predicate", func() {
		node, err := kql.ParseQuery("title eq 'sparta' {boost:'21'} and year > '2000'")
		Expect(err).NotTo(HaveOccurred())
		and := node.(*kql.BinaryNode)
		left := and.Left.(*kql.ComparisonNode)
		Expect(left.Params).To(Equal(map[string]string{"boost": "21"}))
		right := and.Right.(*kql.ComparisonNode)
		Expect(right.Params).To(BeEmpty())
	})

	It("parses multi-entry parameter blocks", func() {
		node, err := kql.ParseQuery("title eq 'x' {boost:'2', applydelete:'true'}")
		Expect(err).NotTo(HaveOccurred())
		cmp := node.(*kql.ComparisonNode)
		Expect(cmp.Params).To(HaveLen(2))
		Expect(cmp.Params["applydelete"]).To(Equal("true"))
	})

	It("unescapes embedded quotes", func() {
		node, err := kql.ParseQuery(`title eq 'it\'s'`)
		Expect(err).NotTo(HaveOccurred())
		Expect(node.(*kql.ComparisonNode).Value).To(Equal(&kql.LiteralNode{Value: "it's"}))
	})

	It("rejects a bare word on the value side", func() {
		_, err := kql.ParseQuery("title eq sparta")
		Expect(err).To(MatchError(kql.ErrSyntax))
	})

	It("rejects a dangling operator", func() {
		_, err := kql.ParseQuery("title eq")
		Expect(err).To(MatchError(kql.ErrSyntax))
	})

	It("rejects an unterminated group", func() {
		_, err := kql.ParseQuery("(title eq '1'")
		Expect(err).To(MatchError(kql.ErrSyntax))
	})
})

var _ = Describe("ParseFunction", func() {
	It("parses a bare call with field references", func() {
		call, err := kql.ParseFunction("add(price, '1')")
		Expect(err).NotTo(HaveOccurred())
		Expect(call.Name).To(Equal("add"))
		Expect(call.Args[0]).To(Equal(&kql.FieldNode{Name: "price"}))
	})

	It("parses a call without arguments", func() {
		call, err := kql.ParseFunction("now()")
		Expect(err).NotTo(HaveOccurred())
		Expect(call.Args).To(BeEmpty())
	})

	It("rejects a non-call expression", func() {
		_, err := kql.ParseFunction("'literal'")
		Expect(err).To(MatchError(kql.ErrSyntax))
	})
})

var _ = Describe("Cache", func() {
	It("returns the identical tree for a repeated query", func() {
		cache, err := kql.NewCache(4)
		Expect(err).NotTo(HaveOccurred())
		first, err := cache.Parse("a eq '1'")
		Expect(err).NotTo(HaveOccurred())
		second, err := cache.Parse("a eq '1'")
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(BeIdenticalTo(second))
	})

	It("does not cache failures", func() {
		cache, err := kql.NewCache(4)
		Expect(err).NotTo(HaveOccurred())
		_, err = cache.Parse("broken eq")
		Expect(err).To(HaveOccurred())
		_, err = cache.Parse("broken eq")
		Expect(err).To(HaveOccurred())
	})
})
