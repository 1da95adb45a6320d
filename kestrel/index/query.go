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

package index

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/pkg/errors"

	"github.com/kestrelsearch/kestrel/pkg/kql"
	"github.com/kestrelsearch/kestrel/pkg/schema"
)

const boostParam = "boost"

// Search parses nothing: it takes an already-parsed query tree, builds the
// storage-engine query and returns the n best-scoring documents.
func (ix *Index) Search(ctx context.Context, node kql.Node, n int) ([]Document, error) {
	query, err := ix.BuildQuery(node)
	if err != nil {
		return nil, err
	}
	return ix.GetTopN(ctx, n, query)
}

// BuildQuery maps a parsed query tree onto a storage-engine query using the
// field descriptors: textual comparisons become analyzed match queries, exact
// and boolean fields become term queries, numeric and date comparisons become
// range queries. Function calls on the value side are evaluated eagerly.
func (ix *Index) BuildQuery(node kql.Node) (bluge.Query, error) {
	switch n := node.(type) {
	case *kql.BinaryNode:
		left, err := ix.BuildQuery(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := ix.BuildQuery(n.Right)
		if err != nil {
			return nil, err
		}
		q := bluge.NewBooleanQuery()
		if n.Op == kql.BoolOpAnd {
			q.AddMust(left, right)
		} else {
			q.AddShould(left, right)
			q.SetMinShould(1)
		}
		return q, nil
	case *kql.NotNode:
		inner, err := ix.BuildQuery(n.Inner)
		if err != nil {
			return nil, err
		}
		q := bluge.NewBooleanQuery()
		q.AddMust(bluge.NewMatchAllQuery())
		q.AddMustNot(inner)
		return q, nil
	case *kql.ComparisonNode:
		return ix.buildComparison(n)
	default:
		return nil, errors.Errorf("unsupported query node %T", node)
	}
}

func (ix *Index) buildComparison(cmp *kql.ComparisonNode) (bluge.Query, error) {
	fd, ok := ix.byName[cmp.Field]
	if !ok {
		return nil, errors.Wrap(ErrUnknownField, cmp.Field)
	}
	if !fd.Searchable {
		return nil, errors.Wrap(ErrFieldNotSearchable, cmp.Field)
	}
	values, err := ix.resolveValues(cmp.Value)
	if err != nil {
		return nil, err
	}
	if len(values) > 1 {
		if cmp.Op != kql.CompareOpEq {
			return nil, errors.Wrapf(ErrInvalidQuery, "%s: list values require eq", cmp.Field)
		}
		q := bluge.NewBooleanQuery()
		for _, v := range values {
			sub, buildErr := ix.singleComparison(fd, kql.CompareOpEq, v)
			if buildErr != nil {
				return nil, buildErr
			}
			q.AddShould(sub)
		}
		q.SetMinShould(1)
		return boost(q, cmp.Params)
	}
	q, err := ix.singleComparison(fd, cmp.Op, values[0])
	if err != nil {
		return nil, err
	}
	return boost(q, cmp.Params)
}

func (ix *Index) singleComparison(fd *schema.FieldDescriptor, op kql.CompareOp, value string) (bluge.Query, error) {
	switch {
	case fd.Type.IsNumeric():
		return numericComparison(fd, op, value)
	case op == kql.CompareOpEq:
		switch fd.Type {
		case schema.FieldTypeExactText, schema.FieldTypeBool:
			return bluge.NewTermQuery(value).SetField(fd.SchemaName), nil
		default:
			q := bluge.NewMatchQuery(value).SetField(fd.SchemaName)
			if fd.SearchAnalyzer != nil {
				q.SetAnalyzer(fd.SearchAnalyzer)
			}
			return q, nil
		}
	default:
		// Lexicographic range over indexed terms.
		switch op {
		case kql.CompareOpGt:
			return bluge.NewTermRangeInclusiveQuery(value, "", false, false).SetField(fd.SchemaName), nil
		case kql.CompareOpGte:
			return bluge.NewTermRangeInclusiveQuery(value, "", true, false).SetField(fd.SchemaName), nil
		case kql.CompareOpLt:
			return bluge.NewTermRangeInclusiveQuery("", value, false, false).SetField(fd.SchemaName), nil
		case kql.CompareOpLte:
			return bluge.NewTermRangeInclusiveQuery("", value, false, true).SetField(fd.SchemaName), nil
		default:
			return nil, errors.Wrapf(ErrInvalidQuery, "unsupported operator %s", op)
		}
	}
}

func numericComparison(fd *schema.FieldDescriptor, op kql.CompareOp, value string) (bluge.Query, error) {
	v, err := numericTerm(fd, value)
	if err != nil {
		return nil, err
	}
	switch op {
	case kql.CompareOpEq:
		return bluge.NewNumericRangeInclusiveQuery(v, v, true, true).SetField(fd.SchemaName), nil
	case kql.CompareOpGt:
		return bluge.NewNumericRangeInclusiveQuery(v, math.Inf(1), false, true).SetField(fd.SchemaName), nil
	case kql.CompareOpGte:
		return bluge.NewNumericRangeInclusiveQuery(v, math.Inf(1), true, true).SetField(fd.SchemaName), nil
	case kql.CompareOpLt:
		return bluge.NewNumericRangeInclusiveQuery(math.Inf(-1), v, true, false).SetField(fd.SchemaName), nil
	case kql.CompareOpLte:
		return bluge.NewNumericRangeInclusiveQuery(math.Inf(-1), v, true, true).SetField(fd.SchemaName), nil
	default:
		return nil, errors.Wrapf(ErrInvalidQuery, "unsupported operator %s", op)
	}
}

// numericTerm parses value into the float64 term representation shared by
// numeric and date fields.
func numericTerm(fd *schema.FieldDescriptor, value string) (float64, error) {
	switch fd.Type {
	case schema.FieldTypeDate:
		t, err := time.Parse(schema.DateLayout, value)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidFieldValue, "%s: %q is not a %s date", fd.FieldName, value, schema.DateLayout)
		}
		return float64(t.UnixNano()), nil
	case schema.FieldTypeDateTime:
		t, err := time.Parse(schema.DateTimeLayout, value)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidFieldValue, "%s: %q is not a %s datetime", fd.FieldName, value, schema.DateTimeLayout)
		}
		return float64(t.UnixNano()), nil
	default:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidFieldValue, "%s: %q is not a number", fd.FieldName, value)
		}
		return f, nil
	}
}

// resolveValues flattens the value side of a comparison: literals pass
// through, lists expand, function calls are evaluated without a document
// source.
func (ix *Index) resolveValues(value kql.ValueNode) ([]string, error) {
	switch v := value.(type) {
	case *kql.LiteralNode:
		return []string{v.Value}, nil
	case *kql.ListNode:
		if len(v.Values) == 0 {
			return nil, errors.Wrap(ErrInvalidQuery, "empty value list")
		}
		return v.Values, nil
	case *kql.FunctionNode:
		result, err := ix.functions.Evaluate(v, nil)
		if err != nil {
			return nil, err
		}
		return []string{result}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidQuery, "unsupported value node %T", value)
	}
}

func boost(q bluge.Query, params map[string]string) (bluge.Query, error) {
	raw, ok := params[boostParam]
	if !ok {
		return q, nil
	}
	b, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidQuery, "boost %q is not a number", raw)
	}
	switch t := q.(type) {
	case *bluge.BooleanQuery:
		t.SetBoost(b)
	case *bluge.TermQuery:
		t.SetBoost(b)
	case *bluge.MatchQuery:
		t.SetBoost(b)
	case *bluge.NumericRangeQuery:
		t.SetBoost(b)
	case *bluge.TermRangeQuery:
		t.SetBoost(b)
	}
	return q, nil
}
