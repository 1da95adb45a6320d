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

package http

import "github.com/kestrelsearch/kestrel/pkg/kql"

// renderNode maps a parsed query tree to a JSON-friendly structure for the
// parse endpoint.
func renderNode(node kql.Node) map[string]interface{} {
	switch n := node.(type) {
	case *kql.BinaryNode:
		return map[string]interface{}{
			"op":    string(n.Op),
			"left":  renderNode(n.Left),
			"right": renderNode(n.Right),
		}
	case *kql.NotNode:
		return map[string]interface{}{
			"op":    "not",
			"inner": renderNode(n.Inner),
		}
	case *kql.ComparisonNode:
		out := map[string]interface{}{
			"field": n.Field,
			"op":    string(n.Op),
			"value": renderValue(n.Value),
		}
		if len(n.Params) > 0 {
			out["params"] = n.Params
		}
		return out
	default:
		return map[string]interface{}{"op": "unknown"}
	}
}

func renderValue(value kql.ValueNode) interface{} {
	switch v := value.(type) {
	case *kql.LiteralNode:
		return v.Value
	case *kql.FieldNode:
		return map[string]interface{}{"field": v.Name}
	case *kql.ListNode:
		return v.Values
	case *kql.FunctionNode:
		args := make([]interface{}, 0, len(v.Args))
		for _, arg := range v.Args {
			args = append(args, renderValue(arg))
		}
		return map[string]interface{}{"function": v.Name, "args": args}
	default:
		return nil
	}
}
