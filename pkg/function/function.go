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

// Package function evaluates named functions referenced inside parsed queries
// and computed-field scripts.
package function

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/kestrelsearch/kestrel/pkg/kql"
)

// Typed evaluation errors.
var (
	ErrFunctionNotFound = errors.New("function not found")
	ErrFieldNotFound    = errors.New("field not found")
	ErrNotANumber       = errors.New("argument is not a number")
	ErrInvalidArity     = errors.New("invalid number of arguments")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// FieldSource resolves a field name to the current document field value.
type FieldSource func(name string) (string, bool)

// MapSource adapts a field map to a FieldSource.
func MapSource(fields map[string]string) FieldSource {
	return func(name string) (string, bool) {
		v, ok := fields[name]
		return v, ok
	}
}

// Func evaluates one named function over already-resolved string arguments.
type Func func(args []string) (string, error)

// Registry is a case-insensitive set of named functions.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry creates a Registry with the built-in function library.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.register("add", add)
	r.register("multiply", multiply)
	r.register("max", numericAggregate(stats.Max))
	r.register("min", numericAggregate(stats.Min))
	r.register("avg", numericAggregate(stats.Mean))
	r.register("len", length)
	r.register("upper", single(strings.ToUpper))
	r.register("lower", single(strings.ToLower))
	r.register("substr", substr)
	return r
}

func (r *Registry) register(name string, f Func) {
	r.funcs[strings.ToLower(name)] = f
}

// Evaluate resolves every argument of call, then applies the named function.
// Nested calls are evaluated recursively; bare field references are looked up
// in source.
func (r *Registry) Evaluate(call *kql.FunctionNode, source FieldSource) (string, error) {
	f, ok := r.funcs[strings.ToLower(call.Name)]
	if !ok {
		return "", errors.Wrap(ErrFunctionNotFound, call.Name)
	}
	args := make([]string, 0, len(call.Args))
	for i, arg := range call.Args {
		resolved, err := r.resolve(arg, source)
		if err != nil {
			return "", errors.WithMessagef(err, "%s argument %d", call.Name, i)
		}
		args = append(args, resolved)
	}
	result, err := f(args)
	if err != nil {
		return "", errors.WithMessage(err, call.Name)
	}
	return result, nil
}

// EvaluateString parses expr as a function-call expression and evaluates it.
func (r *Registry) EvaluateString(expr string, source FieldSource) (string, error) {
	call, err := kql.ParseFunction(expr)
	if err != nil {
		return "", err
	}
	return r.Evaluate(call, source)
}

// Compile binds expr to the registry as a pure (fields) -> string function.
// Parsing happens once, at compile time.
func (r *Registry) Compile(expr string) (func(fields map[string]string) (string, error), error) {
	call, err := kql.ParseFunction(expr)
	if err != nil {
		return nil, err
	}
	return func(fields map[string]string) (string, error) {
		return r.Evaluate(call, MapSource(fields))
	}, nil
}

func (r *Registry) resolve(arg kql.ValueNode, source FieldSource) (string, error) {
	switch v := arg.(type) {
	case *kql.LiteralNode:
		return v.Value, nil
	case *kql.FunctionNode:
		return r.Evaluate(v, source)
	case *kql.FieldNode:
		if source == nil {
			return "", errors.Wrap(ErrFieldNotFound, v.Name)
		}
		value, ok := source(v.Name)
		if !ok {
			return "", errors.Wrap(ErrFieldNotFound, v.Name)
		}
		return value, nil
	default:
		return "", errors.Wrapf(ErrInvalidArgument, "%T", arg)
	}
}

func parseNumbers(args []string) (stats.Float64Data, error) {
	if len(args) < 1 {
		return nil, ErrInvalidArity
	}
	data := make(stats.Float64Data, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, errors.Wrap(ErrNotANumber, a)
		}
		data = append(data, v)
	}
	return data, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func add(args []string) (string, error) {
	data, err := parseNumbers(args)
	if err != nil {
		return "", err
	}
	sum, err := stats.Sum(data)
	if err != nil {
		return "", err
	}
	return formatNumber(sum), nil
}

func multiply(args []string) (string, error) {
	data, err := parseNumbers(args)
	if err != nil {
		return "", err
	}
	product := 1.0
	for _, v := range data {
		product *= v
	}
	return formatNumber(product), nil
}

func numericAggregate(agg func(stats.Float64Data) (float64, error)) Func {
	return func(args []string) (string, error) {
		data, err := parseNumbers(args)
		if err != nil {
			return "", err
		}
		v, err := agg(data)
		if err != nil {
			return "", err
		}
		return formatNumber(v), nil
	}
}

func length(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.Wrapf(ErrInvalidArity, "want 1, got %d", len(args))
	}
	return strconv.Itoa(utf8.RuneCountInString(args[0])), nil
}

func single(f func(string) string) Func {
	return func(args []string) (string, error) {
		if len(args) != 1 {
			return "", errors.Wrapf(ErrInvalidArity, "want 1, got %d", len(args))
		}
		return f(args[0]), nil
	}
}

// substr returns length characters starting at the zero-based start position.
// Ranges running past the end of the string are clamped.
func substr(args []string) (string, error) {
	if len(args) != 3 {
		return "", errors.Wrapf(ErrInvalidArity, "want 3, got %d", len(args))
	}
	start, err := strconv.Atoi(args[1])
	if err != nil {
		return "", errors.Wrap(ErrNotANumber, args[1])
	}
	count, err := strconv.Atoi(args[2])
	if err != nil {
		return "", errors.Wrap(ErrNotANumber, args[2])
	}
	if start < 0 || count < 0 {
		return "", errors.Wrapf(ErrInvalidArgument, "start %d, length %d", start, count)
	}
	runes := []rune(args[0])
	if start > len(runes) {
		start = len(runes)
	}
	end := start + count
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end]), nil
}
