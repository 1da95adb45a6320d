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

// Package schema models index definitions: field types, field descriptors,
// engine settings and their validation.
package schema

import (
	"strings"

	"github.com/pkg/errors"
)

// FieldType is the declared data type of a schema field.
type FieldType int

// Supported field types. Textual types carry analyzers, numeric types never do.
const (
	FieldTypeInt FieldType = iota
	FieldTypeDouble
	FieldTypeLong
	FieldTypeDate
	FieldTypeDateTime
	FieldTypeText
	FieldTypeHighlight
	FieldTypeExactText
	FieldTypeCustom
	FieldTypeBool
	FieldTypeStored
)

// Default values per field type.
const (
	defaultInt      = "0"
	defaultDouble   = "0.0"
	defaultBool     = "false"
	defaultDate     = "19000101"
	defaultDateTime = "19000101000000"
	// NullValue marks an absent textual value.
	NullValue = "null"
)

// Date layouts accepted for Date and DateTime fields.
const (
	DateLayout     = "20060102"
	DateTimeLayout = "20060102150405"
)

// Typed errors of the field type system.
var (
	ErrUnsupportedFieldType = errors.New("unsupported field type")
	ErrSortNotSupported     = errors.New("sorting is not supported for the field type")
)

var fieldTypeNames = map[FieldType]string{
	FieldTypeInt:       "int",
	FieldTypeDouble:    "double",
	FieldTypeLong:      "long",
	FieldTypeDate:      "date",
	FieldTypeDateTime:  "datetime",
	FieldTypeText:      "text",
	FieldTypeHighlight: "highlight",
	FieldTypeExactText: "exacttext",
	FieldTypeCustom:    "custom",
	FieldTypeBool:      "bool",
	FieldTypeStored:    "stored",
}

func (t FieldType) String() string {
	if n, ok := fieldTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseFieldType parses a field type name, case-insensitively.
func ParseFieldType(s string) (FieldType, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	for t, name := range fieldTypeNames {
		if name == n {
			return t, nil
		}
	}
	return 0, errors.Wrap(ErrUnsupportedFieldType, s)
}

// MarshalYAML encodes the type as its name.
func (t FieldType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML decodes the type from its name.
func (t *FieldType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseFieldType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// RequiresAnalyzer reports whether fields of this type carry analyzer references.
func (t FieldType) RequiresAnalyzer() bool {
	switch t {
	case FieldTypeText, FieldTypeHighlight, FieldTypeExactText, FieldTypeCustom, FieldTypeBool:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether the type is stored as a numeric value.
func (t FieldType) IsNumeric() bool {
	switch t {
	case FieldTypeInt, FieldTypeDouble, FieldTypeLong, FieldTypeDate, FieldTypeDateTime:
		return true
	default:
		return false
	}
}

// Searchable reports whether fields of this type participate in queries.
// Stored fields are retrieval-only.
func (t FieldType) Searchable() bool {
	return t != FieldTypeStored
}

// DefaultValue returns the value used when a document supplies a blank value.
func (t FieldType) DefaultValue() string {
	switch t {
	case FieldTypeInt, FieldTypeLong:
		return defaultInt
	case FieldTypeDouble:
		return defaultDouble
	case FieldTypeBool:
		return defaultBool
	case FieldTypeDate:
		return defaultDate
	case FieldTypeDateTime:
		return defaultDateTime
	default:
		return NullValue
	}
}

// SortFieldName returns the field name used for sorting, or
// ErrSortNotSupported for types without sortable terms.
func (t FieldType) SortFieldName(name string) (string, error) {
	switch t {
	case FieldTypeText, FieldTypeHighlight, FieldTypeCustom, FieldTypeStored:
		return "", errors.Wrap(ErrSortNotSupported, t.String())
	default:
		return name, nil
	}
}
