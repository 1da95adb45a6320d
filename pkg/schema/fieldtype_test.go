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

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldTypeDefaults(t *testing.T) {
	tests := []struct {
		name string
		t    FieldType
		want string
	}{
		{"int", FieldTypeInt, "0"},
		{"long", FieldTypeLong, "0"},
		{"double", FieldTypeDouble, "0.0"},
		{"bool", FieldTypeBool, "false"},
		{"date", FieldTypeDate, "19000101"},
		{"datetime", FieldTypeDateTime, "19000101000000"},
		{"text", FieldTypeText, NullValue},
		{"highlight", FieldTypeHighlight, NullValue},
		{"exacttext", FieldTypeExactText, NullValue},
		{"custom", FieldTypeCustom, NullValue},
		{"stored", FieldTypeStored, NullValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.t.DefaultValue())
		})
	}
}

func TestFieldTypeClassification(t *testing.T) {
	for _, numeric := range []FieldType{FieldTypeInt, FieldTypeDouble, FieldTypeLong, FieldTypeDate, FieldTypeDateTime} {
		assert.True(t, numeric.IsNumeric(), numeric.String())
		assert.False(t, numeric.RequiresAnalyzer(), numeric.String())
	}
	for _, textual := range []FieldType{FieldTypeText, FieldTypeHighlight, FieldTypeExactText, FieldTypeCustom, FieldTypeBool} {
		assert.True(t, textual.RequiresAnalyzer(), textual.String())
		assert.False(t, textual.IsNumeric(), textual.String())
	}
	assert.False(t, FieldTypeStored.Searchable())
	assert.True(t, FieldTypeText.Searchable())
}

func TestFieldTypeSortFieldName(t *testing.T) {
	for _, unsortable := range []FieldType{FieldTypeText, FieldTypeHighlight, FieldTypeCustom, FieldTypeStored} {
		_, err := unsortable.SortFieldName("f")
		assert.ErrorIs(t, err, ErrSortNotSupported, unsortable.String())
	}
	name, err := FieldTypeInt.SortFieldName("f")
	require.NoError(t, err)
	assert.Equal(t, "f", name)
}

func TestParseFieldType(t *testing.T) {
	parsed, err := ParseFieldType("ExactText")
	require.NoError(t, err)
	assert.Equal(t, FieldTypeExactText, parsed)

	_, err = ParseFieldType("uuid")
	assert.ErrorIs(t, err, ErrUnsupportedFieldType)
}
