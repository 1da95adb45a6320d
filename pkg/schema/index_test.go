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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validIndex() *Index {
	return &Index{
		Name: "products",
		Fields: []FieldConfig{
			{Name: "title", Type: FieldTypeText},
			{Name: "price", Type: FieldTypeDouble},
		},
	}
}

func TestIndexValidate(t *testing.T) {
	ix := validIndex()
	ix.SetDefaults()
	require.NoError(t, ix.Validate())
	assert.Equal(t, uint32(DefaultShardCount), ix.ShardCount)
}

func TestIndexZeroFieldsIsValid(t *testing.T) {
	ix := &Index{Name: "empty"}
	ix.SetDefaults()
	assert.NoError(t, ix.Validate())
}

func TestIndexBlankNameIsInvalid(t *testing.T) {
	ix := &Index{}
	ix.SetDefaults()
	err := ix.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "indexName", verr.Property)
}

func TestIndexUniquenessReportedBeforeMissingScript(t *testing.T) {
	// The duplicate field also references a script that does not exist;
	// the duplicate must win.
	ix := validIndex()
	ix.Fields = append(ix.Fields, FieldConfig{Name: "title", Type: FieldTypeText, ScriptName: "nope"})
	ix.SetDefaults()
	err := ix.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unique", verr.Rule)
	assert.Equal(t, "fields", verr.Property)
}

func TestIndexMissingScriptReference(t *testing.T) {
	ix := validIndex()
	ix.Fields = append(ix.Fields, FieldConfig{Name: "rank", Type: FieldTypeInt, ScriptName: "nope"})
	ix.SetDefaults()
	err := ix.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "scriptExists", verr.Rule)
}

func TestIndexYAMLRoundTrip(t *testing.T) {
	ix := validIndex()
	ix.Scripts = []Script{{Name: "total", Source: "add(price, '1')"}}
	ix.Profiles = []SearchProfile{{Name: "cheap", Query: "price < '10'"}}
	ix.SetDefaults()
	require.NoError(t, ix.Validate())

	path := filepath.Join(t.TempDir(), "metadata.yaml")
	require.NoError(t, ix.WriteFile(path))
	back, err := ReadIndexFile(path)
	require.NoError(t, err)
	assert.Equal(t, ix, back)
}
