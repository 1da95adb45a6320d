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
	"github.com/blugelabs/bluge/analysis"
	"github.com/pkg/errors"

	kanalysis "github.com/kestrelsearch/kestrel/pkg/analysis"
)

// Typed errors of field descriptor building.
var (
	ErrAnalyzerIsMandatory  = errors.New("an analyzer is mandatory for the field type")
	ErrAnalyzerNotSupported = errors.New("the field type does not support analyzers")
	ErrScriptNotFound       = errors.New("script not found")
)

// ScriptFunc is a compiled computed-field source: a pure function mapping the
// other field values of a document to a string.
type ScriptFunc func(fields map[string]string) (string, error)

// FieldConfig is the declared configuration of one schema field.
type FieldConfig struct {
	Name           string    `yaml:"name"`
	Type           FieldType `yaml:"type"`
	SearchAnalyzer string    `yaml:"searchAnalyzer,omitempty"`
	IndexAnalyzer  string    `yaml:"indexAnalyzer,omitempty"`
	ScriptName     string    `yaml:"scriptName,omitempty"`
	PostingsFormat string    `yaml:"postingsFormat,omitempty"`
	Store          bool      `yaml:"store"`
}

// FieldDescriptor is the typed in-memory representation of a schema field,
// built once at index-open time and immutable thereafter.
type FieldDescriptor struct {
	IndexAnalyzer    *analysis.Analyzer
	SearchAnalyzer   *analysis.Analyzer
	Source           ScriptFunc
	FieldName        string
	SchemaName       string
	Type             FieldType
	Stored           bool
	Searchable       bool
	RequiresAnalyzer bool
}

// defaultAnalyzerName returns the analyzer used when the field does not name one.
func defaultAnalyzerName(t FieldType) string {
	switch t {
	case FieldTypeExactText, FieldTypeBool:
		return kanalysis.AnalyzerKeyword
	default:
		return kanalysis.AnalyzerStandard
	}
}

// BuildFieldDescriptor maps a declared field onto its typed descriptor,
// resolving analyzers and the computed-value script.
func BuildFieldDescriptor(cfg FieldConfig, analyzers *kanalysis.Registry, scripts map[string]ScriptFunc) (*FieldDescriptor, error) {
	fd := &FieldDescriptor{
		FieldName:        cfg.Name,
		SchemaName:       cfg.Name,
		Type:             cfg.Type,
		Stored:           cfg.Store || cfg.Type == FieldTypeStored,
		Searchable:       cfg.Type.Searchable(),
		RequiresAnalyzer: cfg.Type.RequiresAnalyzer(),
	}
	if cfg.PostingsFormat != "" {
		fd.SchemaName = cfg.Name + "@" + cfg.PostingsFormat
	}

	switch {
	case fd.RequiresAnalyzer:
		searchName, indexName := cfg.SearchAnalyzer, cfg.IndexAnalyzer
		if cfg.Type == FieldTypeCustom {
			// Custom fields never fall back to defaults.
			if searchName == "" || indexName == "" {
				return nil, errors.Wrap(ErrAnalyzerIsMandatory, cfg.Name)
			}
		}
		if searchName == "" {
			searchName = defaultAnalyzerName(cfg.Type)
		}
		if indexName == "" {
			indexName = searchName
		}
		var err error
		if fd.SearchAnalyzer, err = analyzers.Resolve(searchName); err != nil {
			return nil, errors.WithMessagef(err, "field %s", cfg.Name)
		}
		if fd.IndexAnalyzer, err = analyzers.Resolve(indexName); err != nil {
			return nil, errors.WithMessagef(err, "field %s", cfg.Name)
		}
	case cfg.SearchAnalyzer != "" || cfg.IndexAnalyzer != "":
		return nil, errors.Wrapf(ErrAnalyzerNotSupported, "field %s of type %s", cfg.Name, cfg.Type)
	}

	if cfg.ScriptName != "" {
		src, ok := scripts[cfg.ScriptName]
		if !ok {
			return nil, errors.Wrapf(ErrScriptNotFound, "field %s references %s", cfg.Name, cfg.ScriptName)
		}
		fd.Source = src
	}
	return fd, nil
}
