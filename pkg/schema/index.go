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
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultShardCount is used when an index does not declare sharding.
const DefaultShardCount = 1

// Script is a named computed-field expression over document fields.
type Script struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

// SearchProfile is a named, pre-validated query template.
type SearchProfile struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

// Index is the logical entity tying fields, scripts, search profiles and
// engine settings together.
type Index struct {
	Name       string          `yaml:"name"`
	Fields     []FieldConfig   `yaml:"fields"`
	Scripts    []Script        `yaml:"scripts,omitempty"`
	Profiles   []SearchProfile `yaml:"searchProfiles,omitempty"`
	Settings   IndexSettings   `yaml:"settings"`
	ShardCount uint32          `yaml:"shardCount,omitempty"`
	Online     bool            `yaml:"online"`
}

// SetDefaults fills unset fields with documented defaults.
func (ix *Index) SetDefaults() {
	if ix.ShardCount == 0 {
		ix.ShardCount = DefaultShardCount
	}
	ix.Settings.SetDefaults()
}

// Validate checks the defaulted index definition. Name-uniqueness rules run
// before referential rules, so a duplicate name is reported before a missing
// script reference.
func (ix *Index) Validate() error {
	fieldNames := make([]string, 0, len(ix.Fields))
	for _, f := range ix.Fields {
		fieldNames = append(fieldNames, f.Name)
	}
	scriptNames := make([]string, 0, len(ix.Scripts))
	for _, s := range ix.Scripts {
		scriptNames = append(scriptNames, s.Name)
	}
	profileNames := make([]string, 0, len(ix.Profiles))
	for _, p := range ix.Profiles {
		profileNames = append(profileNames, p.Name)
	}

	rules := []rule{
		notBlank("indexName", ix.Name),
		validIdentifier("indexName", ix.Name),
		uintGTE("shardCount", uint64(ix.ShardCount), 1),
	}
	for i, f := range ix.Fields {
		property := fmt.Sprintf("fields[%d].name", i)
		rules = append(rules, notBlank(property, f.Name), validIdentifier(property, f.Name))
	}
	for i, s := range ix.Scripts {
		property := fmt.Sprintf("scripts[%d]", i)
		rules = append(rules, notBlank(property+".name", s.Name), notBlank(property+".source", s.Source))
	}
	for i, p := range ix.Profiles {
		property := fmt.Sprintf("searchProfiles[%d]", i)
		rules = append(rules, notBlank(property+".name", p.Name), notBlank(property+".query", p.Query))
	}
	rules = append(rules,
		uniqueNames("fields", fieldNames),
		uniqueNames("scripts", scriptNames),
		uniqueNames("searchProfiles", profileNames),
	)
	// Referential checks run after all uniqueness checks.
	scriptSet := make(map[string]struct{}, len(scriptNames))
	for _, n := range scriptNames {
		scriptSet[n] = struct{}{}
	}
	for i, f := range ix.Fields {
		property := fmt.Sprintf("fields[%d].scriptName", i)
		name := f.ScriptName
		rules = append(rules, func() *ValidationError {
			if name == "" {
				return nil
			}
			if _, ok := scriptSet[name]; !ok {
				return &ValidationError{Property: property, Rule: "scriptExists", Message: fmt.Sprintf("script %q is not defined", name)}
			}
			return nil
		})
	}
	if err := runRules(rules...); err != nil {
		return err
	}
	return ix.Settings.Validate()
}

// Field returns the configuration of the named field.
func (ix *Index) Field(name string) (FieldConfig, bool) {
	for _, f := range ix.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldConfig{}, false
}

// WriteFile persists the index definition as YAML.
func (ix *Index) WriteFile(path string) error {
	data, err := yaml.Marshal(ix)
	if err != nil {
		return errors.WithMessagef(err, "marshal index %s", ix.Name)
	}
	return os.WriteFile(path, data, 0o600)
}

// ReadIndexFile loads an index definition from a YAML file.
func ReadIndexFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ix Index
	if err := yaml.Unmarshal(data, &ix); err != nil {
		return nil, errors.WithMessagef(err, "unmarshal index definition %s", path)
	}
	return &ix, nil
}
