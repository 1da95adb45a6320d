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
	"time"

	"github.com/dustin/go-humanize"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// Storage engine tuning bounds and defaults.
const (
	MinCommitInterval  = 30 * time.Second
	MinRefreshInterval = 25 * time.Millisecond
	MinRAMBufferSize   = 20 * humanize.MiByte
	MinBufferedDocs    = 2

	DefaultCommitInterval  = 60 * time.Second
	DefaultRefreshInterval = 500 * time.Millisecond
	DefaultRAMBufferSize   = 100 * humanize.MiByte
	DefaultEngineVersion   = "v2"
	DefaultSimilarity      = "bm25"
)

// IndexSettings tunes the storage engine backing one index.
type IndexSettings struct {
	EngineVersion      string        `yaml:"engineVersion,omitempty"`
	Similarity         string        `yaml:"similarity,omitempty"`
	CommitInterval     time.Duration `yaml:"commitInterval,omitempty"`
	RefreshInterval    time.Duration `yaml:"refreshInterval,omitempty"`
	RAMBufferSize      uint64        `yaml:"ramBufferSize,omitempty"`
	BufferedDocs       int           `yaml:"bufferedDocs,omitempty"`
	UseBloomFilterOnID bool          `yaml:"useBloomFilterOnId"`
}

// rawIndexSettings is the human-editable YAML form: sizes like "20MB" and
// durations like "1m30s".
type rawIndexSettings struct {
	EngineVersion      string `yaml:"engineVersion,omitempty"`
	Similarity         string `yaml:"similarity,omitempty"`
	CommitInterval     string `yaml:"commitInterval,omitempty"`
	RefreshInterval    string `yaml:"refreshInterval,omitempty"`
	RAMBufferSize      string `yaml:"ramBufferSize,omitempty"`
	BufferedDocs       int    `yaml:"bufferedDocs,omitempty"`
	UseBloomFilterOnID bool   `yaml:"useBloomFilterOnId"`
}

// UnmarshalYAML decodes the human-editable form.
func (s *IndexSettings) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw rawIndexSettings
	if err := unmarshal(&raw); err != nil {
		return err
	}
	s.EngineVersion = raw.EngineVersion
	s.Similarity = raw.Similarity
	s.BufferedDocs = raw.BufferedDocs
	s.UseBloomFilterOnID = raw.UseBloomFilterOnID
	if raw.CommitInterval != "" {
		d, err := str2duration.ParseDuration(raw.CommitInterval)
		if err != nil {
			return err
		}
		s.CommitInterval = d
	}
	if raw.RefreshInterval != "" {
		d, err := str2duration.ParseDuration(raw.RefreshInterval)
		if err != nil {
			return err
		}
		s.RefreshInterval = d
	}
	if raw.RAMBufferSize != "" {
		b, err := humanize.ParseBytes(raw.RAMBufferSize)
		if err != nil {
			return err
		}
		s.RAMBufferSize = b
	}
	return nil
}

// MarshalYAML encodes the human-editable form.
func (s IndexSettings) MarshalYAML() (interface{}, error) {
	return rawIndexSettings{
		EngineVersion:      s.EngineVersion,
		Similarity:         s.Similarity,
		CommitInterval:     s.CommitInterval.String(),
		RefreshInterval:    s.RefreshInterval.String(),
		RAMBufferSize:      humanize.IBytes(s.RAMBufferSize),
		BufferedDocs:       s.BufferedDocs,
		UseBloomFilterOnID: s.UseBloomFilterOnID,
	}, nil
}

// SetDefaults fills unset fields with documented defaults. It is total and
// idempotent.
func (s *IndexSettings) SetDefaults() {
	if s.EngineVersion == "" {
		s.EngineVersion = DefaultEngineVersion
	}
	if s.Similarity == "" {
		s.Similarity = DefaultSimilarity
	}
	if s.CommitInterval == 0 {
		s.CommitInterval = DefaultCommitInterval
	}
	if s.RefreshInterval == 0 {
		s.RefreshInterval = DefaultRefreshInterval
	}
	if s.RAMBufferSize == 0 {
		s.RAMBufferSize = DefaultRAMBufferSize
	}
}

// Validate checks the defaulted settings, short-circuiting on the first failure.
func (s *IndexSettings) Validate() error {
	return runRules(
		notBlank("settings.engineVersion", s.EngineVersion),
		notBlank("settings.similarity", s.Similarity),
		durationGTE("settings.commitInterval", s.CommitInterval, MinCommitInterval),
		durationGTE("settings.refreshInterval", s.RefreshInterval, MinRefreshInterval),
		uintGTE("settings.ramBufferSize", s.RAMBufferSize, MinRAMBufferSize),
		gteOrDisabled("settings.bufferedDocs", s.BufferedDocs, MinBufferedDocs),
	)
}
