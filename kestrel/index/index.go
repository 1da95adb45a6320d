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
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	kanalysis "github.com/kestrelsearch/kestrel/pkg/analysis"
	"github.com/kestrelsearch/kestrel/pkg/convert"
	"github.com/kestrelsearch/kestrel/pkg/function"
	"github.com/kestrelsearch/kestrel/pkg/kql"
	"github.com/kestrelsearch/kestrel/pkg/logger"
	"github.com/kestrelsearch/kestrel/pkg/run"
	"github.com/kestrelsearch/kestrel/pkg/schema"
)

const shardTemplate = "shard-%d"

// Index is the runtime of one logical index: its descriptors built from the
// validated model, its shards, and its lifecycle state machine.
type Index struct {
	model     *schema.Index
	l         *logger.Logger
	analyzers *kanalysis.Registry
	functions *function.Registry
	metrics   *Metrics
	vclock    *versionClock
	clk       clock.Clock
	byName    map[string]*schema.FieldDescriptor
	bySchema  map[string]*schema.FieldDescriptor
	profiles  map[string]kql.Node
	shardSet  atomic.Pointer[[]*shard]
	path      string
	fields    []*schema.FieldDescriptor
	loop      *run.Closer
	mu        sync.Mutex
	state     atomic.Int32
}

type indexOpts struct {
	logger    *logger.Logger
	analyzers *kanalysis.Registry
	functions *function.Registry
	metrics   *Metrics
	clk       clock.Clock
}

func newIndex(model *schema.Index, path string, opts indexOpts) *Index {
	return &Index{
		model:     model,
		path:      path,
		l:         opts.logger.Named(model.Name),
		analyzers: opts.analyzers,
		functions: opts.functions,
		metrics:   opts.metrics,
		clk:       opts.clk,
		vclock:    newVersionClock(opts.clk),
	}
}

// Name returns the index name.
func (ix *Index) Name() string {
	return ix.model.Name
}

// Model returns the validated index definition.
func (ix *Index) Model() *schema.Index {
	return ix.model
}

// State returns the current lifecycle state.
func (ix *Index) State() State {
	return State(ix.state.Load())
}

// Open transitions the index Offline -> Online: it compiles scripts, builds
// the field descriptors, exclusively acquires one storage-engine writer per
// shard and starts the refresh loop. Concurrent opens are serialized; the
// second caller observes ErrIndexAlreadyOnline.
func (ix *Index) Open() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.State() == StateOnline {
		return errors.Wrap(ErrIndexAlreadyOnline, ix.model.Name)
	}
	ix.state.Store(int32(StateOpening))
	opened := false
	defer func() {
		if !opened {
			ix.state.Store(int32(StateOffline))
		}
	}()

	scripts, err := compileScripts(ix.model.Scripts, ix.functions)
	if err != nil {
		return err
	}
	fields := make([]*schema.FieldDescriptor, 0, len(ix.model.Fields))
	byName := make(map[string]*schema.FieldDescriptor, len(ix.model.Fields))
	bySchema := make(map[string]*schema.FieldDescriptor, len(ix.model.Fields))
	for _, cfg := range ix.model.Fields {
		fd, buildErr := schema.BuildFieldDescriptor(cfg, ix.analyzers, scripts)
		if buildErr != nil {
			return buildErr
		}
		fields = append(fields, fd)
		byName[fd.FieldName] = fd
		bySchema[fd.SchemaName] = fd
	}
	profiles := make(map[string]kql.Node, len(ix.model.Profiles))
	for _, p := range ix.model.Profiles {
		node, parseErr := kql.ParseQuery(p.Query)
		if parseErr != nil {
			return errors.WithMessagef(parseErr, "search profile %s", p.Name)
		}
		profiles[p.Name] = node
	}

	defaultSearch, err := ix.analyzers.Resolve(kanalysis.AnalyzerKeyword)
	if err != nil {
		return err
	}
	shards := make([]*shard, 0, ix.model.ShardCount)
	for i := 0; i < int(ix.model.ShardCount); i++ {
		s, openErr := openShard(i, filepath.Join(ix.path, fmt.Sprintf(shardTemplate, i)), shardOpts{
			settings:      ix.model.Settings,
			defaultSearch: defaultSearch,
			metrics:       ix.metrics,
			logger:        ix.l.Named(fmt.Sprintf(shardTemplate, i)),
		})
		if openErr != nil {
			var closeErr error
			for _, sh := range shards {
				closeErr = multierr.Append(closeErr, sh.close())
			}
			if closeErr != nil {
				ix.l.Warn().Err(closeErr).Msg("failed to release shards after open failure")
			}
			return openErr
		}
		shards = append(shards, s)
	}

	ix.fields = fields
	ix.byName = byName
	ix.bySchema = bySchema
	ix.profiles = profiles
	ix.shardSet.Store(&shards)
	ix.loop = run.NewCloser(1)
	go ix.refreshLoop()
	ix.state.Store(int32(StateOnline))
	ix.metrics.indexOnline(1)
	opened = true
	ix.l.Info().Uint32("shards", ix.model.ShardCount).Msg("index is online")
	return nil
}

// Close transitions the index Online -> Offline, waiting for the final
// commit of every shard writer.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.State() != StateOnline {
		return errors.Wrap(ErrIndexAlreadyOffline, ix.model.Name)
	}
	ix.state.Store(int32(StateClosing))
	ix.loop.CloseThenWait()
	var err error
	if shards := ix.shardSet.Swap(nil); shards != nil {
		for _, s := range *shards {
			err = multierr.Append(err, s.close())
		}
	}
	ix.state.Store(int32(StateOffline))
	ix.metrics.indexOnline(-1)
	ix.l.Info().Msg("index is offline")
	return err
}

// Refresh makes writes committed before the call visible to reads issued
// after it returns, rotating the version cache generations of every shard.
func (ix *Index) Refresh() error {
	shards, err := ix.onlineShards()
	if err != nil {
		return err
	}
	for _, s := range shards {
		err = multierr.Append(err, s.refresh())
	}
	return err
}

// SearchProfile returns the parsed query of a named search profile.
func (ix *Index) SearchProfile(name string) (kql.Node, error) {
	if _, err := ix.onlineShards(); err != nil {
		return nil, err
	}
	node, ok := ix.profiles[name]
	if !ok {
		return nil, errors.Wrap(ErrProfileNotFound, name)
	}
	return node, nil
}

func (ix *Index) onlineShards() ([]*shard, error) {
	shards := ix.shardSet.Load()
	if shards == nil || ix.State() != StateOnline {
		return nil, errors.Wrap(ErrIndexNotOnline, ix.model.Name)
	}
	return *shards, nil
}

func (ix *Index) shardFor(shards []*shard, id string) *shard {
	return shards[convert.HashStr(id)%uint32(len(shards))]
}

func (ix *Index) refreshLoop() {
	defer ix.loop.Done()
	ticker := ix.clk.Ticker(ix.model.Settings.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ix.loop.CloseNotify():
			return
		case <-ticker.C:
			if err := ix.Refresh(); err != nil && !errors.Is(err, ErrIndexNotOnline) {
				ix.l.Warn().Err(err).Msg("periodic refresh failed")
			}
		}
	}
}

func compileScripts(scripts []schema.Script, registry *function.Registry) (map[string]schema.ScriptFunc, error) {
	compiled := make(map[string]schema.ScriptFunc, len(scripts))
	for _, s := range scripts {
		f, err := registry.Compile(s.Source)
		if err != nil {
			return nil, errors.WithMessagef(err, "script %s", s.Name)
		}
		compiled[s.Name] = f
	}
	return compiled, nil
}
