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
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/multierr"

	kanalysis "github.com/kestrelsearch/kestrel/pkg/analysis"
	"github.com/kestrelsearch/kestrel/pkg/function"
	"github.com/kestrelsearch/kestrel/pkg/kql"
	"github.com/kestrelsearch/kestrel/pkg/logger"
	"github.com/kestrelsearch/kestrel/pkg/schema"
)

const metadataFile = "metadata.yaml"

// DiskUsage reports filesystem-level usage of the service root.
type DiskUsage struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"usedPercent"`
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Logger         *logger.Logger
	Analyzers      *kanalysis.Registry
	Functions      *function.Registry
	Metrics        *Metrics
	Clock          clock.Clock
	Root           string
	QueryCacheSize int
	WatchRoot      bool
}

// Service is the upward surface of the engine core: a registry of named
// indexes with lifecycle, document, and query operations. Definitions are
// persisted as YAML under the service root and reloaded on cold start.
type Service struct {
	l         *logger.Logger
	analyzers *kanalysis.Registry
	functions *function.Registry
	metrics   *Metrics
	clk       clock.Clock
	queries   *kql.Cache
	indexes   map[string]*Index
	watcher   *definitionWatcher
	root      string
	mu        sync.RWMutex
}

// NewService creates the service rooted at opts.Root, reloading persisted
// index definitions and bringing indexes with Online intent back online.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Root == "" {
		return nil, errors.New("service root is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger("index")
	}
	if opts.Analyzers == nil {
		opts.Analyzers = kanalysis.NewRegistry()
	}
	if opts.Functions == nil {
		opts.Functions = function.NewRegistry()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	queries, err := kql.NewCache(opts.QueryCacheSize)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(opts.Root, 0o700); err != nil {
		return nil, errors.WithMessagef(err, "create service root %s", opts.Root)
	}
	svc := &Service{
		root:      opts.Root,
		l:         opts.Logger,
		analyzers: opts.Analyzers,
		functions: opts.Functions,
		metrics:   opts.Metrics,
		clk:       opts.Clock,
		queries:   queries,
		indexes:   make(map[string]*Index),
	}
	if err = svc.reload(); err != nil {
		return nil, err
	}
	if opts.WatchRoot {
		if svc.watcher, err = watchDefinitions(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// reload registers every persisted index definition found under the root.
func (s *Service) reload() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metadata := filepath.Join(s.root, entry.Name(), metadataFile)
		if _, statErr := os.Stat(metadata); statErr != nil {
			continue
		}
		model, readErr := schema.ReadIndexFile(metadata)
		if readErr != nil {
			s.l.Warn().Err(readErr).Str("dir", entry.Name()).Msg("skipping unreadable index definition")
			continue
		}
		model.SetDefaults()
		if validateErr := model.Validate(); validateErr != nil {
			s.l.Warn().Err(validateErr).Str("index", model.Name).Msg("skipping invalid index definition")
			continue
		}
		ix := newIndex(model, s.indexPath(model.Name), s.indexOpts())
		s.indexes[model.Name] = ix
		if model.Online {
			if openErr := ix.Open(); openErr != nil {
				s.l.Error().Err(openErr).Str("index", model.Name).Msg("failed to reopen index")
			}
		}
	}
	return nil
}

func (s *Service) indexOpts() indexOpts {
	return indexOpts{
		logger:    s.l,
		analyzers: s.analyzers,
		functions: s.functions,
		metrics:   s.metrics,
		clk:       s.clk,
	}
}

func (s *Service) indexPath(name string) string {
	return filepath.Join(s.root, name)
}

// CreateIndex validates and persists an index definition. Scripts are
// compiled and search profiles parsed eagerly, so a broken definition is
// rejected at create time rather than at first open. The index is opened when
// the definition declares Online intent.
func (s *Service) CreateIndex(model *schema.Index) error {
	model.SetDefaults()
	if err := model.Validate(); err != nil {
		return err
	}
	if _, err := compileScripts(model.Scripts, s.functions); err != nil {
		return err
	}
	for _, p := range model.Profiles {
		if _, err := kql.ParseQuery(p.Query); err != nil {
			return errors.WithMessagef(err, "search profile %s", p.Name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[model.Name]; ok {
		return errors.Wrap(ErrIndexAlreadyExists, model.Name)
	}
	dir := s.indexPath(model.Name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.WithMessagef(err, "create index directory %s", dir)
	}
	if err := model.WriteFile(filepath.Join(dir, metadataFile)); err != nil {
		return err
	}
	ix := newIndex(model, dir, s.indexOpts())
	s.indexes[model.Name] = ix
	s.l.Info().Str("index", model.Name).Bool("online", model.Online).Msg("index created")
	if model.Online {
		return ix.Open()
	}
	return nil
}

// DeleteIndex closes the index if needed and removes its directory. This is
// the destructive out-of-band transition: it is legal from any state.
func (s *Service) DeleteIndex(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ix, ok := s.indexes[name]
	if !ok {
		return errors.Wrap(ErrIndexNotFound, name)
	}
	if err := ix.Close(); err != nil && !errors.Is(err, ErrIndexAlreadyOffline) {
		return err
	}
	delete(s.indexes, name)
	if err := os.RemoveAll(s.indexPath(name)); err != nil {
		return errors.WithMessagef(err, "remove index directory %s", name)
	}
	s.l.Info().Str("index", name).Msg("index deleted")
	return nil
}

// OpenIndex brings an index online and persists the intent.
func (s *Service) OpenIndex(name string) error {
	ix, err := s.index(name)
	if err != nil {
		return err
	}
	if err = ix.Open(); err != nil {
		return err
	}
	return s.persistIntent(ix, true)
}

// CloseIndex takes an index offline and persists the intent.
func (s *Service) CloseIndex(name string) error {
	ix, err := s.index(name)
	if err != nil {
		return err
	}
	if err = ix.Close(); err != nil {
		return err
	}
	return s.persistIntent(ix, false)
}

func (s *Service) persistIntent(ix *Index, online bool) error {
	ix.model.Online = online
	return ix.model.WriteFile(filepath.Join(s.indexPath(ix.Name()), metadataFile))
}

// State returns the lifecycle state of the named index.
func (s *Service) State(name string) (State, error) {
	ix, err := s.index(name)
	if err != nil {
		return StateOffline, err
	}
	return ix.State(), nil
}

// Exists reports whether an index with the given name is registered.
func (s *Service) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok
}

// Indexes returns the registered index names, sorted.
func (s *Service) Indexes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.indexes))
	for name := range s.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Index returns the named index runtime.
func (s *Service) Index(name string) (*Index, error) {
	return s.index(name)
}

func (s *Service) index(name string) (*Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ix, ok := s.indexes[name]
	if !ok {
		return nil, errors.Wrap(ErrIndexNotFound, name)
	}
	return ix, nil
}

// RootDiskUsage reports the usage of the filesystem backing the service root.
func (s *Service) RootDiskUsage() (DiskUsage, error) {
	stat, err := disk.Usage(s.root)
	if err != nil {
		return DiskUsage{}, errors.WithMessagef(err, "disk usage of %s", s.root)
	}
	return DiskUsage{
		Path:        s.root,
		Total:       stat.Total,
		Used:        stat.Used,
		Free:        stat.Free,
		UsedPercent: stat.UsedPercent,
	}, nil
}

// IndexDiskUsage returns the on-disk size of one index directory in bytes.
func (s *Service) IndexDiskUsage(name string) (uint64, error) {
	if _, err := s.index(name); err != nil {
		return 0, err
	}
	var total uint64
	err := filepath.WalkDir(s.indexPath(name), func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		total += uint64(info.Size())
		return nil
	})
	return total, err
}

// ParseQuery parses a query expression through the shared parse cache.
func (s *Service) ParseQuery(expr string) (kql.Node, error) {
	return s.queries.Parse(expr)
}

// Add writes a must-not-exist document to the named index.
func (s *Service) Add(ctx context.Context, name string, doc Document) (Document, error) {
	ix, err := s.index(name)
	if err != nil {
		return doc, err
	}
	return ix.Add(ctx, doc)
}

// AddOrUpdate writes a document to the named index with caller version
// semantics.
func (s *Service) AddOrUpdate(ctx context.Context, name string, doc Document) (Document, error) {
	ix, err := s.index(name)
	if err != nil {
		return doc, err
	}
	return ix.AddOrUpdate(ctx, doc)
}

// Delete removes a document from the named index.
func (s *Service) Delete(ctx context.Context, name, id string) error {
	ix, err := s.index(name)
	if err != nil {
		return err
	}
	return ix.Delete(ctx, id)
}

// DeleteAll removes every document of the named index.
func (s *Service) DeleteAll(ctx context.Context, name string) error {
	ix, err := s.index(name)
	if err != nil {
		return err
	}
	return ix.DeleteAll(ctx)
}

// GetByID returns a stored document of the named index.
func (s *Service) GetByID(ctx context.Context, name, id string) (Document, error) {
	ix, err := s.index(name)
	if err != nil {
		return Document{}, err
	}
	return ix.GetByID(ctx, id)
}

// Search parses expr through the cache and returns the n best-scoring
// documents of the named index.
func (s *Service) Search(ctx context.Context, name, expr string, n int) ([]Document, error) {
	ix, err := s.index(name)
	if err != nil {
		return nil, err
	}
	node, err := s.queries.Parse(expr)
	if err != nil {
		return nil, err
	}
	return ix.Search(ctx, node, n)
}

// SearchProfile runs a named pre-validated query of the named index.
func (s *Service) SearchProfile(ctx context.Context, name, profile string, n int) ([]Document, error) {
	ix, err := s.index(name)
	if err != nil {
		return nil, err
	}
	node, err := ix.SearchProfile(profile)
	if err != nil {
		return nil, err
	}
	return ix.Search(ctx, node, n)
}

// TotalCount returns the number of live documents of the named index.
func (s *Service) TotalCount(name string) (uint64, error) {
	ix, err := s.index(name)
	if err != nil {
		return 0, err
	}
	return ix.TotalCount()
}

// Refresh makes committed writes of the named index visible to reads.
func (s *Service) Refresh(name string) error {
	ix, err := s.index(name)
	if err != nil {
		return err
	}
	return ix.Refresh()
}

// Close stops the definition watcher and takes every online index offline.
func (s *Service) Close() error {
	var err error
	if s.watcher != nil {
		err = s.watcher.close()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ix := range s.indexes {
		if closeErr := ix.Close(); closeErr != nil && !errors.Is(closeErr, ErrIndexAlreadyOffline) {
			err = multierr.Append(err, closeErr)
		}
	}
	return err
}
