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
	"bytes"
	"context"
	"log"
	"sync"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/analysis"
	blugeIndex "github.com/blugelabs/bluge/index"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/kestrelsearch/kestrel/pkg/convert"
	"github.com/kestrelsearch/kestrel/pkg/logger"
	"github.com/kestrelsearch/kestrel/pkg/pool"
	"github.com/kestrelsearch/kestrel/pkg/run"
	"github.com/kestrelsearch/kestrel/pkg/schema"
)

const (
	docIDField   = "_id"
	versionField = "_version"

	writerOpenTimeout = 10 * time.Second
)

var (
	errShardClosed = errors.New("shard is closed")

	batchPool = pool.Register[*blugeIndex.Batch]("index-bluge-batch")
)

func generateBatch() *blugeIndex.Batch {
	b := batchPool.Get()
	if b == nil {
		return bluge.NewBatch()
	}
	return b
}

func releaseBatch(b *blugeIndex.Batch) {
	b.Reset()
	batchPool.Put(b)
}

// storedDoc is one document read back from a shard reader.
type storedDoc struct {
	fields  map[string][]byte
	id      string
	version int64
	score   float64
}

// shard owns one storage-engine writer and the reader snapshot made visible
// by the latest refresh. The writer is exclusively held from open to close.
type shard struct {
	writer   *bluge.Writer
	rdr      *bluge.Reader
	versions *versionCache
	closer   *run.Closer
	l        *logger.Logger
	metrics  *Metrics
	rdrMu    sync.RWMutex
	writeMu  sync.Mutex
	id       int
}

type shardOpts struct {
	logger        *logger.Logger
	defaultSearch *analysis.Analyzer
	metrics       *Metrics
	settings      schema.IndexSettings
}

// openShard exclusively acquires the writer for one shard directory.
// Transient open failures, such as a lingering lock of a just-closed writer,
// are retried with exponential backoff.
func openShard(id int, path string, opts shardOpts) (*shard, error) {
	indexConfig := blugeIndex.DefaultConfig(path)
	if opts.settings.CommitInterval > 0 {
		indexConfig = indexConfig.WithUnsafeBatches().
			WithPersisterNapTimeMSec(int(opts.settings.CommitInterval / time.Millisecond))
	}
	config := bluge.DefaultConfigWithIndexConfig(indexConfig)
	if opts.defaultSearch != nil {
		config.DefaultSearchAnalyzer = opts.defaultSearch
	}
	config.Logger = log.New(opts.logger, opts.logger.Module(), 0)

	var w *bluge.Writer
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = writerOpenTimeout
	if err := backoff.Retry(func() error {
		var openErr error
		w, openErr = bluge.OpenWriter(config)
		return openErr
	}, bo); err != nil {
		return nil, errors.Wrapf(ErrOpeningIndexWriter, "shard %d at %s: %v", id, path, err)
	}

	s := &shard{
		id:      id,
		writer:  w,
		l:       opts.logger,
		metrics: opts.metrics,
		closer:  run.NewCloser(1),
	}
	s.versions = newVersionCache(s.storedVersion, opts.metrics)
	rdr, err := w.Reader()
	if err != nil {
		return nil, multierr.Append(errors.Wrapf(ErrOpeningIndexWriter, "shard %d reader: %v", id, err), w.Close())
	}
	s.rdr = rdr
	return s, nil
}

// update writes one document through the exclusive writer.
func (s *shard) update(doc *bluge.Document) error {
	if !s.closer.AddRunning() {
		return errShardClosed
	}
	defer s.closer.Done()
	return s.writer.Update(doc.ID(), doc)
}

// deleteDoc removes the document with the given identity.
func (s *shard) deleteDoc(id string) error {
	if !s.closer.AddRunning() {
		return errShardClosed
	}
	defer s.closer.Done()
	return s.writer.Delete(bluge.Identifier(id))
}

// deleteAll removes every document visible in the current snapshot and drops
// both version cache generations. It holds the write lock so no write can
// land between the snapshot and the cache reset.
func (s *shard) deleteAll(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	docs, err := s.search(ctx, bluge.NewMatchAllQuery(), 0)
	if err != nil {
		return err
	}
	if !s.closer.AddRunning() {
		return errShardClosed
	}
	defer s.closer.Done()
	b := generateBatch()
	defer releaseBatch(b)
	for i := range docs {
		b.Delete(bluge.Identifier(docs[i].id))
	}
	if err := s.writer.Batch(b); err != nil {
		return err
	}
	s.versions.reset()
	return nil
}

// refresh opens a fresh reader snapshot, making writes committed through the
// writer visible to subsequent reads, and rotates the version cache.
func (s *shard) refresh() error {
	if !s.closer.AddRunning() {
		return errShardClosed
	}
	defer s.closer.Done()
	rdr, err := s.writer.Reader()
	if err != nil {
		return errors.WithMessagef(err, "refresh shard %d", s.id)
	}
	s.rdrMu.Lock()
	old := s.rdr
	s.rdr = rdr
	s.rdrMu.Unlock()
	s.versions.rotate()
	s.metrics.refreshed()
	if old != nil {
		return old.Close()
	}
	return nil
}

// search runs query against the visible snapshot. A size of 0 collects all
// matches.
func (s *shard) search(ctx context.Context, query bluge.Query, size int) ([]storedDoc, error) {
	s.rdrMu.RLock()
	defer s.rdrMu.RUnlock()
	if s.rdr == nil {
		return nil, errShardClosed
	}
	var req bluge.SearchRequest
	if size > 0 {
		req = bluge.NewTopNSearch(size, query)
	} else {
		req = bluge.NewAllMatches(query)
	}
	s.metrics.searched()
	dmi, err := s.rdr.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	var docs []storedDoc
	for {
		match, err := dmi.Next()
		if err != nil {
			return nil, errors.WithMessagef(err, "next match in shard %d", s.id)
		}
		if match == nil {
			break
		}
		doc := storedDoc{fields: make(map[string][]byte), score: match.Score}
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case docIDField:
				doc.id = string(value)
			case versionField:
				doc.version = convert.BytesToInt64(value)
			default:
				doc.fields[field] = bytes.Clone(value)
			}
			return true
		})
		if visitErr != nil {
			return nil, errors.WithMessagef(visitErr, "visit stored fields in shard %d", s.id)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// getByID returns the stored document with the given identity, or nil.
func (s *shard) getByID(ctx context.Context, id string) (*storedDoc, error) {
	docs, err := s.search(ctx, bluge.NewTermQuery(id).SetField(docIDField), 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

// storedVersion is the storage-engine fallback of the version cache.
func (s *shard) storedVersion(id string) (int64, error) {
	doc, err := s.getByID(context.Background(), id)
	if err != nil {
		return 0, err
	}
	if doc == nil {
		return 0, nil
	}
	return doc.version, nil
}

// count returns the number of live documents in the visible snapshot.
func (s *shard) count() (uint64, error) {
	s.rdrMu.RLock()
	defer s.rdrMu.RUnlock()
	if s.rdr == nil {
		return 0, errShardClosed
	}
	return s.rdr.Count()
}

// close waits for in-flight operations, then releases the reader and the
// writer. Closing the writer performs the final commit.
func (s *shard) close() error {
	s.closer.Done()
	s.closer.CloseThenWait()
	s.rdrMu.Lock()
	rdr := s.rdr
	s.rdr = nil
	s.rdrMu.Unlock()
	var err error
	if rdr != nil {
		err = rdr.Close()
	}
	if s.writer != nil {
		err = multierr.Append(err, s.writer.Close())
	}
	return err
}
