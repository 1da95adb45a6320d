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
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
)

// versionLookup reads the persisted version of a document from the storage
// engine, returning 0 when the document does not exist.
type versionLookup func(id string) (int64, error)

// versionCache maps document identity to the last-known version number for
// one shard. It keeps two generations: on every refresh the current
// generation is demoted to old and a fresh current generation is started,
// which bounds memory growth across refresh cycles. A miss in both
// generations falls back to the storage engine, so correctness never depends
// on cache residency.
type versionCache struct {
	current atomic.Pointer[sync.Map]
	old     atomic.Pointer[sync.Map]
	lookup  versionLookup
	metrics *Metrics
	mu      sync.Mutex
}

func newVersionCache(lookup versionLookup, metrics *Metrics) *versionCache {
	c := &versionCache{lookup: lookup, metrics: metrics}
	c.current.Store(&sync.Map{})
	c.old.Store(&sync.Map{})
	return c
}

// get returns the last-known version of id, 0 if the document is absent.
// Entries are repopulated lazily into the current generation.
func (c *versionCache) get(id string) (int64, error) {
	current := c.current.Load()
	if v, ok := current.Load(id); ok {
		c.metrics.versionCacheHit()
		return v.(int64), nil
	}
	if v, ok := c.old.Load().Load(id); ok {
		c.metrics.versionCacheHit()
		current.Store(id, v)
		return v.(int64), nil
	}
	c.metrics.versionCacheMiss()
	v, err := c.lookup(id)
	if err != nil {
		return 0, err
	}
	current.Store(id, v)
	return v, nil
}

// set records the version assigned by a successful write.
func (c *versionCache) set(id string, version int64) {
	c.current.Load().Store(id, version)
}

// rotate demotes the current generation to old and starts a fresh one.
// Called on refresh; the swap is a short critical section.
func (c *versionCache) rotate() {
	c.mu.Lock()
	c.old.Store(c.current.Load())
	c.current.Store(&sync.Map{})
	c.mu.Unlock()
}

// reset drops both generations. Called after delete-all.
func (c *versionCache) reset() {
	c.mu.Lock()
	c.current.Store(&sync.Map{})
	c.old.Store(&sync.Map{})
	c.mu.Unlock()
}

// versionClock assigns strictly-increasing document versions derived from a
// monotonic wall clock.
type versionClock struct {
	clk  clock.Clock
	last atomic.Int64
}

func newVersionClock(clk clock.Clock) *versionClock {
	if clk == nil {
		clk = clock.New()
	}
	return &versionClock{clk: clk}
}

func (v *versionClock) next() int64 {
	for {
		next := v.clk.Now().UnixNano()
		last := v.last.Load()
		if next <= last {
			next = last + 1
		}
		if v.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
