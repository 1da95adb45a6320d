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

// Package pool provides named object pools with in-use reference tracking.
package pool

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var registry sync.Map

// Register creates the pool with the given name. The name must be unique
// across the process; the registry feeds the in-use gauge.
func Register[T any](name string) *Synced[T] {
	p := new(Synced[T])
	if _, loaded := registry.LoadOrStore(name, p); loaded {
		panic(fmt.Sprintf("pool %q is already registered", name))
	}
	return p
}

// Trackable reports how many pooled objects are currently checked out.
type Trackable interface {
	RefsCount() int
}

// AllRefsCount returns the checked-out count of every registered pool.
func AllRefsCount() map[string]int {
	counts := make(map[string]int)
	registry.Range(func(key, value any) bool {
		counts[key.(string)] = value.(Trackable).RefsCount()
		return true
	})
	return counts
}

// Synced is a typed pool safe for concurrent use.
type Synced[T any] struct {
	sync.Pool
	refs atomic.Int32
}

// Get checks an object out of the pool, returning the zero value when the
// pool is empty.
func (p *Synced[T]) Get() T {
	v := p.Pool.Get()
	p.refs.Add(1)
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// Put checks an object back in.
func (p *Synced[T]) Put(v T) {
	p.Pool.Put(v)
	p.refs.Add(-1)
}

// RefsCount returns the number of objects currently checked out.
func (p *Synced[T]) RefsCount() int {
	return int(p.refs.Load())
}
