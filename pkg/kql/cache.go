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

package kql

import (
	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize bounds the number of cached parsed queries.
const DefaultCacheSize = 512

// Cache memoizes parsed queries. Parsed ASTs are immutable, so a cached tree
// can be handed to concurrent callers.
type Cache struct {
	parsed *lru.Cache
}

// NewCache creates a parse cache holding up to size entries.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{parsed: c}, nil
}

// Parse returns the AST for query, parsing it on a cache miss.
// Parse failures are not cached.
func (c *Cache) Parse(query string) (Node, error) {
	if v, ok := c.parsed.Get(query); ok {
		return v.(Node), nil
	}
	node, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}
	c.parsed.Add(query, node)
	return node, nil
}
