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

package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsZeroValueWhenEmpty(t *testing.T) {
	p := Register[*bytes.Buffer]("test-empty")
	assert.Nil(t, p.Get())
}

func TestPutThenGetReusesObject(t *testing.T) {
	p := Register[*bytes.Buffer]("test-reuse")
	buf := bytes.NewBufferString("x")
	got := p.Get()
	require.Nil(t, got)
	p.Put(buf)
	assert.Same(t, buf, p.Get())
}

func TestRefsCountTracksCheckouts(t *testing.T) {
	p := Register[*bytes.Buffer]("test-refs")
	assert.Zero(t, p.RefsCount())
	a := p.Get()
	b := p.Get()
	assert.Equal(t, 2, p.RefsCount())
	p.Put(a)
	p.Put(b)
	assert.Zero(t, p.RefsCount())
}

func TestAllRefsCountReportsRegisteredPools(t *testing.T) {
	p := Register[*bytes.Buffer]("test-all-refs")
	p.Get()
	counts := AllRefsCount()
	require.Contains(t, counts, "test-all-refs")
	assert.Equal(t, 1, counts["test-all-refs"])
}

func TestRegisterPanicsOnDuplicateName(t *testing.T) {
	Register[*bytes.Buffer]("test-duplicate")
	assert.Panics(t, func() {
		Register[*bytes.Buffer]("test-duplicate")
	})
}
