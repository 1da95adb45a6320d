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
	"fmt"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kanalysis "github.com/kestrelsearch/kestrel/pkg/analysis"
	"github.com/kestrelsearch/kestrel/pkg/function"
	"github.com/kestrelsearch/kestrel/pkg/kql"
	"github.com/kestrelsearch/kestrel/pkg/logger"
	"github.com/kestrelsearch/kestrel/pkg/schema"
)

func testModel() *schema.Index {
	return &schema.Index{
		Name: "products",
		Fields: []schema.FieldConfig{
			{Name: "title", Type: schema.FieldTypeText, Store: true},
			{Name: "state", Type: schema.FieldTypeExactText, Store: true},
			{Name: "price", Type: schema.FieldTypeInt, Store: true},
			{Name: "total", Type: schema.FieldTypeInt, Store: true, ScriptName: "total"},
			{Name: "note", Type: schema.FieldTypeStored},
		},
		Scripts: []schema.Script{
			{Name: "total", Source: "add(price, '1')"},
		},
		Profiles: []schema.SearchProfile{
			{Name: "in-stock", Query: "state eq 'NY'"},
		},
	}
}

func newTestIndex(t *testing.T, model *schema.Index) *Index {
	t.Helper()
	model.SetDefaults()
	require.NoError(t, model.Validate())
	// A mock clock keeps the refresh loop quiet; tests refresh explicitly.
	ix := newIndex(model, t.TempDir(), indexOpts{
		logger:    logger.GetLogger("test"),
		analyzers: kanalysis.NewRegistry(),
		functions: function.NewRegistry(),
		clk:       clock.NewMock(),
	})
	return ix
}

func openTestIndex(t *testing.T, model *schema.Index) *Index {
	t.Helper()
	ix := newTestIndex(t, model)
	require.NoError(t, ix.Open())
	t.Cleanup(func() {
		if ix.State() == StateOnline {
			require.NoError(t, ix.Close())
		}
	})
	return ix
}

func TestIndexLifecycle(t *testing.T) {
	ix := newTestIndex(t, testModel())
	assert.Equal(t, StateOffline, ix.State())

	require.NoError(t, ix.Open())
	assert.Equal(t, StateOnline, ix.State())
	assert.ErrorIs(t, ix.Open(), ErrIndexAlreadyOnline)

	require.NoError(t, ix.Close())
	assert.Equal(t, StateOffline, ix.State())
	assert.ErrorIs(t, ix.Close(), ErrIndexAlreadyOffline)

	// The cycle is repeatable.
	require.NoError(t, ix.Open())
	require.NoError(t, ix.Close())
}

func TestIndexOperationsRequireOnline(t *testing.T) {
	ix := newTestIndex(t, testModel())
	_, err := ix.Add(context.Background(), Document{Fields: map[string]string{"price": "1"}})
	assert.ErrorIs(t, err, ErrIndexNotOnline)
	assert.ErrorIs(t, ix.Refresh(), ErrIndexNotOnline)
	_, err = ix.TotalCount()
	assert.ErrorIs(t, err, ErrIndexNotOnline)
}

func TestWriteVersionProtocol(t *testing.T) {
	ix := openTestIndex(t, testModel())
	ctx := context.Background()

	doc, err := ix.Add(ctx, Document{ID: "p1", Fields: map[string]string{"price": "2"}})
	require.NoError(t, err)
	assert.Positive(t, doc.Version)

	// Must-not-exist against a live identity.
	_, err = ix.AddOrUpdate(ctx, Document{ID: "p1", Version: VersionMustNotExist, Fields: map[string]string{"price": "3"}})
	assert.ErrorIs(t, err, ErrDocumentAlreadyExists)

	// Must-exist succeeds and versions strictly increase.
	updated, err := ix.AddOrUpdate(ctx, Document{ID: "p1", Version: VersionMustExist, Fields: map[string]string{"price": "3"}})
	require.NoError(t, err)
	assert.Greater(t, updated.Version, doc.Version)

	// Exact-match semantics.
	_, err = ix.AddOrUpdate(ctx, Document{ID: "p1", Version: doc.Version, Fields: map[string]string{"price": "4"}})
	assert.ErrorIs(t, err, ErrVersionMismatch)
	exact, err := ix.AddOrUpdate(ctx, Document{ID: "p1", Version: updated.Version, Fields: map[string]string{"price": "4"}})
	require.NoError(t, err)
	assert.Greater(t, exact.Version, updated.Version)

	// Must-exist against an absent identity.
	_, err = ix.AddOrUpdate(ctx, Document{ID: "ghost", Version: VersionMustExist, Fields: map[string]string{"price": "1"}})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = ix.AddOrUpdate(ctx, Document{ID: "p1", Version: -3})
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestVersionCheckSurvivesCacheRotation(t *testing.T) {
	ix := openTestIndex(t, testModel())
	ctx := context.Background()

	doc, err := ix.Add(ctx, Document{ID: "p1", Fields: map[string]string{"price": "2"}})
	require.NoError(t, err)

	// Two refreshes rotate the written entry out of both generations, so
	// the exact-match check must fall back to the stored version field.
	require.NoError(t, ix.Refresh())
	require.NoError(t, ix.Refresh())

	_, err = ix.AddOrUpdate(ctx, Document{ID: "p1", Version: doc.Version, Fields: map[string]string{"price": "3"}})
	require.NoError(t, err)
}

func TestDocumentValidation(t *testing.T) {
	ix := openTestIndex(t, testModel())
	ctx := context.Background()

	_, err := ix.Add(ctx, Document{Fields: map[string]string{"color": "red"}})
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = ix.Add(ctx, Document{Fields: map[string]string{"price": "cheap"}})
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	_, err = ix.AddOrUpdate(ctx, Document{Fields: map[string]string{"price": "1"}})
	assert.ErrorIs(t, err, ErrMissingDocumentID)
}

func TestAddAssignsIdentity(t *testing.T) {
	ix := openTestIndex(t, testModel())
	doc, err := ix.Add(context.Background(), Document{Fields: map[string]string{"price": "1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
}

func TestRoundTripWithComputedFieldAndDefaults(t *testing.T) {
	ix := openTestIndex(t, testModel())
	ctx := context.Background()

	_, err := ix.Add(ctx, Document{ID: "p1", Fields: map[string]string{
		"price": "2",
		"state": "NY",
		"note":  "keep",
		// the computed field is overwritten regardless of the caller value
		"total": "999",
	}})
	require.NoError(t, err)
	require.NoError(t, ix.Refresh())

	got, err := ix.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Positive(t, got.Version)
	assert.Equal(t, "2", got.Fields["price"])
	assert.Equal(t, "3", got.Fields["total"], "computed by add(price, '1')")
	assert.Equal(t, "NY", got.Fields["state"])
	assert.Equal(t, "keep", got.Fields["note"])
	assert.Equal(t, schema.NullValue, got.Fields["title"], "blank textual value falls back to the default")

	_, err = ix.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestRefreshVisibilityBarrier(t *testing.T) {
	ix := openTestIndex(t, testModel())
	ctx := context.Background()

	_, err := ix.Add(ctx, Document{ID: "p1", Fields: map[string]string{"state": "NY"}})
	require.NoError(t, err)

	node, err := kql.ParseQuery("state eq 'NY'")
	require.NoError(t, err)
	docs, err := ix.Search(ctx, node, 10)
	require.NoError(t, err)
	assert.Empty(t, docs, "not visible before refresh")

	require.NoError(t, ix.Refresh())
	docs, err = ix.Search(ctx, node, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p1", docs[0].ID)
}

func TestSearch(t *testing.T) {
	ix := openTestIndex(t, testModel())
	ctx := context.Background()

	seed := []Document{
		{ID: "p1", Fields: map[string]string{"title": "red socks", "state": "NY", "price": "5"}},
		{ID: "p2", Fields: map[string]string{"title": "blue socks", "state": "CA", "price": "15"}},
		{ID: "p3", Fields: map[string]string{"title": "red shirt", "state": "NY", "price": "25"}},
	}
	for _, doc := range seed {
		_, err := ix.Add(ctx, doc)
		require.NoError(t, err)
	}
	require.NoError(t, ix.Refresh())

	search := func(q string) []Document {
		node, err := kql.ParseQuery(q)
		require.NoError(t, err)
		docs, err := ix.Search(ctx, node, 10)
		require.NoError(t, err)
		return docs
	}
	ids := func(docs []Document) []string {
		out := make([]string, 0, len(docs))
		for _, d := range docs {
			out = append(out, d.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"p1", "p2"}, ids(search("title eq 'socks'")))
	assert.ElementsMatch(t, []string{"p1", "p3"}, ids(search("state eq 'NY'")))
	assert.ElementsMatch(t, []string{"p2", "p3"}, ids(search("price > '10'")))
	assert.ElementsMatch(t, []string{"p1"}, ids(search("title eq 'socks' and price < '10'")))
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids(search("state eq ['CA'] or price eq '5'")))
	assert.ElementsMatch(t, []string{"p2"}, ids(search("not state eq 'NY'")))
	assert.ElementsMatch(t, []string{"p2", "p3"}, ids(search("price > add('5', '5')")))
	assert.ElementsMatch(t, []string{"p1", "p3"}, ids(search("state eq 'NY' {boost:'2'}")))

	node, err := ix.SearchProfile("in-stock")
	require.NoError(t, err)
	docs, err := ix.Search(ctx, node, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p3"}, ids(docs))

	_, err = ix.SearchProfile("nope")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = ix.BuildQuery(&kql.ComparisonNode{Field: "color", Op: kql.CompareOpEq, Value: &kql.LiteralNode{Value: "x"}})
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = ix.BuildQuery(&kql.ComparisonNode{Field: "note", Op: kql.CompareOpEq, Value: &kql.LiteralNode{Value: "x"}})
	assert.ErrorIs(t, err, ErrFieldNotSearchable)
}

func TestDeleteAndCount(t *testing.T) {
	ix := openTestIndex(t, testModel())
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := ix.Add(ctx, Document{ID: id, Fields: map[string]string{"price": "1"}})
		require.NoError(t, err)
	}
	require.NoError(t, ix.Refresh())

	total, err := ix.TotalCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)

	require.NoError(t, ix.Delete(ctx, "p2"))
	assert.ErrorIs(t, ix.Delete(ctx, "p2"), ErrDocumentNotFound)
	require.NoError(t, ix.Refresh())

	total, err = ix.TotalCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)

	require.NoError(t, ix.DeleteAll(ctx))
	require.NoError(t, ix.Refresh())
	total, err = ix.TotalCount()
	require.NoError(t, err)
	assert.Zero(t, total)

	// A fresh write after delete-all starts a new version history.
	_, err = ix.Add(ctx, Document{ID: "p1", Fields: map[string]string{"price": "1"}})
	require.NoError(t, err)
}

func TestShardedIndexRoutesByIdentity(t *testing.T) {
	model := testModel()
	model.ShardCount = 4
	ix := openTestIndex(t, model)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		_, err := ix.Add(ctx, Document{ID: id, Fields: map[string]string{"state": "NY"}})
		require.NoError(t, err)
	}
	require.NoError(t, ix.Refresh())

	total, err := ix.TotalCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), total)

	node, err := kql.ParseQuery("state eq 'NY'")
	require.NoError(t, err)
	docs, err := ix.Search(ctx, node, 100)
	require.NoError(t, err)
	assert.Len(t, docs, 8)

	got, err := ix.GetByID(ctx, "e")
	require.NoError(t, err)
	assert.Equal(t, "e", got.ID)
}

func TestGetTopNLimitsResults(t *testing.T) {
	ix := openTestIndex(t, testModel())
	ctx := context.Background()
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		_, err := ix.Add(ctx, Document{ID: id, Fields: map[string]string{"state": "NY"}})
		require.NoError(t, err)
	}
	require.NoError(t, ix.Refresh())

	node, err := kql.ParseQuery("state eq 'NY'")
	require.NoError(t, err)
	docs, err := ix.Search(ctx, node, 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDeleteAllSerializesWithWrites(t *testing.T) {
	ix := openTestIndex(t, testModel())
	ctx := context.Background()

	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("doc-%d", i)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for round := 0; round < 20; round++ {
			for _, id := range ids {
				_, err := ix.AddOrUpdate(ctx, Document{ID: id, Fields: map[string]string{"price": "1"}})
				assert.NoError(t, err)
			}
		}
	}()
	for i := 0; i < 10; i++ {
		require.NoError(t, ix.DeleteAll(ctx))
	}
	<-done
	require.NoError(t, ix.Refresh())

	// Writes and delete-all are serialized per shard, so after a refresh the
	// version cache and the visible snapshot must agree: a document the
	// snapshot serves rejects a must-not-exist write, one it does not serve
	// accepts it.
	for _, id := range ids {
		_, getErr := ix.GetByID(ctx, id)
		_, addErr := ix.AddOrUpdate(ctx, Document{
			ID:      id,
			Version: VersionMustNotExist,
			Fields:  map[string]string{"price": "2"},
		})
		if getErr == nil {
			assert.ErrorIs(t, addErr, ErrDocumentAlreadyExists, id)
		} else {
			assert.ErrorIs(t, getErr, ErrDocumentNotFound, id)
			assert.NoError(t, addErr, id)
		}
	}
}
