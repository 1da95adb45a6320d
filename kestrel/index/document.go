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
	"sort"
	"strconv"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/kestrelsearch/kestrel/pkg/convert"
	"github.com/kestrelsearch/kestrel/pkg/schema"
)

// Version values with overloaded write semantics.
const (
	// VersionAny writes unconditionally, creating or updating.
	VersionAny int64 = 0
	// VersionMustNotExist fails the write when the document already exists.
	VersionMustNotExist int64 = -1
	// VersionMustExist fails the write when the document does not exist.
	VersionMustExist int64 = 1
)

// Document is the API-boundary representation of one indexed document. All
// field values are strings; the field descriptors coerce them to their typed
// representation at index time.
type Document struct {
	Fields  map[string]string
	ID      string
	Version int64
}

// checkVersion enforces the write version-check protocol against the
// last-known version (0 if the document is absent).
func checkVersion(last, requested int64) error {
	switch {
	case requested == VersionAny:
		return nil
	case requested == VersionMustNotExist:
		if last > 0 {
			return ErrDocumentAlreadyExists
		}
	case requested == VersionMustExist:
		if last == 0 {
			return ErrDocumentNotFound
		}
	case requested > 1:
		if last != requested {
			return errors.Wrapf(ErrVersionMismatch, "want %d, got %d", requested, last)
		}
	default:
		return errors.Wrapf(ErrInvalidVersion, "%d", requested)
	}
	return nil
}

// Add writes a document that must not already exist. A blank identity gets a
// generated one. The stored document, with its identity and assigned version,
// is returned.
func (ix *Index) Add(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Version = VersionMustNotExist
	return ix.write(ctx, doc)
}

// AddOrUpdate writes a document honoring the caller-supplied version
// semantics: 0 unconditional, -1 must-not-exist, 1 must-exist, >1 exact match.
func (ix *Index) AddOrUpdate(ctx context.Context, doc Document) (Document, error) {
	return ix.write(ctx, doc)
}

func (ix *Index) write(_ context.Context, doc Document) (Document, error) {
	shards, err := ix.onlineShards()
	if err != nil {
		return doc, err
	}
	if doc.ID == "" {
		return doc, ErrMissingDocumentID
	}
	s := ix.shardFor(shards, doc.ID)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	last, err := s.versions.get(doc.ID)
	if err != nil {
		ix.metrics.writeFailed()
		return doc, err
	}
	if err = checkVersion(last, doc.Version); err != nil {
		ix.metrics.writeFailed()
		return doc, errors.Wrap(err, doc.ID)
	}
	doc.Version = ix.vclock.next()
	bdoc, err := ix.translate(&doc)
	if err != nil {
		ix.metrics.writeFailed()
		return doc, err
	}
	if err = s.update(bdoc); err != nil {
		ix.metrics.writeFailed()
		return doc, err
	}
	s.versions.set(doc.ID, doc.Version)
	ix.metrics.documentWritten()
	return doc, nil
}

// Delete removes the document with the given identity.
func (ix *Index) Delete(_ context.Context, id string) error {
	shards, err := ix.onlineShards()
	if err != nil {
		return err
	}
	if id == "" {
		return ErrMissingDocumentID
	}
	s := ix.shardFor(shards, id)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	last, err := s.versions.get(id)
	if err != nil {
		return err
	}
	if last == 0 {
		return errors.Wrap(ErrDocumentNotFound, id)
	}
	if err = s.deleteDoc(id); err != nil {
		return err
	}
	s.versions.set(id, 0)
	ix.metrics.documentDeleted()
	return nil
}

// DeleteAll removes every document visible in the current snapshots.
func (ix *Index) DeleteAll(ctx context.Context) error {
	shards, err := ix.onlineShards()
	if err != nil {
		return err
	}
	for _, s := range shards {
		err = multierr.Append(err, s.deleteAll(ctx))
	}
	return err
}

// GetByID returns the stored document with the given identity, searching the
// snapshot made visible by the latest refresh.
func (ix *Index) GetByID(ctx context.Context, id string) (Document, error) {
	shards, err := ix.onlineShards()
	if err != nil {
		return Document{}, err
	}
	if id == "" {
		return Document{}, ErrMissingDocumentID
	}
	sd, err := ix.shardFor(shards, id).getByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if sd == nil {
		return Document{}, errors.Wrap(ErrDocumentNotFound, id)
	}
	return ix.decode(sd)
}

// GetTopN runs the parsed query against every shard and returns the n
// best-scoring stored documents.
func (ix *Index) GetTopN(ctx context.Context, n int, query bluge.Query) ([]Document, error) {
	shards, err := ix.onlineShards()
	if err != nil {
		return nil, err
	}
	var merged []storedDoc
	for _, s := range shards {
		docs, searchErr := s.search(ctx, query, n)
		if searchErr != nil {
			return nil, searchErr
		}
		merged = append(merged, docs...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].score > merged[j].score })
	if n > 0 && len(merged) > n {
		merged = merged[:n]
	}
	out := make([]Document, 0, len(merged))
	for i := range merged {
		doc, decodeErr := ix.decode(&merged[i])
		if decodeErr != nil {
			return nil, decodeErr
		}
		out = append(out, doc)
	}
	return out, nil
}

// TotalCount returns the number of live documents across all shards.
func (ix *Index) TotalCount() (uint64, error) {
	shards, err := ix.onlineShards()
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, s := range shards {
		c, countErr := s.count()
		if countErr != nil {
			return 0, countErr
		}
		total += c
	}
	return total, nil
}

// translate maps the string-valued document onto typed storage-engine fields
// using the field descriptors. Unknown fields are rejected, computed fields
// are overwritten by their script, and blank values fall back to the type
// default.
func (ix *Index) translate(doc *Document) (*bluge.Document, error) {
	for name := range doc.Fields {
		if _, ok := ix.byName[name]; !ok {
			return nil, errors.Wrap(ErrUnknownField, name)
		}
	}
	bdoc := bluge.NewDocument(doc.ID)
	for _, fd := range ix.fields {
		value := doc.Fields[fd.FieldName]
		if fd.Source != nil {
			computed, err := fd.Source(doc.Fields)
			if err != nil {
				return nil, errors.WithMessagef(err, "computed field %s", fd.FieldName)
			}
			value = computed
		}
		if value == "" {
			value = fd.Type.DefaultValue()
		}
		field, err := typedField(fd, value)
		if err != nil {
			return nil, err
		}
		bdoc.AddField(field)
	}
	bdoc.AddField(bluge.NewStoredOnlyField(versionField, convert.Int64ToBytes(doc.Version)))
	return bdoc, nil
}

func typedField(fd *schema.FieldDescriptor, value string) (bluge.Field, error) {
	switch fd.Type {
	case schema.FieldTypeInt, schema.FieldTypeLong:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidFieldValue, "%s: %q is not an integer", fd.FieldName, value)
		}
		return storable(bluge.NewNumericField(fd.SchemaName, float64(n)).Sortable(), fd), nil
	case schema.FieldTypeDouble:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidFieldValue, "%s: %q is not a number", fd.FieldName, value)
		}
		return storable(bluge.NewNumericField(fd.SchemaName, f).Sortable(), fd), nil
	case schema.FieldTypeDate:
		t, err := time.Parse(schema.DateLayout, value)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidFieldValue, "%s: %q is not a %s date", fd.FieldName, value, schema.DateLayout)
		}
		return storable(bluge.NewDateTimeField(fd.SchemaName, t).Sortable(), fd), nil
	case schema.FieldTypeDateTime:
		t, err := time.Parse(schema.DateTimeLayout, value)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidFieldValue, "%s: %q is not a %s datetime", fd.FieldName, value, schema.DateTimeLayout)
		}
		return storable(bluge.NewDateTimeField(fd.SchemaName, t).Sortable(), fd), nil
	case schema.FieldTypeBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidFieldValue, "%s: %q is not a bool", fd.FieldName, value)
		}
		tf := bluge.NewTextField(fd.SchemaName, strconv.FormatBool(b)).WithAnalyzer(fd.IndexAnalyzer).Sortable()
		return storable(tf, fd), nil
	case schema.FieldTypeExactText:
		tf := bluge.NewTextField(fd.SchemaName, value).WithAnalyzer(fd.IndexAnalyzer).Sortable()
		return storable(tf, fd), nil
	case schema.FieldTypeText, schema.FieldTypeCustom:
		return storable(bluge.NewTextField(fd.SchemaName, value).WithAnalyzer(fd.IndexAnalyzer), fd), nil
	case schema.FieldTypeHighlight:
		// Highlighting needs the original value and match locations.
		tf := bluge.NewTextField(fd.SchemaName, value).WithAnalyzer(fd.IndexAnalyzer).
			StoreValue().HighlightMatches()
		return tf, nil
	case schema.FieldTypeStored:
		return bluge.NewStoredOnlyField(fd.SchemaName, []byte(value)), nil
	default:
		return nil, errors.Wrap(schema.ErrUnsupportedFieldType, fd.Type.String())
	}
}

func storable(tf *bluge.TermField, fd *schema.FieldDescriptor) *bluge.TermField {
	if fd.Stored {
		tf.StoreValue()
	}
	return tf
}

// decode maps a stored document back to its string-valued representation.
// Only stored fields survive the round trip.
func (ix *Index) decode(sd *storedDoc) (Document, error) {
	doc := Document{
		ID:      sd.id,
		Version: sd.version,
		Fields:  make(map[string]string, len(sd.fields)),
	}
	for name, raw := range sd.fields {
		fd, ok := ix.bySchema[name]
		if !ok {
			continue
		}
		switch fd.Type {
		case schema.FieldTypeInt, schema.FieldTypeLong:
			f, err := bluge.DecodeNumericFloat64(raw)
			if err != nil {
				return doc, errors.WithMessagef(err, "decode %s", fd.FieldName)
			}
			doc.Fields[fd.FieldName] = strconv.FormatInt(int64(f), 10)
		case schema.FieldTypeDouble:
			f, err := bluge.DecodeNumericFloat64(raw)
			if err != nil {
				return doc, errors.WithMessagef(err, "decode %s", fd.FieldName)
			}
			doc.Fields[fd.FieldName] = strconv.FormatFloat(f, 'f', -1, 64)
		case schema.FieldTypeDate:
			t, err := bluge.DecodeDateTime(raw)
			if err != nil {
				return doc, errors.WithMessagef(err, "decode %s", fd.FieldName)
			}
			doc.Fields[fd.FieldName] = t.Format(schema.DateLayout)
		case schema.FieldTypeDateTime:
			t, err := bluge.DecodeDateTime(raw)
			if err != nil {
				return doc, errors.WithMessagef(err, "decode %s", fd.FieldName)
			}
			doc.Fields[fd.FieldName] = t.Format(schema.DateTimeLayout)
		default:
			doc.Fields[fd.FieldName] = string(raw)
		}
	}
	return doc, nil
}
