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

package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/kestrelsearch/kestrel/kestrel/index"
	"github.com/kestrelsearch/kestrel/pkg/function"
	"github.com/kestrelsearch/kestrel/pkg/kql"
	"github.com/kestrelsearch/kestrel/pkg/schema"
)

const maxBodyBytes = 8 << 20

type documentRequest struct {
	Fields  map[string]string `json:"fields"`
	ID      string            `json:"id,omitempty"`
	Version int64             `json:"version,omitempty"`
}

type documentResponse struct {
	Fields  map[string]string `json:"fields"`
	ID      string            `json:"id"`
	Version int64             `json:"version"`
}

type searchRequest struct {
	Query   string `json:"query,omitempty"`
	Profile string `json:"profile,omitempty"`
	Size    int    `json:"size,omitempty"`
}

type searchResponse struct {
	Documents []documentResponse `json:"documents"`
	Total     int                `json:"total"`
}

type indexInfoResponse struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Documents uint64 `json:"documents,omitempty"`
	DiskBytes uint64 `json:"diskBytes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) listIndexes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Indexes())
}

// createIndex accepts an index definition, in the same YAML shape the service
// persists.
func (s *Server) createIndex(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var model schema.Index
	if err = yaml.Unmarshal(body, &model); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err = s.svc.CreateIndex(&model); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": model.Name})
}

func (s *Server) indexInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	state, err := s.svc.State(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	diskBytes, err := s.svc.IndexDiskUsage(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	info := indexInfoResponse{Name: name, State: state.String(), DiskBytes: diskBytes}
	if state == index.StateOnline {
		if info.Documents, err = s.svc.TotalCount(name); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) deleteIndex(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.svc.DeleteIndex(chi.URLParam(r, "index")))
}

func (s *Server) openIndex(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.svc.OpenIndex(chi.URLParam(r, "index")))
}

func (s *Server) closeIndex(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.svc.CloseIndex(chi.URLParam(r, "index")))
}

func (s *Server) refreshIndex(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.svc.Refresh(chi.URLParam(r, "index")))
}

func (s *Server) addDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !s.decode(w, r, &req) {
		return
	}
	doc, err := s.svc.Add(r.Context(), chi.URLParam(r, "index"), index.Document{
		ID:     req.ID,
		Fields: req.Fields,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(doc))
}

func (s *Server) addOrUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !s.decode(w, r, &req) {
		return
	}
	doc, err := s.svc.AddOrUpdate(r.Context(), chi.URLParam(r, "index"), index.Document{
		ID:      req.ID,
		Version: req.Version,
		Fields:  req.Fields,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(doc))
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.GetByID(r.Context(), chi.URLParam(r, "index"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(doc))
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.svc.Delete(r.Context(), chi.URLParam(r, "index"), chi.URLParam(r, "id")))
}

func (s *Server) deleteAllDocuments(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.svc.DeleteAll(r.Context(), chi.URLParam(r, "index")))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	name := chi.URLParam(r, "index")
	var (
		docs []index.Document
		err  error
	)
	switch {
	case req.Profile != "":
		docs, err = s.svc.SearchProfile(r.Context(), name, req.Profile, req.Size)
	case req.Query != "":
		docs, err = s.svc.Search(r.Context(), name, req.Query, req.Size)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "either query or profile is required"})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := searchResponse{Documents: make([]documentResponse, 0, len(docs)), Total: len(docs)}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, toResponse(doc))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) parseQuery(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	node, err := s.svc.ParseQuery(req.Query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, renderNode(node))
}

func (s *Server) diskUsage(w http.ResponseWriter, _ *http.Request) {
	usage, err := s.svc.RootDiskUsage()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func toResponse(doc index.Document) documentResponse {
	return documentResponse{ID: doc.ID, Version: doc.Version, Fields: doc.Fields}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, index.ErrIndexNotFound),
		errors.Is(err, index.ErrDocumentNotFound),
		errors.Is(err, index.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, index.ErrIndexAlreadyExists),
		errors.Is(err, index.ErrIndexAlreadyOnline),
		errors.Is(err, index.ErrIndexAlreadyOffline),
		errors.Is(err, index.ErrIndexNotOnline),
		errors.Is(err, index.ErrDocumentAlreadyExists),
		errors.Is(err, index.ErrVersionMismatch):
		status = http.StatusConflict
	case errors.Is(err, index.ErrUnknownField),
		errors.Is(err, index.ErrInvalidFieldValue),
		errors.Is(err, index.ErrInvalidVersion),
		errors.Is(err, index.ErrMissingDocumentID),
		errors.Is(err, index.ErrFieldNotSearchable),
		errors.Is(err, index.ErrInvalidQuery),
		errors.Is(err, kql.ErrSyntax),
		errors.Is(err, function.ErrFunctionNotFound),
		errors.Is(err, function.ErrFieldNotFound),
		errors.Is(err, function.ErrInvalidArity),
		errors.Is(err, function.ErrNotANumber):
		status = http.StatusBadRequest
	default:
		var validationErr *schema.ValidationError
		if errors.As(err, &validationErr) {
			status = http.StatusBadRequest
		} else {
			s.l.Error().Err(err).Msg("request failed")
		}
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
