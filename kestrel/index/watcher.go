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
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/kestrelsearch/kestrel/pkg/logger"
	"github.com/kestrelsearch/kestrel/pkg/run"
	"github.com/kestrelsearch/kestrel/pkg/schema"
)

// definitionWatcher watches the service root for dropped index definition
// files. A YAML file appearing at the root level is read, the index created,
// and the file removed; the definition then lives in the index directory.
type definitionWatcher struct {
	svc    *Service
	w      *fsnotify.Watcher
	closer *run.Closer
	l      *logger.Logger
}

func watchDefinitions(svc *Service) (*definitionWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = w.Add(svc.root); err != nil {
		_ = w.Close()
		return nil, err
	}
	dw := &definitionWatcher{
		svc:    svc,
		w:      w,
		closer: run.NewCloser(1),
		l:      svc.l.Named("definition-watcher"),
	}
	go dw.run()
	return dw, nil
}

func (dw *definitionWatcher) run() {
	defer dw.closer.Done()
	for {
		select {
		case <-dw.closer.CloseNotify():
			return
		case event, ok := <-dw.w.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			switch filepath.Ext(event.Name) {
			case ".yaml", ".yml":
				dw.load(event.Name)
			}
		case err, ok := <-dw.w.Errors:
			if !ok {
				return
			}
			dw.l.Warn().Err(err).Msg("definition watcher error")
		}
	}
}

func (dw *definitionWatcher) load(path string) {
	model, err := schema.ReadIndexFile(path)
	if err != nil {
		dw.l.Warn().Err(err).Str("file", path).Msg("ignoring unreadable definition file")
		return
	}
	if dw.svc.Exists(model.Name) {
		dw.l.Debug().Str("index", model.Name).Msg("definition for an existing index ignored")
		return
	}
	if err = dw.svc.CreateIndex(model); err != nil {
		dw.l.Warn().Err(err).Str("file", path).Msg("rejected dropped definition")
		return
	}
	if err = os.Remove(path); err != nil {
		dw.l.Warn().Err(err).Str("file", path).Msg("failed to remove consumed definition file")
	}
	dw.l.Info().Str("index", model.Name).Str("file", path).Msg("index created from dropped definition")
}

func (dw *definitionWatcher) close() error {
	dw.closer.CloseThenWait()
	return dw.w.Close()
}
