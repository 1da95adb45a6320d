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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kestrelsearch/kestrel/pkg/pool"
)

// Metrics instruments the document-write and search hot paths.
// A nil Metrics is valid and records nothing.
type Metrics struct {
	documentsWritten   prometheus.Counter
	writeFailures      prometheus.Counter
	documentsDeleted   prometheus.Counter
	searches           prometheus.Counter
	refreshes          prometheus.Counter
	versionCacheHits   prometheus.Counter
	versionCacheMisses prometheus.Counter
	indexesOnline      prometheus.Gauge
	pooledObjects      prometheus.GaugeFunc
}

// NewMetrics registers the engine metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		documentsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kestrel", Subsystem: "index", Name: "documents_written_total",
			Help: "Number of successful document writes.",
		}),
		writeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kestrel", Subsystem: "index", Name: "write_failures_total",
			Help: "Number of rejected or failed document writes.",
		}),
		documentsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kestrel", Subsystem: "index", Name: "documents_deleted_total",
			Help: "Number of deleted documents.",
		}),
		searches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kestrel", Subsystem: "index", Name: "searches_total",
			Help: "Number of read operations against index readers.",
		}),
		refreshes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kestrel", Subsystem: "index", Name: "refreshes_total",
			Help: "Number of reader refreshes.",
		}),
		versionCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kestrel", Subsystem: "index", Name: "version_cache_hits_total",
			Help: "Version cache lookups served from a cache generation.",
		}),
		versionCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kestrel", Subsystem: "index", Name: "version_cache_misses_total",
			Help: "Version cache lookups that fell back to the storage engine.",
		}),
		indexesOnline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "kestrel", Subsystem: "index", Name: "indexes_online",
			Help: "Number of indexes currently online.",
		}),
		pooledObjects: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "kestrel", Subsystem: "index", Name: "pooled_objects_in_use",
			Help: "Objects checked out of the registered object pools.",
		}, func() float64 {
			var total int
			for _, n := range pool.AllRefsCount() {
				total += n
			}
			return float64(total)
		}),
	}
}

func (m *Metrics) documentWritten() {
	if m != nil {
		m.documentsWritten.Inc()
	}
}

func (m *Metrics) writeFailed() {
	if m != nil {
		m.writeFailures.Inc()
	}
}

func (m *Metrics) documentDeleted() {
	if m != nil {
		m.documentsDeleted.Inc()
	}
}

func (m *Metrics) searched() {
	if m != nil {
		m.searches.Inc()
	}
}

func (m *Metrics) refreshed() {
	if m != nil {
		m.refreshes.Inc()
	}
}

func (m *Metrics) versionCacheHit() {
	if m != nil {
		m.versionCacheHits.Inc()
	}
}

func (m *Metrics) versionCacheMiss() {
	if m != nil {
		m.versionCacheMisses.Inc()
	}
}

func (m *Metrics) indexOnline(delta float64) {
	if m != nil {
		m.indexesOnline.Add(delta)
	}
}
