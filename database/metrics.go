/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

// MetricsHook records query counts, durations and classified errors.
type MetricsHook struct {
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	errors        *prometheus.CounterVec
}

var _ bun.QueryHook = (*MetricsHook)(nil)

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *MetricsHook
)

// NewMetricsHook creates the collectors and registers them with reg.
func NewMetricsHook(reg prometheus.Registerer) (*MetricsHook, error) {
	h := &MetricsHook{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corekit_db_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"operation", "status"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corekit_db_query_duration_seconds",
				Help:    "Query duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corekit_db_errors_total",
				Help: "Total number of failed database queries",
			},
			[]string{"operation", "error_type"},
		),
	}
	for _, c := range []prometheus.Collector{h.queries, h.queryDuration, h.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// DefaultMetricsHook returns the hook registered with the default Prometheus
// registerer, shared by every connection of the process.
func DefaultMetricsHook() *MetricsHook {
	defaultMetricsOnce.Do(func() {
		h, err := NewMetricsHook(prometheus.DefaultRegisterer)
		if err != nil {
			GetLogger().Warn("Failed to register database metrics", "error", err)
			return
		}
		defaultMetrics = h
	})
	return defaultMetrics
}

func (h *MetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	op := strings.ToLower(event.Operation())
	h.queryDuration.WithLabelValues(op).Observe(time.Since(event.StartTime).Seconds())

	status := "ok"
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		status = "error"
		_, kind := IsSqlError(event.Err)
		h.errors.WithLabelValues(op, kind.String()).Inc()
	}
	h.queries.WithLabelValues(op, status).Inc()
}
