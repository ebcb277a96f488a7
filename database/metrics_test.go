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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestMetricsHookCountsQueries(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := NewMetricsHook(reg)
	require.NoError(t, err)
	ctx := context.Background()

	h.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	h.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 2", StartTime: time.Now(), Err: sql.ErrNoRows})
	h.AfterQuery(ctx, &bun.QueryEvent{
		Query:     "INSERT INTO customers VALUES (1)",
		StartTime: time.Now(),
		Err:       errors.New("UNIQUE constraint failed: customers.id"),
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(h.queries.WithLabelValues("select", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.queries.WithLabelValues("insert", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.errors.WithLabelValues("insert", "duplicate_key")))
	assert.Equal(t, 2, testutil.CollectAndCount(h.queryDuration))
}

func TestMetricsHookRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetricsHook(reg)
	require.NoError(t, err)

	_, err = NewMetricsHook(reg)
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}
