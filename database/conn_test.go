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
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets"`

	ID   int64 `bun:",pk,autoincrement"`
	Name string
}

func sqliteConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Connection.Type = "sqlite"
	cfg.Connection.DBName = filepath.Join(t.TempDir(), "corekit.db")
	cfg.Connection.HealthCheckInterval = 0
	return cfg
}

func initTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()
	db, err := InitDB(ctx, sqliteConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })
	require.NoError(t, CreateTables(ctx, db, (*widget)(nil)))
	return db
}

func countWidgets(t *testing.T, db bun.IDB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*widget)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestInitDBLifecycle(t *testing.T) {
	ctx := context.Background()
	db := initTestDB(t)
	assert.Same(t, db, GetDB())
	assert.NotNil(t, GetDatabaseManager())

	status := GetHealthStatus(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 100, GetDatabaseStats().MaxOpenConns)

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.Equal(t, "Database not initialized", GetHealthStatus(ctx).LastError)
	assert.Equal(t, &DBStats{}, GetDatabaseStats())
	assert.NoError(t, CloseDB())
}

func TestInitDBRejectsBadConfig(t *testing.T) {
	_, err := InitDB(context.Background(), nil)
	assert.Error(t, err)

	cfg := sqliteConfig(t)
	cfg.Connection.Type = "mssql"
	_, err = InitDB(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestRunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	db := initTestDB(t)
	boom := errors.New("boom")

	err := RunInTx(ctx, db, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countWidgets(t, db))

	err = RunInTx(ctx, db, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&widget{Name: "b"}).Exec(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countWidgets(t, db))
}

func TestRunInTxJoinsOuterTx(t *testing.T) {
	ctx := context.Background()
	db := initTestDB(t)
	boom := errors.New("boom")

	err := db.RunInTx(ctx, nil, func(ctx context.Context, outer bun.Tx) error {
		inner := RunInTx(ctx, outer, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.NewInsert().Model(&widget{Name: "nested"}).Exec(ctx)
			return err
		})
		require.NoError(t, inner)
		assert.Equal(t, 1, countWidgets(t, outer))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countWidgets(t, db), "the outer rollback discards the joined work")
}

func TestCreateTablesIsIdempotent(t *testing.T) {
	db := initTestDB(t)
	assert.NoError(t, CreateTables(context.Background(), db, (*widget)(nil)))
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "widget", modelName((*widget)(nil)))
	assert.Equal(t, "widget", modelName(widget{}))
	assert.Equal(t, "<nil>", modelName(nil))
}

func TestModelRegistryOrdersByPriority(t *testing.T) {
	type a struct{}
	type b struct{}
	type c struct{}

	r := newModelRegistry()
	r.Register(&modelAdapter{instance: (*b)(nil), priority: 2})
	r.Register(&modelAdapter{instance: (*a)(nil), priority: 1})
	r.Register(&modelAdapter{instance: (*c)(nil), priority: 1})

	var got []string
	for _, m := range r.Models() {
		got = append(got, modelName(m.Instance()))
	}
	assert.Equal(t, []string{"a", "c", "b"}, got)
}
