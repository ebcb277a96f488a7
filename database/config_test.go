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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
connection:
  type: postgres
  driver: pgx
  host: db.internal
  port: 5432
  username: corekit
  dbname: corekit
  max_open_conns: 20
  conn_max_lifetime: 10m
observability:
  slow_query_time: 250ms
  enable_metrics: true
`

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Connection.Type)
	assert.Equal(t, "pgx", cfg.Connection.Driver)
	assert.Equal(t, 5432, cfg.Connection.Port)
	assert.Equal(t, 20, cfg.Connection.MaxOpenConns)
	assert.Equal(t, 10*time.Minute, cfg.Connection.ConnMaxLifetime)
	assert.Equal(t, 10, cfg.Connection.MaxIdleConns, "unset values keep their default")
	assert.Equal(t, 250*time.Millisecond, cfg.Observability.SlowQueryTime)
	assert.True(t, cfg.Observability.EnableMetrics)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Connection.Host)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("connection: [not, a, map]"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "override.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30")
	t.Setenv("DB_SLOW_QUERY_MS", "100")
	t.Setenv("DB_ENABLE_METRICS", "false")

	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "override.internal", cfg.Connection.Host)
	assert.Equal(t, 6543, cfg.Connection.Port)
	assert.Equal(t, "secret", cfg.Connection.Password)
	assert.Equal(t, "corekit", cfg.Connection.Username)
	assert.Equal(t, 30*time.Second, cfg.Connection.ConnMaxLifetime)
	assert.Equal(t, 100*time.Millisecond, cfg.Observability.SlowQueryTime)
	assert.False(t, cfg.Observability.EnableMetrics)
}

func TestCreateFromConfigValidates(t *testing.T) {
	f := NewDatabaseFactory()

	_, err := f.CreateFromConfig(nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Connection.Type = "oracle"
	_, err = f.CreateFromConfig(cfg)
	assert.ErrorContains(t, err, "unsupported database type")

	cfg = DefaultConfig()
	cfg.Connection.Type = "postgres"
	cfg.Connection.Driver = "odbc"
	_, err = f.CreateFromConfig(cfg)
	assert.ErrorContains(t, err, "unsupported postgres driver")
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?cache=shared", sqliteDSN(""))
	assert.Equal(t, "file::memory:?cache=shared", sqliteDSN(":memory:"))
	assert.Equal(t, "corekit.db", sqliteDSN("corekit"))
	assert.Equal(t, "data/app.sqlite", sqliteDSN("data/app.sqlite"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("trace"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
}
