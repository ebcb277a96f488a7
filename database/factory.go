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
	"fmt"
	"slices"
	"time"

	"github.com/tomoncle/corekit/utils"
	"github.com/uptrace/bun"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// BaseDatabaseFactory creates and holds a configured database manager and
// provides helpers for initialization, health checks, and statistics.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger: GetLogger(),
	}
}

// CreateFromConfig applies DB_* environment overrides to cfg and builds a
// manager for it. No connection is opened yet.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	ApplyEnvOverrides(cfg)

	if !slices.Contains(supportedTypes, cfg.Connection.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Connection.Type, supportedTypes)
	}
	if cfg.Connection.Driver != "" && cfg.Connection.Driver != "pq" && cfg.Connection.Driver != "pgx" {
		return nil, fmt.Errorf("unsupported postgres driver: %s", cfg.Connection.Driver)
	}
	if cfg.Observability.LogLevel != "" {
		f.logger.SetLevel(ParseLogLevel(cfg.Observability.LogLevel))
	}

	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

// ApplyEnvOverrides replaces configuration values with the DB_* environment
// variables that are set. Sensitive values are expected to arrive this way.
func ApplyEnvOverrides(cfg *Config) {
	c := &cfg.Connection
	c.Type = utils.EnvDefaultString("DB_TYPE", c.Type)
	c.Driver = utils.EnvDefaultString("DB_DRIVER", c.Driver)
	c.Host = utils.EnvDefaultString("DB_HOST", c.Host)
	c.Port = utils.EnvDefaultInt("DB_PORT", c.Port)
	c.Username = utils.EnvDefaultString("DB_USERNAME", c.Username)
	c.Password = utils.EnvDefaultString("DB_PASSWORD", c.Password)
	c.DBName = utils.EnvDefaultString("DB_NAME", c.DBName)
	c.SSLMode = utils.EnvDefaultString("DB_SSLMODE", c.SSLMode)

	c.MaxIdleConns = utils.EnvDefaultInt("DB_MAX_IDLE_CONNS", c.MaxIdleConns)
	c.MaxOpenConns = utils.EnvDefaultInt("DB_MAX_OPEN_CONNS", c.MaxOpenConns)
	c.ConnMaxLifetime = utils.EnvDefaultSeconds("DB_CONN_MAX_LIFETIME", c.ConnMaxLifetime)

	c.EnableReconnect = utils.EnvDefaultBool("DB_ENABLE_RECONNECT", c.EnableReconnect)
	c.ReconnectInterval = utils.EnvDefaultSeconds("DB_RECONNECT_INTERVAL", c.ReconnectInterval)

	o := &cfg.Observability
	o.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", o.EnableQueryLog)
	o.EnableMetrics = utils.EnvDefaultBool("DB_ENABLE_METRICS", o.EnableMetrics)
	slowMs := utils.EnvDefaultInt("DB_SLOW_QUERY_MS", int(o.SlowQueryTime/time.Millisecond))
	o.SlowQueryTime = time.Duration(slowMs) * time.Millisecond
	o.LogLevel = utils.EnvDefaultString("DB_LOG_LEVEL", o.LogLevel)
}

// InitializeDatabase connects the manager built by CreateFromConfig.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the database connection managed by the factory.
func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

// GetHealthStatus returns the current database health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns database connection statistics from the manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
