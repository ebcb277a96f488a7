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
	"fmt"
	"os"
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

// AbstractDatabaseManager owns one Bun connection and reports on its health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy" yaml:"healthy"`
	Connected     bool          `json:"connected" yaml:"connected"`
	ResponseTime  time.Duration `json:"response_time" yaml:"response_time"`
	ActiveConns   int           `json:"active_conns" yaml:"active_conns"`
	IdleConns     int           `json:"idle_conns" yaml:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns" yaml:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time" yaml:"last_check_time"`
}

// DBStats mirrors database/sql pool statistics.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns" yaml:"max_open_conns"`
	OpenConns         int           `json:"open_conns" yaml:"open_conns"`
	InUse             int           `json:"in_use" yaml:"in_use"`
	Idle              int           `json:"idle" yaml:"idle"`
	WaitCount         int64         `json:"wait_count" yaml:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration" yaml:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed" yaml:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed" yaml:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed" yaml:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and tune its pool.
type ConnectionConfig struct {
	Type                string        `yaml:"type"`   // postgres, mysql, sqlite
	Driver              string        `yaml:"driver"` // postgres only: pq (default) or pgx
	Host                string        `yaml:"host"`
	Port                int           `yaml:"port"`
	Username            string        `yaml:"username"`
	Password            string        `yaml:"password"`
	DBName              string        `yaml:"dbname"`
	SSLMode             string        `yaml:"sslmode"`
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxOpenConns        int           `yaml:"max_open_conns"`
	ConnMaxLifetime     time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime     time.Duration `yaml:"conn_max_idle_time"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout"`
	ReadTimeout         time.Duration `yaml:"read_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
	EnableReconnect     bool          `yaml:"enable_reconnect"`
	ReconnectInterval   time.Duration `yaml:"reconnect_interval"`
	MaxReconnectTries   int           `yaml:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// ObservabilityConfig selects the query hooks installed on a new connection.
type ObservabilityConfig struct {
	EnableQueryLog bool          `yaml:"enable_query_log"` // bundebug, honours BUNDEBUG
	ConsoleLog     bool          `yaml:"console_log"`      // colored console hook, honours BUN_CONSOLE
	SlowQueryTime  time.Duration `yaml:"slow_query_time"`
	EnableMetrics  bool          `yaml:"enable_metrics"`
	LogLevel       string        `yaml:"log_level"`
}

// Config is the document read by LoadConfig.
type Config struct {
	Connection    ConnectionConfig    `yaml:"connection"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
	}
}

// DefaultConfig returns a Config with default pool settings and a two second
// slow query threshold.
func DefaultConfig() *Config {
	return &Config{
		Connection:    *DefaultConnectionConfig(),
		Observability: ObservabilityConfig{SlowQueryTime: time.Second * 2},
	}
}

// LoadConfig reads a YAML document on top of DefaultConfig. Durations are
// written the way time.ParseDuration reads them, e.g. "30s".
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML document on top of DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
