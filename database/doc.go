// Package database provides connection management for mysql, postgres and
// sqlite on top of Bun, YAML configuration with environment overrides, query
// hooks for console output, slow queries and Prometheus metrics, SQL error
// classification, logging, health checks and a transaction helper.
package database
