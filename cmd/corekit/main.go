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

// Command corekit checks the database described by a YAML configuration.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/tomoncle/corekit/database"
	"gopkg.in/yaml.v3"
)

var (
	version      = "0.1.0-dev"
	configPath   string
	outputFormat string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "corekit",
		Short:         "Inspect the database used by corekit repositories",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "corekit.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "Output format: yaml or json")

	rootCmd.AddCommand(
		newHealthCmd(),
		newStatsCmd(),
	)
	return rootCmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Connect and report the database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context) error {
				status := database.GetHealthStatus(ctx)
				if err := render(cmd.OutOrStdout(), status); err != nil {
					return err
				}
				if !status.Healthy {
					return fmt.Errorf("database unhealthy: %s", status.LastError)
				}
				return nil
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Connect and print the connection pool statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context) error {
				return render(cmd.OutOrStdout(), database.GetDatabaseStats())
			})
		},
	}
}

func withDB(ctx context.Context, fn func(ctx context.Context) error) error {
	cfg, err := database.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if _, err := database.InitDB(ctx, cfg); err != nil {
		return err
	}
	defer func() { _ = database.CloseDB() }()
	return fn(ctx)
}

func render(w io.Writer, v interface{}) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}
