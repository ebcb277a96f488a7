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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "corekit.yaml")
	content := "connection:\n  type: sqlite\n  dbname: " + filepath.Join(dir, "cli") + "\n  health_check_interval: 0s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHealthCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"health", "--config", writeConfig(t)})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "healthy: true")
}

func TestStatsCommandJSON(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"stats", "-c", writeConfig(t), "-o", "json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"max_open_conns": 100`)
}

func TestMissingConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"health", "--config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, cmd.Execute())
}
