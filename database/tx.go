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

	"github.com/uptrace/bun"
)

// RunInTx runs fn inside a transaction on db, committing when fn returns nil
// and rolling back otherwise. When db is already a bun.Tx, fn joins it and
// the caller keeps control of commit and rollback.
func RunInTx(ctx context.Context, db bun.IDB, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	if tx, ok := db.(bun.Tx); ok {
		return fn(ctx, tx)
	}
	err := db.RunInTx(ctx, opts, fn)
	if err != nil {
		_, kind := IsSqlError(err)
		GetLogger().Debug("Transaction rolled back", "kind", kind, "error", err)
	}
	return err
}
