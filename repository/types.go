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

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tomoncle/corekit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines audited CRUD operations with soft delete.
type CrudRepository[T any] interface {
	// GetByID returns the non-deleted entity with id, or nil if there is none.
	GetByID(ctx context.Context, id uuid.UUID) (*T, error)

	// GetAll returns every non-deleted entity, newest first.
	GetAll(ctx context.Context) ([]*T, error)

	// Add mints an id unless one is set, stamps audit fields and inserts.
	Add(ctx context.Context, entity *T, opts ...MutationOption) (*T, error)

	// AddRange inserts all entities with a single statement.
	AddRange(ctx context.Context, entities []*T, opts ...MutationOption) ([]*T, error)

	// Update restamps the modifier and persists every column except the
	// creation stamps and the deleted flag.
	Update(ctx context.Context, entity *T, opts ...MutationOption) (*T, error)

	// UpdateRange updates all entities in one transaction.
	UpdateRange(ctx context.Context, entities []*T, opts ...MutationOption) ([]*T, error)

	// Delete soft-deletes id. It reports false when no live row matched.
	Delete(ctx context.Context, id uuid.UUID, opts ...MutationOption) (bool, error)

	// DeleteRange soft-deletes ids, reporting whether any live row matched.
	DeleteRange(ctx context.Context, ids []uuid.UUID, opts ...MutationOption) (bool, error)

	// DeleteWhere soft-deletes every live row matching predicate and returns
	// how many were marked.
	DeleteWhere(ctx context.Context, predicate Predicate, opts ...MutationOption) (int, error)

	// HardDelete physically removes the row, deleted or not.
	HardDelete(ctx context.Context, id uuid.UUID) (bool, error)
}

// QueryRepository defines filtered, ordered lookups.
type QueryRepository[T any] interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	ExistsWhere(ctx context.Context, predicate Predicate) (bool, error)

	// Query composes a query without executing it. Includes name relations;
	// the reserved directive "deleted" also returns soft-deleted rows.
	Query(predicate Predicate, includes ...string) *Query[T]

	// FirstOrDefault returns the first match in sort order, or nil.
	FirstOrDefault(ctx context.Context, predicate Predicate, sort types.Sort, includes ...string) (*T, error)

	// GetAllWithDeleted lists matching rows including soft-deleted ones.
	GetAllWithDeleted(ctx context.Context, predicate Predicate) ([]*T, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	GetPaginated(ctx context.Context, predicate Predicate, pageNumber, pageSize int, sort types.Sort, includes ...string) (int, []*T, error)

	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// TransactionRepository binds the repository to a transaction.
type TransactionRepository[T any] interface {
	// WithTx returns a repository issuing its statements on tx.
	WithTx(tx bun.Tx) Repository[T]

	// RunInTx runs fn in a transaction, committing when fn returns nil.
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo Repository[T]) error) error
}

// Repository combines CRUD, query, pagination and transactional operations
// and exposes Bun query builders for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	QueryRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
	DB() bun.IDB
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
