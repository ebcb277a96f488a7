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

package corekit

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tomoncle/corekit/database"
	"github.com/tomoncle/corekit/repository"
	"github.com/tomoncle/corekit/types"
	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns a single live entity, or nil when there is none.
	Get(ctx context.Context, id uuid.UUID) (*T, error)

	// All returns all live entities, newest first.
	All(ctx context.Context) ([]*T, error)

	// List returns live entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter, includes ...string) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) ([]*T, error)

	// Update modifies existing entities.
	Update(ctx context.Context, model ...*T) ([]*T, error)

	// Delete soft-deletes entities by identifier.
	Delete(ctx context.Context, id ...uuid.UUID) (bool, error)

	// InTx runs fn with a repository bound to a single transaction.
	InTx(ctx context.Context, fn func(ctx context.Context, repo repository.Repository[T]) error) error

	// Repository exposes the underlying repository.
	Repository() repository.Repository[T]

	// SelectBuilder returns a Bun select query on the entity's table. It does
	// not filter soft-deleted rows.
	SelectBuilder() *bun.SelectQuery
}

type baseServiceImpl[T any, P types.EntityPtr[T]] struct {
	db   bun.IDB
	opts []repository.Option
	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a Service whose repository is bound lazily to the
// global database connection.
func NewService[T any, P types.EntityPtr[T]](opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T, P]{opts: opts}
}

// NewServiceWithDB returns a Service bound to db.
func NewServiceWithDB[T any, P types.EntityPtr[T]](db bun.IDB, opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T, P]{db: db, opts: opts}
}

func (s *baseServiceImpl[T, P]) Repository() repository.Repository[T] {
	s.once.Do(func() {
		db := s.db
		if db == nil {
			if global := database.GetDB(); global != nil {
				db = global
			}
		}
		s.repo = repository.NewRepository[T, P](db, s.opts...)
	})
	return s.repo
}

func (s *baseServiceImpl[T, P]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	return s.Repository().GetByID(ctx, id)
}

func (s *baseServiceImpl[T, P]) All(ctx context.Context) ([]*T, error) {
	return s.Repository().GetAll(ctx)
}

func (s *baseServiceImpl[T, P]) List(ctx context.Context, filter *types.QueryFilter, includes ...string) ([]*T, error) {
	var predicate repository.Predicate
	if filter != nil {
		predicate = filter.Apply
	}
	return s.Repository().Query(predicate, includes...).List(ctx)
}

func (s *baseServiceImpl[T, P]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.Repository().Page(ctx, page)
}

func (s *baseServiceImpl[T, P]) Save(ctx context.Context, model ...*T) ([]*T, error) {
	return s.Repository().AddRange(ctx, model)
}

func (s *baseServiceImpl[T, P]) Update(ctx context.Context, model ...*T) ([]*T, error) {
	return s.Repository().UpdateRange(ctx, model)
}

func (s *baseServiceImpl[T, P]) Delete(ctx context.Context, id ...uuid.UUID) (bool, error) {
	return s.Repository().DeleteRange(ctx, id)
}

func (s *baseServiceImpl[T, P]) InTx(ctx context.Context, fn func(ctx context.Context, repo repository.Repository[T]) error) error {
	return s.Repository().RunInTx(ctx, fn)
}

func (s *baseServiceImpl[T, P]) SelectBuilder() *bun.SelectQuery {
	return s.Repository().NewSelect().Model((*T)(nil))
}
