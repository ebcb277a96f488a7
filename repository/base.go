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
	"reflect"

	"github.com/google/uuid"
	"github.com/tomoncle/corekit/database"
	"github.com/tomoncle/corekit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any, P types.EntityPtr[T]] struct {
	db     bun.IDB
	opts   options
	name   string
	logger database.Logger
}

// NewRepository returns a generic repository backed by the provided Bun
// handle, a *bun.DB or a bun.Tx. The handle is used as is; share a repository
// only as far as the handle may be shared.
func NewRepository[T any, P types.EntityPtr[T]](db bun.IDB, opts ...Option) Repository[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &baseRepositoryImpl[T, P]{
		db:     db,
		opts:   o,
		name:   reflect.TypeOf((*T)(nil)).Elem().Name(),
		logger: database.GetLogger(),
	}
}

func (r *baseRepositoryImpl[T, P]) DB() bun.IDB { return r.db }

func (r *baseRepositoryImpl[T, P]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T, P]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T, P]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T, P]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T, P]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T, P]) base(entity *T) *types.BaseEntity {
	return P(entity).EntityBase()
}

func (r *baseRepositoryImpl[T, P]) WithTx(tx bun.Tx) Repository[T] {
	return &baseRepositoryImpl[T, P]{db: tx, opts: r.opts, name: r.name, logger: r.logger}
}

func (r *baseRepositoryImpl[T, P]) RunInTx(ctx context.Context, fn func(ctx context.Context, repo Repository[T]) error) error {
	return database.RunInTx(ctx, r.db, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, r.WithTx(tx))
	})
}

func (r *baseRepositoryImpl[T, P]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	return NewQuery[T](r.db).Where(ByID(id)).First(ctx)
}

func (r *baseRepositoryImpl[T, P]) GetAll(ctx context.Context) ([]*T, error) {
	return NewQuery[T](r.db).orderedOrDefault().List(ctx)
}

func (r *baseRepositoryImpl[T, P]) GetAllWithDeleted(ctx context.Context, predicate Predicate) ([]*T, error) {
	return NewQuery[T](r.db).WithDeleted().Where(predicate).orderedOrDefault().List(ctx)
}

func (r *baseRepositoryImpl[T, P]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return NewQuery[T](r.db).Where(ByID(id)).Exists(ctx)
}

func (r *baseRepositoryImpl[T, P]) ExistsWhere(ctx context.Context, predicate Predicate) (bool, error) {
	return NewQuery[T](r.db).Where(predicate).Exists(ctx)
}

func (r *baseRepositoryImpl[T, P]) Query(predicate Predicate, includes ...string) *Query[T] {
	return NewQuery[T](r.db).Include(includes...).Where(predicate)
}

func (r *baseRepositoryImpl[T, P]) sorted(predicate Predicate, sort types.Sort, includes []string) *Query[T] {
	q := r.Query(predicate, includes...)
	if !sort.IsZero() {
		q = q.OrderBy(sort.Field, sort.Direction)
	}
	return q
}

func (r *baseRepositoryImpl[T, P]) FirstOrDefault(ctx context.Context, predicate Predicate, sort types.Sort, includes ...string) (*T, error) {
	return r.sorted(predicate, sort, includes).First(ctx)
}

func (r *baseRepositoryImpl[T, P]) GetPaginated(ctx context.Context, predicate Predicate, pageNumber, pageSize int, sort types.Sort, includes ...string) (int, []*T, error) {
	return Paginate(ctx, r.sorted(predicate, sort, includes), pageNumber, pageSize)
}

func (r *baseRepositoryImpl[T, P]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(1, 1)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	var predicate Predicate
	if f := pageRequest.GetFilter(); f != nil {
		predicate = f.Apply
	}
	total, items, err := r.GetPaginated(ctx, predicate, pagination.Page, pagination.PageSize,
		pageRequest.GetSort(), pageRequest.GetIncludes()...)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = items
	return pagination, nil
}

func (r *baseRepositoryImpl[T, P]) Add(ctx context.Context, entity *T, opts ...MutationOption) (*T, error) {
	if entity == nil {
		return nil, ErrNullEntity
	}
	saved, err := r.insert(ctx, r.opts.stamper(ctx, opts), []*T{entity})
	if err != nil {
		return nil, err
	}
	return saved[0], nil
}

func (r *baseRepositoryImpl[T, P]) AddRange(ctx context.Context, entities []*T, opts ...MutationOption) ([]*T, error) {
	if len(entities) == 0 {
		return make([]*T, 0), nil
	}
	for _, e := range entities {
		if e == nil {
			return nil, ErrNullEntity
		}
	}
	return r.insert(ctx, r.opts.stamper(ctx, opts), entities)
}

func (r *baseRepositoryImpl[T, P]) insert(ctx context.Context, s stamper, entities []*T) ([]*T, error) {
	batch := r.ValsToSlice(entities...)
	restore := r.snapshot(batch)
	for _, e := range batch {
		b := r.base(e)
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		s.created(b)
	}
	if _, err := r.db.NewInsert().Model(&batch).Exec(ctx); err != nil {
		restore()
		return nil, r.storageError("insert", err)
	}
	return batch, nil
}

func (r *baseRepositoryImpl[T, P]) Update(ctx context.Context, entity *T, opts ...MutationOption) (*T, error) {
	if entity == nil {
		return nil, ErrNullEntity
	}
	if r.base(entity).ID == uuid.Nil {
		return nil, ErrMissingID
	}
	restore := r.snapshot([]*T{entity})
	if err := r.update(ctx, r.db, r.opts.stamper(ctx, opts), entity); err != nil {
		restore()
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T, P]) UpdateRange(ctx context.Context, entities []*T, opts ...MutationOption) ([]*T, error) {
	if len(entities) == 0 {
		return make([]*T, 0), nil
	}
	for _, e := range entities {
		if e == nil {
			return nil, ErrNullEntity
		}
		if r.base(e).ID == uuid.Nil {
			return nil, ErrMissingID
		}
	}
	batch := r.ValsToSlice(entities...)
	restore := r.snapshot(batch)
	s := r.opts.stamper(ctx, opts)
	err := database.RunInTx(ctx, r.db, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, e := range batch {
			if err := r.update(ctx, tx, s, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		restore()
		return nil, err
	}
	return batch, nil
}

// update writes entity guarded by its version. The creation stamps and the
// deleted flag are never part of the SET list.
func (r *baseRepositoryImpl[T, P]) update(ctx context.Context, db bun.IDB, s stamper, entity *T) error {
	b := r.base(entity)
	version := b.Version
	s.modified(b)
	b.Version = version + 1
	res, err := db.NewUpdate().
		Model(entity).
		ExcludeColumn(types.ColumnCreatedAt, types.ColumnCreatedBy, types.ColumnDeleted).
		WherePK().
		Where("? = ?", bun.Ident(types.ColumnVersion), version).
		Where("? = ?", bun.Ident(types.ColumnDeleted), false).
		Exec(ctx)
	if err != nil {
		return r.storageError("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleEntity
	}
	return nil
}

func (r *baseRepositoryImpl[T, P]) Delete(ctx context.Context, id uuid.UUID, opts ...MutationOption) (bool, error) {
	n, err := r.softDelete(ctx, r.opts.stamper(ctx, opts), []uuid.UUID{id})
	return n > 0, err
}

func (r *baseRepositoryImpl[T, P]) DeleteRange(ctx context.Context, ids []uuid.UUID, opts ...MutationOption) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	n, err := r.softDelete(ctx, r.opts.stamper(ctx, opts), ids)
	return n > 0, err
}

func (r *baseRepositoryImpl[T, P]) DeleteWhere(ctx context.Context, predicate Predicate, opts ...MutationOption) (int, error) {
	ids, err := NewQuery[T](r.db).Where(predicate).IDs(ctx)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return r.softDelete(ctx, r.opts.stamper(ctx, opts), ids)
}

// softDelete marks the live rows among ids as deleted in one statement, so a
// row already deleted by someone else is not counted twice.
func (r *baseRepositoryImpl[T, P]) softDelete(ctx context.Context, s stamper, ids []uuid.UUID) (int, error) {
	res, err := r.db.NewUpdate().
		Model((*T)(nil)).
		Set("? = ?", bun.Ident(types.ColumnDeleted), true).
		Set("? = ?", bun.Ident(types.ColumnModifiedAt), s.now()).
		Set("? = ?", bun.Ident(types.ColumnModifiedBy), s.actor).
		Set("? = ? + 1", bun.Ident(types.ColumnVersion), bun.Ident(types.ColumnVersion)).
		Where("? IN (?)", bun.Ident(types.ColumnID), bun.In(ids)).
		Where("? = ?", bun.Ident(types.ColumnDeleted), false).
		Exec(ctx)
	if err != nil {
		return 0, r.storageError("soft delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	r.logger.Debug("Soft deleted", "entity", r.name, "requested", len(ids), "deleted", n, "by", s.actor)
	return int(n), nil
}

func (r *baseRepositoryImpl[T, P]) HardDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(types.ColumnID), id).
		Exec(ctx)
	if err != nil {
		return false, r.storageError("hard delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *baseRepositoryImpl[T, P]) ValsToSlice(entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}

// snapshot records the audit fields of entities and returns a func putting
// them back, so a failed write leaves no stamps behind.
func (r *baseRepositoryImpl[T, P]) snapshot(entities []*T) func() {
	saved := make([]types.BaseEntity, len(entities))
	for i, e := range entities {
		saved[i] = *r.base(e)
	}
	return func() {
		for i, e := range entities {
			*r.base(e) = saved[i]
		}
	}
}

// storageError logs err with its SQL classification and returns it unchanged.
func (r *baseRepositoryImpl[T, P]) storageError(op string, err error) error {
	_, kind := database.IsSqlError(err)
	r.logger.Warn("Repository "+op+" failed", "entity", r.name, "kind", kind, "error", err)
	return err
}
