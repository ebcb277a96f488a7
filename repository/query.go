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
	"database/sql"
	"errors"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/tomoncle/corekit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// IncludeDeleted is the reserved include directive that disables the
// soft-delete filter.
const IncludeDeleted = "deleted"

// Predicate narrows a select query, usually with Where clauses. Use
// ?TableAlias to address columns of the entity table.
type Predicate func(q *bun.SelectQuery) *bun.SelectQuery

// Where builds a Predicate from a bun WHERE fragment.
func Where(query string, args ...interface{}) Predicate {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(query, args...)
	}
}

// And combines predicates; nil entries are skipped.
func And(predicates ...Predicate) Predicate {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, p := range predicates {
			if p != nil {
				q = p(q)
			}
		}
		return q
	}
}

// ByID matches the entity with the given identifier.
func ByID(id uuid.UUID) Predicate {
	return Where("?TableAlias.? = ?", bun.Ident(types.ColumnID), id)
}

// ByIDs matches any of the given identifiers.
func ByIDs(ids []uuid.UUID) Predicate {
	return Where("?TableAlias.? IN (?)", bun.Ident(types.ColumnID), bun.In(ids))
}

type ordering struct {
	field *FieldPath
	dir   types.SortDirection
}

var (
	createdAtPath = &FieldPath{Path: "CreatedAt", Column: types.ColumnCreatedAt}
	idPath        = &FieldPath{Path: "ID", Column: types.ColumnID}
)

// Query is a composed, not yet executed query over the table of T. Every
// builder method returns a new Query, so a value can be shared and refined.
// Composition errors are kept and returned by the terminal methods before
// anything is sent to the database.
type Query[T any] struct {
	db             bun.IDB
	predicates     []Predicate
	relations      []string
	includeDeleted bool
	orders         []ordering
	offset         int
	limit          int
	err            error
}

// NewQuery starts an empty query matching every non-deleted row of T.
func NewQuery[T any](db bun.IDB) *Query[T] {
	return &Query[T]{db: db}
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.predicates = append([]Predicate(nil), q.predicates...)
	c.relations = append([]string(nil), q.relations...)
	c.orders = append([]ordering(nil), q.orders...)
	return &c
}

func entityType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Err returns the first composition error, if any.
func (q *Query[T]) Err() error { return q.err }

// Where adds a predicate. A nil predicate matches everything.
func (q *Query[T]) Where(p Predicate) *Query[T] {
	if p == nil {
		return q
	}
	c := q.clone()
	c.predicates = append(c.predicates, p)
	return c
}

// Include adds eager-load directives naming relations of T, nested with dots
// ("Owner.Company"). The reserved directive "deleted" makes the query
// include soft-deleted rows instead.
func (q *Query[T]) Include(directives ...string) *Query[T] {
	c := q.clone()
	for _, d := range directives {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if strings.EqualFold(d, IncludeDeleted) {
			c.includeDeleted = true
			continue
		}
		if c.err == nil {
			c.err = validateInclude(q.db.Dialect().Tables(), entityType[T](), d)
		}
		c.addRelation(d)
	}
	return c
}

func (q *Query[T]) addRelation(name string) {
	for _, r := range q.relations {
		if r == name {
			return
		}
	}
	q.relations = append(q.relations, name)
}

// WithDeleted includes soft-deleted rows.
func (q *Query[T]) WithDeleted() *Query[T] {
	c := q.clone()
	c.includeDeleted = true
	return c
}

// OrderBy appends an ordering on a dotted field path.
func (q *Query[T]) OrderBy(path string, dir types.SortDirection) *Query[T] {
	c := q.clone()
	fp, err := ResolveFieldPath[T](q.db.Dialect(), path)
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return c
	}
	c.orders = append(c.orders, ordering{field: fp, dir: dir})
	for _, j := range fp.Joins {
		c.addRelation(j)
	}
	return c
}

// Ordered reports whether an explicit ordering was requested.
func (q *Query[T]) Ordered() bool { return len(q.orders) > 0 }

// orderedOrDefault orders by creation time, newest first, when no ordering
// was requested.
func (q *Query[T]) orderedOrDefault() *Query[T] {
	if q.Ordered() {
		return q
	}
	c := q.clone()
	c.orders = append(c.orders, ordering{field: createdAtPath, dir: types.Descending})
	return c
}

// Offset skips n rows.
func (q *Query[T]) Offset(n int) *Query[T] {
	c := q.clone()
	c.offset = n
	return c
}

// Limit returns at most n rows; zero means no limit.
func (q *Query[T]) Limit(n int) *Query[T] {
	c := q.clone()
	c.limit = n
	return c
}

// Build returns the bun query for model. Use it to add clauses the composer
// does not cover; the query has not been executed.
func (q *Query[T]) Build(model interface{}) (*bun.SelectQuery, error) {
	return q.build(model, true)
}

// build applies, in order: relations, the soft-delete filter, predicates and,
// when withOrder is set, ordering and windowing.
func (q *Query[T]) build(model interface{}, withOrder bool) (*bun.SelectQuery, error) {
	sq, err := q.newSelect(model)
	if err != nil {
		return nil, err
	}
	for _, r := range q.relations {
		sq = sq.Relation(r)
	}
	return q.finish(sq, withOrder), nil
}

func (q *Query[T]) newSelect(model interface{}) (*bun.SelectQuery, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.db.NewSelect().Model(model), nil
}

func (q *Query[T]) finish(sq *bun.SelectQuery, withOrder bool) *bun.SelectQuery {
	if !q.includeDeleted {
		sq = sq.Where("?TableAlias.? = ?", bun.Ident(types.ColumnDeleted), false)
	}
	for _, p := range q.predicates {
		sq = p(sq)
	}
	if !withOrder {
		return sq
	}
	for _, o := range q.orders {
		sq = o.field.ApplyOrder(sq, o.dir)
	}
	if n := len(q.orders); n > 0 && !q.orders[n-1].field.isRootID() {
		sq = idPath.ApplyOrder(sq, q.orders[n-1].dir)
	}
	if q.offset > 0 {
		sq = sq.Offset(q.offset)
	}
	if q.limit > 0 {
		sq = sq.Limit(q.limit)
	}
	return sq
}

// Count returns the number of matching rows, ignoring ordering and windowing.
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	sq, err := q.build((*T)(nil), false)
	if err != nil {
		return 0, err
	}
	return sq.Count(ctx)
}

// Exists reports whether any row matches.
func (q *Query[T]) Exists(ctx context.Context) (bool, error) {
	sq, err := q.build((*T)(nil), false)
	if err != nil {
		return false, err
	}
	return sq.Exists(ctx)
}

// List materializes the query.
func (q *Query[T]) List(ctx context.Context) ([]*T, error) {
	entities := make([]*T, 0)
	sq, err := q.build(&entities, true)
	if err != nil {
		return nil, err
	}
	if err := sq.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

// First returns the first row in order (newest first by default), or nil
// when nothing matches.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	var entity T
	sq, err := q.orderedOrDefault().Limit(1).build(&entity, true)
	if err != nil {
		return nil, err
	}
	if err := sq.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// IDs returns the identifiers of the matching rows. Relations are not
// joined, so predicates must only reference the entity table.
func (q *Query[T]) IDs(ctx context.Context) ([]uuid.UUID, error) {
	sq, err := q.newSelect((*T)(nil))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0)
	if err := q.finish(sq.Column(types.ColumnID), false).Scan(ctx, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// validateInclude checks every segment of include against the relations bun
// knows for the entity table.
func validateInclude(tables *schema.Tables, root reflect.Type, include string) error {
	table := tables.Get(root)
	for _, name := range strings.Split(include, ".") {
		rel, ok := table.Relations[name]
		if ok {
			table = rel.JoinTable
			continue
		}
		if _, exists := table.Type.FieldByName(name); exists {
			return invalidInclude(root.String(), include, name+" is not a relation")
		}
		return invalidInclude(root.String(), include, "no field "+name)
	}
	return nil
}
