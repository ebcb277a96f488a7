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

package types

import "github.com/uptrace/bun"

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// Apply adds the filter to a select query. A nil filter matches everything.
func (f *QueryFilter) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if f == nil || f.Schema == "" {
		return q
	}
	return q.Where(f.Schema, f.Args...)
}

// Sort names a field path (e.g. "Owner.DisplayName") and its direction.
// An empty Field means the default ordering.
type Sort struct {
	Field     string
	Direction SortDirection
}

// SortBy constructs a Sort.
func SortBy(field string, direction SortDirection) Sort {
	return Sort{Field: field, Direction: direction}
}

// IsZero reports whether no explicit ordering was requested.
func (s Sort) IsZero() bool { return s.Field == "" }

// PageRequest describes pagination, an optional filter, ordering and
// eager-load directives.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	sort     Sort
	includes []string
}

// GetPageSize returns the page size, clamped to at least one.
func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = 1
	}
	return p.pageSize
}

// GetPage returns the 1-based page number, clamped to at least one.
func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetSort() Sort {
	return p.sort
}

func (p *PageRequest) GetIncludes() []string {
	return p.includes
}

// NewPageRequest constructs a PageRequest with filter, sort and includes.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, sort Sort, includes ...string) *PageRequest {
	return &PageRequest{page, pageSize, filter, sort, includes}
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter *QueryFilter) *PageRequest {
	return NewPageRequest(page, pageSize, filter, Sort{})
}

// NewPageRequestWithSort constructs a PageRequest with ordering only.
func NewPageRequestWithSort(page int, pageSize int, sort Sort) *PageRequest {
	return NewPageRequest(page, pageSize, nil, sort)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, Sort{})
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int
	Items    []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// Pages returns the number of pages needed to hold Total items.
func (p *Pagination[T]) Pages() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// HasNext reports whether a page follows the current one.
func (p *Pagination[T]) HasNext() bool {
	return p.Page < p.Pages()
}
