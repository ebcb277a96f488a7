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

import "context"

// NormalizePage clamps a 1-based page number and page size to at least one.
func NormalizePage(pageNumber, pageSize int) (int, int) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	return pageNumber, pageSize
}

// Paginate counts the rows matched by q and loads the requested window.
// total is counted before windowing; a page past the end yields no items
// and the same total. Without an explicit ordering rows are returned newest
// first, and the id always breaks ties so windows do not overlap.
func Paginate[T any](ctx context.Context, q *Query[T], pageNumber, pageSize int) (int, []*T, error) {
	page, size := NormalizePage(pageNumber, pageSize)
	if err := q.Err(); err != nil {
		return 0, nil, err
	}
	total, err := q.Count(ctx)
	if err != nil {
		return 0, nil, err
	}
	// page-1 is compared before multiplying so huge pages cannot wrap.
	if total == 0 || page-1 > (total-1)/size {
		return total, make([]*T, 0), nil
	}
	skip := (page - 1) * size
	items, err := q.orderedOrDefault().Offset(skip).Limit(size).List(ctx)
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
