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
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/corekit/types"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{page: 0, size: -5, wantPage: 1, wantSize: 1},
		{page: -3, size: 0, wantPage: 1, wantSize: 1},
		{page: 4, size: 25, wantPage: 4, wantSize: 25},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.page, tt.size), func(t *testing.T) {
			p, s := NormalizePage(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, p)
			assert.Equal(t, tt.wantSize, s)
		})
	}
}

func TestPaginateDefaultsToNewestFirst(t *testing.T) {
	repo, _ := newCustomerRepo(t)
	seedCustomers(t, repo, 25)

	total, items, err := repo.GetPaginated(context.Background(), nil, 2, 10, types.Sort{})
	require.NoError(t, err)
	assert.Equal(t, 25, total)

	want := make([]string, 0, 10)
	for i := 14; i >= 5; i-- {
		want = append(want, fmt.Sprintf("c%02d", i))
	}
	assert.Equal(t, want, names(items))
}

func TestPaginateClampsInput(t *testing.T) {
	repo, _ := newCustomerRepo(t)
	ctx := context.Background()
	seedCustomers(t, repo, 5)

	total, clamped, err := repo.GetPaginated(ctx, nil, 0, -5, types.Sort{})
	require.NoError(t, err)
	_, first, err := repo.GetPaginated(ctx, nil, 1, 1, types.Sort{})
	require.NoError(t, err)

	assert.Equal(t, 5, total)
	assert.Equal(t, names(first), names(clamped))
	assert.Equal(t, []string{"c04"}, names(clamped))
}

func TestPaginateBeyondRange(t *testing.T) {
	repo, _ := newCustomerRepo(t)
	seedCustomers(t, repo, 5)

	total, items, err := repo.GetPaginated(context.Background(), nil, 3, 10, types.Sort{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestPaginateHugePageIsEmpty(t *testing.T) {
	repo, _ := newCustomerRepo(t)
	seedCustomers(t, repo, 5)
	ctx := context.Background()

	for _, tt := range []struct{ page, size int }{
		{math.MaxInt, 2},
		{math.MaxInt, math.MaxInt},
		{2, math.MaxInt},
		{math.MaxInt/2 + 2, 2},
	} {
		total, items, err := repo.GetPaginated(ctx, nil, tt.page, tt.size, types.Sort{})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, items, "page=%d size=%d", tt.page, tt.size)
	}

	total, items, err := repo.GetPaginated(ctx, nil, 1, math.MaxInt, types.Sort{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, items, 5)
}

func TestPaginateEmptyTable(t *testing.T) {
	repo, _ := newCustomerRepo(t)

	total, items, err := repo.GetPaginated(context.Background(), nil, 1, 10, types.Sort{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestPagesCoverEveryRowOnce(t *testing.T) {
	repo, _ := newCustomerRepo(t)
	ctx := context.Background()
	seedCustomers(t, repo, 23)

	// Tier has many ties, so the id tiebreaker decides the window borders.
	for _, sort := range []types.Sort{{}, types.SortBy("Tier", types.Ascending), types.SortBy("Tier", types.Descending)} {
		seen := map[string]int{}
		count := 0
		for page := 1; ; page++ {
			total, items, err := repo.GetPaginated(ctx, nil, page, 7, sort)
			require.NoError(t, err)
			require.Equal(t, 23, total)
			if len(items) == 0 {
				break
			}
			for _, c := range items {
				seen[c.Name]++
			}
			count += len(items)
		}
		assert.Equal(t, 23, count)
		assert.Len(t, seen, 23)
	}
}

func TestPaginateRespectsPredicate(t *testing.T) {
	repo, _ := newCustomerRepo(t)
	seedCustomers(t, repo, 9)

	total, items, err := repo.GetPaginated(context.Background(), Where("?TableAlias.tier = ?", 2), 1, 2, types.SortBy("Name", types.Ascending))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"c02", "c05"}, names(items))
}
