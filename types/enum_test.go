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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortDirection(t *testing.T) {
	assert.Equal(t, "ASC", Ascending.String())
	assert.Equal(t, "DESC", Descending.String())
	assert.Equal(t, "desc", Descending.Name())
	assert.Equal(t, 1, Descending.Number())

	invalid := SortDirection(7)
	assert.False(t, invalid.IsValid())
	assert.Equal(t, IllegalValue, invalid.Number())
	assert.Equal(t, IllegalName, invalid.String())
	assert.Equal(t, IllegalDesc, invalid.Desc())
}

func TestParseSortDirection(t *testing.T) {
	assert.Equal(t, Descending, ParseSortDirection(" DESC "))
	assert.Equal(t, Descending, ParseSortDirection("descending"))
	assert.Equal(t, Ascending, ParseSortDirection("asc"))
	assert.Equal(t, Ascending, ParseSortDirection(""))
}
