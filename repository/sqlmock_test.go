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
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/corekit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func newMockRepo(t *testing.T) (Repository[Customer], sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository[Customer](db, WithClock(newStepClock().Now)), mock
}

func TestInvalidSortTouchesNoStorage(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	_, _, err := repo.GetPaginated(ctx, nil, 1, 10, types.SortBy("Missing.Field", types.Ascending))
	assert.ErrorIs(t, err, ErrInvalidFieldPath)

	_, err = repo.FirstOrDefault(ctx, nil, types.SortBy("Orders.Amount", types.Descending))
	assert.ErrorIs(t, err, ErrInvalidFieldPath)

	_, err = repo.Page(ctx, types.NewPageRequestWithSort(1, 10, types.SortBy("Name.Length", types.Ascending)))
	assert.ErrorIs(t, err, ErrInvalidFieldPath)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectedInputTouchesNoStorage(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, nil)
	assert.ErrorIs(t, err, ErrNullEntity)
	_, err = repo.AddRange(ctx, []*Customer{nil})
	assert.ErrorIs(t, err, ErrNullEntity)
	_, err = repo.Update(ctx, &Customer{})
	assert.ErrorIs(t, err, ErrMissingID)

	ok, err := repo.DeleteRange(ctx, []uuid.UUID{})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteIssuesSingleConditionalUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`(?i)^UPDATE "customers" AS "customer" SET "deleted" = TRUE, "modified_at" = .+, "modified_by" = 'carol', "version" = "version" \+ 1 ` +
		`WHERE .*"id" IN \('` + regexp.QuoteMeta(id.String()) + `'\).*"deleted" = FALSE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Delete(WithActor(context.Background(), "carol"), id)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGuardsOnVersion(t *testing.T) {
	repo, mock := newMockRepo(t)

	c := &Customer{Name: "Acme"}
	c.ID = uuid.New()
	c.Version = 3
	c.ModifiedBy = "alice"

	mock.ExpectExec(`(?i)^UPDATE "customers" AS "customer" SET .*"version" = 4.* WHERE .*"version" = 3.*"deleted" = FALSE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), c, By("bob"))
	assert.ErrorIs(t, err, ErrStaleEntity)
	assert.Equal(t, int64(3), c.Version)
	assert.Equal(t, "alice", c.ModifiedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNeverWritesCreationStamps(t *testing.T) {
	var statements []string
	capture := sqlmock.QueryMatcherFunc(func(_, actual string) error {
		statements = append(statements, actual)
		return nil
	})
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(capture))
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()
	repo := NewRepository[Customer](db)

	c := &Customer{Name: "Acme"}
	c.ID = uuid.New()
	c.Version = 1

	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = repo.Update(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, statements, 1)
	assert.Contains(t, statements[0], `"modified_at" =`)
	assert.Contains(t, statements[0], `"name" = 'Acme'`)
	assert.NotContains(t, statements[0], `"created_at" =`)
	assert.NotContains(t, statements[0], `"created_by" =`)
	assert.NotContains(t, statements[0], `"deleted" = FALSE,`)
}

func TestStorageErrorsPropagateUnchanged(t *testing.T) {
	repo, mock := newMockRepo(t)
	errBoom := errors.New("connection reset")

	mock.ExpectExec(`(?i)^DELETE FROM "customers"`).WillReturnError(errBoom)

	_, err := repo.HardDelete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errBoom)
	require.NoError(t, mock.ExpectationsWereMet())
}
