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
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/corekit/database"
	"github.com/tomoncle/corekit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Address struct {
	City    string `bun:"city"`
	Country string `bun:"country"`
}

type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:account"`
	types.BaseEntity

	DisplayName *string `bun:"display_name"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:ord"`
	types.BaseEntity

	CustomerID uuid.UUID `bun:"customer_id,type:varchar(36)"`
	Amount     int64     `bun:"amount"`
}

type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:customer"`
	types.BaseEntity

	Name    string           `bun:"name,notnull"`
	Email   *string          `bun:"email"`
	Tier    int              `bun:"tier"`
	Score   sql.NullFloat64  `bun:"score"`
	Profile types.JsonObject `bun:"profile,type:text"`
	Address Address          `bun:"embed:address_"`
	OwnerID uuid.UUID        `bun:"owner_id,type:varchar(36),nullzero"`
	Owner   *Account         `bun:"rel:belongs-to,join:owner_id=id"`
	Orders  []*Order         `bun:"rel:has-many,join:id=customer_id"`
	Secret  string           `bun:"-"`
}

var testDialect = sqlitedialect.New()

// stepClock advances one second per reading, starting at 2026-01-01 UTC.
type stepClock struct {
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.CreateTables(context.Background(), db,
		(*Account)(nil), (*Customer)(nil), (*Order)(nil)))
	return db
}

func newCustomerRepo(t *testing.T, opts ...Option) (Repository[Customer], *bun.DB) {
	t.Helper()
	db := newTestDB(t)
	opts = append([]Option{WithClock(newStepClock().Now)}, opts...)
	return NewRepository[Customer](db, opts...), db
}

func strPtr(s string) *string { return &s }

func names(customers []*Customer) []string {
	out := make([]string, len(customers))
	for i, c := range customers {
		out[i] = c.Name
	}
	return out
}

// seedCustomers adds n customers named c00..c(n-1), one second apart.
func seedCustomers(t *testing.T, repo Repository[Customer], n int) []*Customer {
	t.Helper()
	ctx := context.Background()
	out := make([]*Customer, n)
	for i := 0; i < n; i++ {
		c, err := repo.Add(ctx, &Customer{Name: fmt.Sprintf("c%02d", i), Tier: i % 3})
		require.NoError(t, err)
		out[i] = c
	}
	return out
}
