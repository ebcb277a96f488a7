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
	"time"

	"github.com/google/uuid"
)

// Entity is implemented by every type managed by the generic repository.
// Structs get it for free by embedding BaseEntity.
type Entity interface {
	EntityBase() *BaseEntity
}

// EntityPtr constrains a type parameter to *T where *T is an Entity, so
// generic code can be instantiated with the struct type alone.
type EntityPtr[T any] interface {
	*T
	Entity
}

// BaseEntity holds identity, audit stamps, the soft-delete marker and the
// optimistic concurrency version shared by all persisted records.
type BaseEntity struct {
	ID         uuid.UUID `bun:"id,pk,type:varchar(36)" json:"id"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
	ModifiedAt time.Time `bun:"modified_at,notnull" json:"modified_at"`
	CreatedBy  string    `bun:"created_by" json:"created_by"`
	ModifiedBy string    `bun:"modified_by" json:"modified_by"`
	Deleted    bool      `bun:"deleted,notnull" json:"deleted"`
	Version    int64     `bun:"version,notnull" json:"version"`
}

// EntityBase implements Entity.
func (e *BaseEntity) EntityBase() *BaseEntity { return e }

// IsNew reports whether the entity has not been assigned an identifier yet.
func (e *BaseEntity) IsNew() bool { return e.ID == uuid.Nil }

// Column names of BaseEntity, shared by queries that address them directly.
const (
	ColumnID         = "id"
	ColumnCreatedAt  = "created_at"
	ColumnModifiedAt = "modified_at"
	ColumnCreatedBy  = "created_by"
	ColumnModifiedBy = "modified_by"
	ColumnDeleted    = "deleted"
	ColumnVersion    = "version"
)
