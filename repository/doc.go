// Package repository provides a generic, audited repository built on Bun:
// soft delete, audit stamping, dotted field path ordering, query composition
// and pagination for any type embedding types.BaseEntity.
package repository
