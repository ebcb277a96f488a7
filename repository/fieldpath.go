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
	"bytes"
	"cmp"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/tomoncle/corekit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

var (
	timeType       = reflect.TypeOf(time.Time{})
	valuerType     = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	nullStringType = reflect.TypeOf(sql.NullString{})
)

// FieldPath is a dotted field name resolved against an entity type. It can
// order a bun query and read the same value from a loaded entity.
type FieldPath struct {
	// Path is the dotted Go field path, e.g. "Owner.DisplayName".
	Path string
	// Column is the SQL column of the leaf field, including embed prefixes.
	Column string
	// TableAlias is the alias of the joined relation holding Column, or ""
	// for the root table.
	TableAlias string
	// Joins lists the to-one relations that must be joined, outermost first,
	// in bun Relation notation.
	Joins []string
	// IsString is set for string leaves; they order as "" when null.
	IsString bool
	// LeafType is the Go type of the leaf field.
	LeafType reflect.Type

	index [][]int
}

// ResolveFieldPath resolves path against T using the table metadata bun
// builds for dialect. Resolution does no I/O, so the result may be memoized
// per (T, path) by callers.
func ResolveFieldPath[T any](dialect schema.Dialect, path string) (*FieldPath, error) {
	return resolveFieldPath(dialect.Tables(), reflect.TypeOf((*T)(nil)).Elem(), path)
}

func resolveFieldPath(tables *schema.Tables, root reflect.Type, path string) (*FieldPath, error) {
	typ := indirectType(root)
	fail := func(segment, reason string) error {
		return &FieldPathError{Type: typ.String(), Path: path, Segment: segment, Reason: reason}
	}
	if typ.Kind() != reflect.Struct {
		return nil, fail("", "entity type is not a struct")
	}
	raw := strings.TrimSpace(path)
	if raw == "" {
		return nil, fail("", "is empty")
	}

	fp := &FieldPath{Path: raw}
	parts := strings.Split(raw, ".")
	table := tables.Get(typ)
	cur := typ
	// index locates the current segment inside table.Type; embedded structs
	// extend it, relations reset it.
	var index []int
	var alias string
	var relPath []string
	for i, name := range parts {
		if name == "" {
			return nil, fail(name, "is empty")
		}
		sf, ok := cur.FieldByName(name)
		if !ok || !sf.IsExported() {
			return nil, fail(name, fmt.Sprintf("does not exist on %s", cur))
		}
		fp.index = append(fp.index, sf.Index)
		index = slices.Concat(index, sf.Index)
		last := i == len(parts)-1

		if rel, ok := table.Relations[name]; ok && slices.Equal(rel.Field.Index, index) {
			if last {
				return nil, fail(name, "is a relation, not a column")
			}
			if rel.Type != schema.HasOneRelation && rel.Type != schema.BelongsToRelation {
				return nil, fail(name, "is a to-many relation")
			}
			if alias == "" {
				alias = rel.Field.Name
			} else {
				alias = alias + "__" + rel.Field.Name
			}
			relPath = append(relPath, name)
			fp.Joins = append(fp.Joins, strings.Join(relPath, "."))
			table, cur, index = rel.JoinTable, rel.JoinTable.Type, nil
			continue
		}

		field := fieldAt(table, index)
		if !last {
			if field != nil || !hasFieldsUnder(table, index) {
				return nil, fail(name, "is neither a relation nor an embedded struct")
			}
			cur = indirectType(sf.Type)
			continue
		}
		if field == nil {
			return nil, fail(name, "is not persisted")
		}
		if !isOrderable(sf.Type) {
			return nil, fail(name, fmt.Sprintf("has unorderable type %s", sf.Type))
		}
		fp.Column = field.Name
		fp.TableAlias = alias
		fp.IsString = isStringType(sf.Type)
		fp.LeafType = sf.Type
	}
	return fp, nil
}

// fieldAt returns the column bun maps to the struct field at index.
func fieldAt(table *schema.Table, index []int) *schema.Field {
	for _, f := range table.Fields {
		if slices.Equal(f.Index, index) {
			return f
		}
	}
	return nil
}

// hasFieldsUnder reports whether bun flattened columns out of the struct at
// index, as it does for embedded structs.
func hasFieldsUnder(table *schema.Table, index []int) bool {
	for _, f := range table.Fields {
		if len(f.Index) > len(index) && slices.Equal(f.Index[:len(index)], index) {
			return true
		}
	}
	return false
}

// ApplyOrder adds the field to the ORDER BY clause of q. Strings are wrapped
// in COALESCE so null sorts as the empty string.
func (f *FieldPath) ApplyOrder(q *bun.SelectQuery, dir types.SortDirection) *bun.SelectQuery {
	col, args := f.columnExpr()
	if f.IsString {
		col = "COALESCE(" + col + ", '')"
	}
	return q.OrderExpr(col+" "+dir.String(), args...)
}

func (f *FieldPath) columnExpr() (string, []interface{}) {
	if f.TableAlias == "" {
		return "?TableAlias.?", []interface{}{bun.Ident(f.Column)}
	}
	return "?.?", []interface{}{bun.Ident(f.TableAlias), bun.Ident(f.Column)}
}

// Value reads the field from entity (a struct or pointer to one). A nil
// pointer anywhere along the path yields nil, or "" for string fields.
func (f *FieldPath) Value(entity interface{}) interface{} {
	rv := reflect.ValueOf(entity)
	for _, idx := range f.index {
		rv = indirectValue(rv)
		if !rv.IsValid() || rv.Kind() != reflect.Struct {
			return f.null()
		}
		next, err := rv.FieldByIndexErr(idx)
		if err != nil {
			return f.null()
		}
		rv = next
	}
	v := leafValue(rv)
	if v == nil {
		return f.null()
	}
	return v
}

// Compare orders two entities by the field, returning -1, 0 or +1.
func (f *FieldPath) Compare(a, b interface{}) int {
	return compareValues(f.Value(a), f.Value(b))
}

func (f *FieldPath) isRootID() bool {
	return f.TableAlias == "" && f.Column == types.ColumnID
}

func (f *FieldPath) null() interface{} {
	if f.IsString {
		return ""
	}
	return nil
}

func leafValue(rv reflect.Value) interface{} {
	rv = indirectValue(rv)
	if !rv.IsValid() {
		return nil
	}
	if rv.Type() == timeType {
		return rv.Interface()
	}
	if rv.Type().Implements(valuerType) {
		v, err := rv.Interface().(driver.Valuer).Value()
		if err != nil {
			return nil
		}
		return v
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Array:
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return b
	default:
		return rv.Interface()
	}
}

// compareValues orders boxed leaf values. nil sorts before everything else.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case []byte:
		if y, ok := b.([]byte); ok {
			return bytes.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case uint64:
		if y, ok := b.(uint64); ok {
			return cmp.Compare(x, y)
		}
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return cmp.Compare(x, y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func isOrderable(t reflect.Type) bool {
	t = indirectType(t)
	if t == timeType || t.Implements(valuerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Array:
		return t.Elem().Kind() == reflect.Uint8
	default:
		return false
	}
}

func isStringType(t reflect.Type) bool {
	t = indirectType(t)
	return t.Kind() == reflect.String || t == nullStringType
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func indirectValue(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}
