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
	"errors"
	"fmt"
)

var (
	// ErrNullEntity is returned when a mutation receives a nil entity.
	ErrNullEntity = errors.New("repository: entity is nil")

	// ErrInvalidFieldPath is matched by every *FieldPathError.
	ErrInvalidFieldPath = errors.New("repository: invalid field path")

	// ErrInvalidInclude is returned when an eager-load directive does not name
	// a relation of the entity.
	ErrInvalidInclude = errors.New("repository: invalid include")

	// ErrMissingID is returned when Update receives an entity that was never
	// persisted.
	ErrMissingID = errors.New("repository: entity has no id")

	// ErrStaleEntity is returned when the stored version no longer matches the
	// version the caller read, or the row is gone.
	ErrStaleEntity = errors.New("repository: entity was modified or removed concurrently")
)

// FieldPathError reports which segment of a dotted field path failed to
// resolve on which type.
type FieldPathError struct {
	Type    string
	Path    string
	Segment string
	Reason  string
}

func (e *FieldPathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("invalid field path %q on %s: %s", e.Path, e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid field path %q on %s: segment %q %s", e.Path, e.Type, e.Segment, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidFieldPath) hold.
func (e *FieldPathError) Is(target error) bool { return target == ErrInvalidFieldPath }

func invalidInclude(typeName, include, reason string) error {
	return fmt.Errorf("%w %q on %s: %s", ErrInvalidInclude, include, typeName, reason)
}
