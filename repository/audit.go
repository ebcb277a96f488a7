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
	"time"

	"github.com/tomoncle/corekit/types"
)

// SystemActor is recorded when neither the call nor its context names an actor.
const SystemActor = "system"

type actorKey struct{}

// WithActor returns a context that attributes mutations to actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, or "".
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}

// ActorProvider resolves the actor for a mutation from its context.
type ActorProvider func(ctx context.Context) string

// Clock returns the current time. Tests swap it for a deterministic one.
type Clock func() time.Time

// Option configures a repository.
type Option func(*options)

type options struct {
	actor ActorProvider
	clock Clock
}

func defaultOptions() options {
	return options{actor: ActorFromContext, clock: time.Now}
}

// WithActorProvider replaces the context based actor lookup.
func WithActorProvider(p ActorProvider) Option {
	return func(o *options) {
		if p != nil {
			o.actor = p
		}
	}
}

// WithClock replaces time.Now for audit stamps.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// MutationOption adjusts a single mutating call.
type MutationOption func(*mutation)

type mutation struct {
	actor string
}

// By attributes the mutation to actor instead of the ambient one.
func By(actor string) MutationOption {
	return func(m *mutation) { m.actor = actor }
}

// stamper applies audit fields for one call. All entities stamped by the same
// stamper share the actor; timestamps come from the clock.
type stamper struct {
	actor string
	clock Clock
}

func (o options) stamper(ctx context.Context, opts []MutationOption) stamper {
	m := mutation{}
	for _, opt := range opts {
		opt(&m)
	}
	actor := m.actor
	if actor == "" {
		actor = o.actor(ctx)
	}
	if actor == "" {
		actor = SystemActor
	}
	return stamper{actor: actor, clock: o.clock}
}

func (s stamper) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// created stamps a new entity. CreatedAt and ModifiedAt are equal.
func (s stamper) created(b *types.BaseEntity) {
	now := s.now()
	b.CreatedAt = now
	b.ModifiedAt = now
	b.CreatedBy = s.actor
	b.ModifiedBy = s.actor
	b.Deleted = false
	b.Version = 1
}

// modified restamps ModifiedAt/ModifiedBy. ModifiedAt always moves forward,
// even when the clock did not.
func (s stamper) modified(b *types.BaseEntity) {
	now := s.now()
	if !now.After(b.ModifiedAt) {
		now = b.ModifiedAt.UTC().Add(time.Microsecond)
	}
	b.ModifiedAt = now
	b.ModifiedBy = s.actor
}
