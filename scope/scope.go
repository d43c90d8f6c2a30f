// Package scope identifies who is running which operation. A Scope pairs
// a boundary operation with the actor that invoked it; idempotency keys
// and cached results are namespaced by it. Helpers carry the scope on a
// context.Context so lower layers can log it without extra parameters.
package scope

import (
	"context"
	"strconv"
)

// Scope is the (operation, actor) pair an idempotency key is bound to.
type Scope struct {
	Operation string `json:"operation"`
	Actor     int64  `json:"actor"`
}

// New returns the scope for an operation invoked by actor.
func New(operation string, actor int64) Scope {
	return Scope{Operation: operation, Actor: actor}
}

// String renders the scope as "operation:actor". Stores use it as the
// namespace component of their keys.
func (s Scope) String() string {
	return s.Operation + ":" + strconv.FormatInt(s.Actor, 10)
}

// IsZero reports whether the scope is unset.
func (s Scope) IsZero() bool {
	return s.Operation == "" && s.Actor == 0
}

type ctxKey struct{}

// With attaches s to ctx.
func With(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From extracts the scope attached by With.
func From(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(Scope)
	return s, ok
}
