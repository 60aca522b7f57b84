package store

import (
	"fmt"

	"github.com/stockroomapp/stockroom-server/internal/domain"
)

// Registry maps every entity kind to exactly one implementation.
type Registry[T any] struct {
	byKind map[domain.EntityKind]T
}

// Registration binds an implementation to a kind.
type Registration[T any] struct {
	Value T
	Kind  domain.EntityKind
}

// Register is shorthand for building a Registration.
func Register[T any](kind domain.EntityKind, value T) Registration[T] {
	return Registration[T]{Kind: kind, Value: value}
}

// NewRegistry builds a registry, failing on unknown, duplicate or missing kinds.
func NewRegistry[T any](regs ...Registration[T]) (*Registry[T], error) {
	r := &Registry[T]{byKind: make(map[domain.EntityKind]T, len(regs))}
	for _, reg := range regs {
		if !reg.Kind.Valid() {
			return nil, fmt.Errorf("register %q: %w", reg.Kind, ErrUnknownKind)
		}
		if _, dup := r.byKind[reg.Kind]; dup {
			return nil, fmt.Errorf("kind %q registered twice", reg.Kind)
		}
		r.byKind[reg.Kind] = reg.Value
	}
	for _, kind := range domain.AllKinds() {
		if _, ok := r.byKind[kind]; !ok {
			return nil, fmt.Errorf("no implementation registered for kind %q", kind)
		}
	}
	return r, nil
}

// MustNewRegistry is NewRegistry for package-level tables.
func MustNewRegistry[T any](regs ...Registration[T]) *Registry[T] {
	r, err := NewRegistry(regs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the implementation for kind.
func (r *Registry[T]) Lookup(kind domain.EntityKind) (T, error) {
	v, ok := r.byKind[kind]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	return v, nil
}
