package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/stockroomapp/stockroom-server/internal/normalize"
)

// Field is a tri-state value in a client-supplied field set: absent, explicit
// null, or a value. Partial updates touch only fields that were sent.
type Field[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// UnmarshalJSON is only invoked for keys present in the document.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		f.Value = zero
		f.Null = true
		return nil
	}
	f.Null = false
	return json.Unmarshal(b, &f.Value)
}

// MarshalJSON renders absent and null fields as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Present reports whether a non-null value was supplied.
func (f Field[T]) Present() bool {
	return f.Set && !f.Null
}

// Problems collects per-field messages from FieldSet checks.
type Problems map[string]string

func (p Problems) require(name string, set, null, creating bool) {
	switch {
	case creating && !set:
		p[name] = "is required"
	case set && null:
		p[name] = "cannot be null"
	}
}

// requireText is require for string columns, which also may not be blank.
func (p Problems) requireText(name string, f Field[string], creating bool) {
	p.require(name, f.Set, f.Null, creating)
	if _, failed := p[name]; !failed && f.Present() && strings.TrimSpace(f.Value) == "" {
		p[name] = "cannot be empty"
	}
}

func (p Problems) notNull(name string, set, null bool) {
	if set && null {
		p[name] = "cannot be null"
	}
}

// FieldSet is a per-kind whitelist of client-writable fields.
type FieldSet interface {
	// Problems reports fields missing on create and nulls sent for NOT NULL
	// columns. Format and range rules live in validate tags.
	Problems(creating bool) Problems
}

// NewFieldSet returns an empty field set for kind.
func NewFieldSet(kind EntityKind) (FieldSet, bool) {
	switch kind {
	case KindItem:
		return &ItemFields{}, true
	case KindLocation:
		return &LocationFields{}, true
	case KindContainer:
		return &ContainerFields{}, true
	case KindCategory:
		return &CategoryFields{}, true
	case KindInventory:
		return &InventoryFields{}, true
	case KindLoan:
		return &LoanFields{}, true
	case KindBorrower:
		return &BorrowerFields{}, true
	default:
		return nil, false
	}
}

func setText(dst *string, f Field[string]) {
	if f.Present() {
		*dst = normalize.Text(f.Value)
	}
}

func setNullableText(dst **string, f Field[string]) {
	if !f.Set {
		return
	}
	if f.Null {
		*dst = nil
		return
	}
	v := normalize.Text(f.Value)
	*dst = &v
}

func setValue[T any](dst *T, f Field[T]) {
	if f.Present() {
		*dst = f.Value
	}
}

func setNullable[T any](dst **T, f Field[T]) {
	if !f.Set {
		return
	}
	if f.Null {
		*dst = nil
		return
	}
	v := f.Value
	*dst = &v
}

func setNullableTime(dst **time.Time, f Field[time.Time]) {
	if !f.Set {
		return
	}
	if f.Null {
		*dst = nil
		return
	}
	v := f.Value.UTC().Truncate(TimestampPrecision)
	*dst = &v
}

func setNullableCode(dst **string, f Field[string]) {
	if !f.Set {
		return
	}
	if f.Null {
		*dst = nil
		return
	}
	v := normalize.Code(f.Value)
	*dst = &v
}

func setNullableEmail(dst **string, f Field[string]) {
	if !f.Set {
		return
	}
	if f.Null {
		*dst = nil
		return
	}
	v := normalize.Email(f.Value)
	*dst = &v
}
