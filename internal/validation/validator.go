// Package validation validates client payloads using the validator/v10 library.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	domainerrors "github.com/stockroomapp/stockroom-server/internal/errors"
)

// systemFields are maintained by the server. Clients echo them back inside
// data payloads, so they are dropped rather than rejected.
var systemFields = map[string]bool{
	"id":           true,
	"workspace_id": true,
	"created_at":   true,
	"modified_at":  true,
	"version":      true,
}

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(jsonName)

	// Tri-state fields validate as their value; absent and null skip omitempty rules.
	v.RegisterCustomTypeFunc(fieldValue,
		domain.Field[string]{},
		domain.Field[int]{},
		domain.Field[bool]{},
		domain.Field[time.Time]{},
	)

	return &Validator{v: v}
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" {
		return fld.Name
	}
	if name == "-" {
		return ""
	}
	return name
}

func fieldValue(v reflect.Value) any {
	if !v.FieldByName("Set").Bool() || v.FieldByName("Null").Bool() {
		return nil
	}
	return v.FieldByName("Value").Interface()
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// DecodeFields parses a create or update payload into the kind's field set.
// System fields are dropped; any other key outside the whitelist fails.
func (v *Validator) DecodeFields(kind domain.EntityKind, data json.RawMessage, creating bool) (domain.FieldSet, error) {
	fs, ok := domain.NewFieldSet(kind)
	if !ok {
		return nil, domainerrors.Validationf("unknown entity kind %q", kind)
	}

	raw := map[string]json.RawMessage{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, domainerrors.Validation("data must be a JSON object")
		}
	}

	allowed := writableKeys(fs)
	unknown := map[string]string{}
	for key := range raw {
		if systemFields[key] {
			delete(raw, key)
			continue
		}
		if !allowed[key] {
			unknown[key] = "is not a writable field"
		}
	}
	if len(unknown) > 0 {
		return nil, domainerrors.ValidationWithDetails("unknown fields in data", unknown)
	}

	for key, value := range raw {
		target := fieldByJSONName(fs, key)
		if err := json.Unmarshal(value, target); err != nil {
			return nil, domainerrors.ValidationWithDetails("invalid field type",
				map[string]string{key: "has the wrong type"})
		}
	}

	if err := v.Validate(fs); err != nil {
		return nil, err
	}
	if problems := fs.Problems(creating); len(problems) > 0 {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string(problems))
	}
	return fs, nil
}

// writableKeys lists the JSON keys of a field set struct.
func writableKeys(fs domain.FieldSet) map[string]bool {
	t := reflect.TypeOf(fs).Elem()
	keys := make(map[string]bool, t.NumField())
	for i := range t.NumField() {
		if name := jsonName(t.Field(i)); name != "" {
			keys[name] = true
		}
	}
	return keys
}

func fieldByJSONName(fs domain.FieldSet, key string) any {
	rv := reflect.ValueOf(fs).Elem()
	t := rv.Type()
	for i := range t.NumField() {
		if jsonName(t.Field(i)) == key {
			return rv.Field(i).Addr().Interface()
		}
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

//nolint:gocyclo // Switch statement covering validation tags is intentionally exhaustive.
func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return "must not exceed " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	default:
		return "is invalid"
	}
}
