package domain

import (
	"encoding/json"
	"errors"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// PrimaryKeyField is the JSON name of the key; a patch may never contain it.
const PrimaryKeyField = "id"

type (
	// Payload is a decoded flat JSON object of field name to new value.
	Payload map[string]any

	// Mapping holds every JSON-visible field of an entity by name.
	Mapping map[string]any
)

type fieldInfo struct {
	index []int
	typ   reflect.Type
}

var fieldCache sync.Map // reflect.Type -> map[string]fieldInfo

// jsonFields lists the exported fields of struct type t under their JSON names.
func jsonFields(t reflect.Type) map[string]fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string]fieldInfo)
	}

	fields := make(map[string]fieldInfo, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		fields[name] = fieldInfo{index: f.Index, typ: f.Type}
	}

	actual, _ := fieldCache.LoadOrStore(t, fields)
	return actual.(map[string]fieldInfo)
}

func structType[T any]() reflect.Type {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		panic("domain: entity " + t.String() + " is not a struct")
	}
	return t
}

// MappingOf captures entity as a Field-Value Mapping.
func MappingOf[T any](entity T) Mapping {
	v := reflect.ValueOf(entity)
	fields := jsonFields(structType[T]())
	m := make(Mapping, len(fields))
	for name, f := range fields {
		m[name] = v.FieldByIndex(f.index).Interface()
	}
	return m
}

// HasField reports whether T exposes a JSON field called name.
func HasField[T any](name string) bool {
	_, ok := jsonFields(structType[T]())[name]
	return ok
}

// ApplyPatch merges patch over existing and returns the resulting entity.
// existing is never modified.
//
// A patch naming the primary key fails with ErrForbiddenField. Unknown
// fields and values that cannot be converted to the field's type fail with
// ErrInvalidData; every offending field is reported as a FieldError. A JSON
// null resets a field to its zero value. When T is a Validator the merged
// entity must pass Validate.
func ApplyPatch[T any](existing T, patch Payload) (T, error) {
	var zero T
	if _, ok := patch[PrimaryKeyField]; ok {
		return zero, &FieldError{Field: PrimaryKeyField, Reason: "must not be present in a patch", Err: ErrForbiddenField}
	}

	fields := jsonFields(structType[T]())
	merged := MappingOf(existing)

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(patch)) {
		f, ok := fields[name]
		if !ok {
			errs = append(errs, invalidField(name, "unknown field"))
			continue
		}
		v, err := coerce(patch[name], f.typ)
		if err != nil {
			errs = append(errs, invalidField(name, reason(err)))
			continue
		}
		merged[name] = v
	}
	if len(errs) > 0 {
		return zero, errors.Join(errs...)
	}

	out := fromMapping[T](merged, fields)
	if v, ok := any(out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return zero, err
		}
	}
	return out, nil
}

// coerce converts a decoded JSON value into typ by re-encoding it, so the
// target type's own UnmarshalJSON rules apply.
func coerce(value any, typ reflect.Type) (any, error) {
	if value == nil {
		return reflect.Zero(typ).Interface(), nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(typ)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func fromMapping[T any](m Mapping, fields map[string]fieldInfo) T {
	var out T
	v := reflect.ValueOf(&out).Elem()
	for name, f := range fields {
		if val, ok := m[name]; ok && val != nil {
			v.FieldByIndex(f.index).Set(reflect.ValueOf(val))
		}
	}
	return out
}

func reason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return "expected " + typeErr.Type.String()
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "malformed value"
	}
	return err.Error()
}
