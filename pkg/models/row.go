package models

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Row maps column names to values. Values are nil, string, int64, float64,
// bool, time.Time or an orb.Geometry.
type Row map[string]any

func (r Row) Has(column string) bool {
	v, ok := r[column]
	return ok && v != nil
}

// String returns the text form of column, false when it is NULL.
func (r Row) String(column string) (string, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return "", false
	}
	return ToString(v), true
}

func (r Row) Float(column string) (float64, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return 0, false
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (r Row) Int(column string) (int64, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return 0, false
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Record is a source row read through its whole inheritance chain.
type Record struct {
	// Table is the leaf table the row was read from
	Table string
	// Chain lists the tables from root to leaf
	Chain []string
	// IDColumn names the primary key shared by the chain
	IDColumn string
	Values   Row
}

// Base is the root of the record's inheritance chain.
func (r *Record) Base() string {
	if len(r.Chain) == 0 {
		return r.Table
	}
	return r.Chain[0]
}

func (r *Record) ID() string {
	id, _ := r.Values.String(r.IDColumn)
	return id
}

func ToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func ToFloat(v any) (float64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	}
	return AnyToType[float64](v)
}

// AnyToType converts input to T, allowing numeric conversions.
func AnyToType[T any](input any) (T, error) {
	var zero T
	if input == nil {
		return zero, nil
	}

	if result, ok := input.(T); ok {
		return result, nil
	}

	targetType := reflect.TypeOf(zero)
	if targetType == nil {
		return zero, fmt.Errorf("type mismatch: expected %T, got %T", zero, input)
	}

	inputValue := reflect.ValueOf(input)
	if isNumericKind(inputValue.Kind()) && isNumericKind(targetType.Kind()) && inputValue.Type().ConvertibleTo(targetType) {
		converted := inputValue.Convert(targetType)
		if result, ok := converted.Interface().(T); ok {
			return result, nil
		}
	}

	return zero, fmt.Errorf("type mismatch: expected %T, got %T", zero, input)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
