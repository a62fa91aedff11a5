package querybuilder

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// InsertModel builds an INSERT from the exported db-tagged fields of model.
// suffix is appended verbatim, typically an ON CONFLICT clause.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	cols, vals, err := modelColumns(model)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}

// UpsertModel inserts model and, on a conflict over conflictCols, overwrites
// every other column from EXCLUDED except the ones listed in keep.
func UpsertModel(table string, model any, conflictCols []string, keep ...string) (string, []any, error) {
	if len(conflictCols) == 0 {
		return "", nil, fmt.Errorf("upsert into %s: conflict columns are required", table)
	}
	cols, vals, err := modelColumns(model)
	if err != nil {
		return "", nil, err
	}
	suffix := onConflict(conflictCols, excludedAssignments(cols, conflictCols, keep))
	return InsertInto(table).Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}

func excludedAssignments(cols, conflictCols, keep []string) []string {
	var sets []string
	for _, c := range cols {
		if slices.Contains(conflictCols, c) || slices.Contains(keep, c) {
			continue
		}
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	return sets
}

func onConflict(conflictCols, sets []string) string {
	target := "ON CONFLICT (" + strings.Join(conflictCols, ", ") + ")"
	if len(sets) == 0 {
		return target + " DO NOTHING"
	}
	return target + " DO UPDATE SET " + strings.Join(sets, ", ")
}

// modelColumns reads a struct (or pointer to one) in field order. Fields
// without a db tag, or tagged "-", are skipped.
func modelColumns(model any) ([]string, []any, error) {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be a struct, got %s", v.Kind())
	}

	t := v.Type()
	var (
		cols []string
		vals []any
	)
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("db"), ",")
		name = strings.TrimSpace(name)
		if !f.IsExported() || name == "" || name == "-" {
			continue
		}
		cols = append(cols, name)
		vals = append(vals, v.Field(i).Interface())
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model %s has no db columns", t.Name())
	}
	return cols, vals, nil
}
