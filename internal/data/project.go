package data

import (
	"github.com/ohler55/ojg/jp"

	"github.com/amgator/databucket-app/internal/rulesql"
	"github.com/amgator/databucket-app/internal/store"
)

// relationalFields maps projectable wire names onto record fields. The
// scope columns are not here for the same reason they are absent from the
// compiler's registry: callers cannot address them.
var relationalFields = map[string]func(store.Record) any{
	"id":         func(r store.Record) any { return r.ID },
	"tagId":      func(r store.Record) any { return optInt(r.TagID) },
	"reserved":   func(r store.Record) any { return r.Reserved },
	"owner":      func(r store.Record) any { return optString(r.Owner) },
	"createdAt":  func(r store.Record) any { return r.CreatedAt },
	"createdBy":  func(r store.Record) any { return r.CreatedBy },
	"modifiedAt": func(r store.Record) any { return r.ModifiedAt },
	"modifiedBy": func(r store.Record) any { return r.ModifiedBy },
	"properties": func(r store.Record) any { return r.Properties },
}

func optInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// project renders a record as the caller-facing map. An empty column list
// yields the full shape. A non-empty list yields the id plus exactly the
// requested columns: relational wire names, or "$." JSONPath selectors
// evaluated against the properties blob. Nothing outside the request leaks
// into the result.
func project(rec store.Record, columns []string) (map[string]any, error) {
	if len(columns) == 0 {
		out := make(map[string]any, len(relationalFields))
		for name, get := range relationalFields {
			out[name] = get(rec)
		}
		return out, nil
	}

	out := map[string]any{"id": rec.ID}
	for _, col := range columns {
		if len(col) > 1 && col[0] == '$' {
			x, err := jp.ParseString(col)
			if err != nil {
				return nil, &rulesql.CompileError{
					Code:    rulesql.ErrCodeUnknownField,
					Field:   col,
					Message: "invalid property path",
				}
			}
			values := x.Get(rec.Properties)
			if len(values) == 0 {
				out[col] = nil
			} else {
				out[col] = values[0]
			}
			continue
		}

		get, ok := relationalFields[col]
		if !ok {
			return nil, &rulesql.CompileError{
				Code:    rulesql.ErrCodeUnknownField,
				Field:   col,
				Message: "field resolves to neither a declared column nor a JSON property path",
			}
		}
		out[col] = get(rec)
	}
	return out, nil
}
