package rulesql

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DataColumns is the full scan list for data rows, in the order the store's
// row scanner expects. Exported so direct lookups in the store select the
// same columns as assembled statements.
const DataColumns = "data_id, tag_id, reserved, reserved_by, properties, " +
	"created_at, created_by, modified_at, modified_by"

// ListOptions controls paged selects. Page is 1-based. Limit 0 is the
// "count only, no rows" request and is handled by the caller before Select
// is assembled. Sort names a column wire name or a "$." property path; a
// leading '-' sorts descending.
type ListOptions struct {
	Page  int
	Limit int
	Sort  string
}

// ValidatePagination rejects page < 1 and limit < 0.
func ValidatePagination(page, limit int) error {
	if page < 1 {
		return invalidPagination("page must be >= 1, got %d", page)
	}
	if limit < 0 {
		return invalidPagination("limit must be >= 0, got %d", limit)
	}
	return nil
}

// Count assembles the count statement for a compiled fragment. It ignores
// pagination entirely: the count always reflects the full matched set.
func Count(frag Fragment) Fragment {
	return Fragment{
		SQL:  "SELECT COUNT(*) FROM data WHERE " + frag.SQL,
		Args: frag.Args,
	}
}

// Select assembles the paged select statement. The sort field resolves
// through the same field resolver as predicate leaves, and data_id is always
// appended as the deterministic tiebreaker.
func Select(frag Fragment, opts ListOptions) (Fragment, error) {
	if err := ValidatePagination(opts.Page, opts.Limit); err != nil {
		return Fragment{}, err
	}
	orderBy, err := sortExpr(opts.Sort)
	if err != nil {
		return Fragment{}, err
	}

	sql := fmt.Sprintf("SELECT %s FROM data WHERE %s ORDER BY %s LIMIT ? OFFSET ?",
		DataColumns, frag.SQL, orderBy)
	args := append(append([]any{}, frag.Args...), opts.Limit, (opts.Page-1)*opts.Limit)
	return Fragment{SQL: sql, Args: args}, nil
}

// Delete assembles the bulk delete statement for a compiled fragment.
// No pagination: the deleted set equals the counted set by construction.
func Delete(frag Fragment) Fragment {
	return Fragment{
		SQL:  "DELETE FROM data WHERE " + frag.SQL,
		Args: frag.Args,
	}
}

// ReserveSelect assembles the id-selection statement of the claim protocol:
// up to limit unreserved ids matching the fragment, ordered by the requested
// sort field with data_id as tiebreaker (lowest identity wins ties).
func ReserveSelect(frag Fragment, limit int, sortField string) (Fragment, error) {
	if limit < 1 {
		return Fragment{}, invalidPagination("reserve limit must be >= 1, got %d", limit)
	}
	orderBy, err := sortExpr(sortField)
	if err != nil {
		return Fragment{}, err
	}

	sql := fmt.Sprintf("SELECT data_id FROM data WHERE %s AND reserved = 0 ORDER BY %s LIMIT ?",
		frag.SQL, orderBy)
	args := append(append([]any{}, frag.Args...), limit)
	return Fragment{SQL: sql, Args: args}, nil
}

// Update describes a bulk mutation. Nil fields are left untouched.
type Update struct {
	// TagID reclassifies matched records.
	TagID *int64
	// SetProperties writes values at dotted property paths. Values are any
	// JSON-marshalable Go value; nested objects and arrays are preserved.
	SetProperties map[string]any
	// RemoveProperties deletes dotted property paths from the blob.
	RemoveProperties []string
	// Reserved and Owner manage the reservation flag outside the claim
	// protocol (e.g. releasing records back to the pool).
	Reserved *bool
	Owner    *string
}

// IsZero reports whether the update mutates nothing.
func (u Update) IsZero() bool {
	return u.TagID == nil && len(u.SetProperties) == 0 &&
		len(u.RemoveProperties) == 0 && u.Reserved == nil && u.Owner == nil
}

// BuildUpdate assembles the bulk update statement. Property writes compile
// to a json_set/json_remove chain over the properties blob, with each value
// bound as JSON text through json(?) so types survive the round trip.
// Audit fields are always stamped.
func BuildUpdate(frag Fragment, upd Update, modifiedAt, modifiedBy string) (Fragment, error) {
	var setParts []string
	var setArgs []any

	if upd.TagID != nil {
		setParts = append(setParts, "tag_id = ?")
		setArgs = append(setArgs, *upd.TagID)
	}
	if upd.Reserved != nil {
		setParts = append(setParts, "reserved = ?")
		setArgs = append(setArgs, *upd.Reserved)
	}
	if upd.Owner != nil {
		if *upd.Owner == "" {
			setParts = append(setParts, "reserved_by = NULL")
		} else {
			setParts = append(setParts, "reserved_by = ?")
			setArgs = append(setArgs, *upd.Owner)
		}
	}

	if len(upd.SetProperties) > 0 || len(upd.RemoveProperties) > 0 {
		expr, args, err := propertiesUpdateExpr(upd)
		if err != nil {
			return Fragment{}, err
		}
		setParts = append(setParts, "properties = "+expr)
		setArgs = append(setArgs, args...)
	}

	setParts = append(setParts, "modified_at = ?", "modified_by = ?")
	setArgs = append(setArgs, modifiedAt, modifiedBy)

	sql := fmt.Sprintf("UPDATE data SET %s WHERE %s", strings.Join(setParts, ", "), frag.SQL)
	return Fragment{SQL: sql, Args: append(setArgs, frag.Args...)}, nil
}

// propertiesUpdateExpr builds the nested json_set/json_remove expression.
// Paths are applied in sorted order so the statement is deterministic for
// a given update.
func propertiesUpdateExpr(upd Update) (string, []any, error) {
	expr := "properties"
	var args []any

	setPaths := make([]string, 0, len(upd.SetProperties))
	for path := range upd.SetProperties {
		setPaths = append(setPaths, path)
	}
	sort.Strings(setPaths)

	for _, path := range setPaths {
		jp, err := jsonPath(path)
		if err != nil {
			return "", nil, err
		}
		encoded, err := json.Marshal(upd.SetProperties[path])
		if err != nil {
			return "", nil, fmt.Errorf("encode property %q: %w", path, err)
		}
		expr = fmt.Sprintf("json_set(%s, '%s', json(?))", expr, jp)
		args = append(args, string(encoded))
	}

	removePaths := append([]string{}, upd.RemoveProperties...)
	sort.Strings(removePaths)
	for _, path := range removePaths {
		jp, err := jsonPath(path)
		if err != nil {
			return "", nil, err
		}
		expr = fmt.Sprintf("json_remove(%s, '%s')", expr, jp)
	}

	return expr, args, nil
}

// sortExpr resolves a sort field to an ORDER BY clause. Empty sorts by id.
func sortExpr(sortField string) (string, error) {
	field := sortField
	direction := "ASC"
	if strings.HasPrefix(field, "-") {
		field = strings.TrimPrefix(field, "-")
		direction = "DESC"
	}
	if field == "" {
		field = "id"
	}

	var expr string
	if strings.HasPrefix(field, "$.") {
		jp, err := jsonPath(strings.TrimPrefix(field, "$."))
		if err != nil {
			return "", err
		}
		expr = fmt.Sprintf("json_extract(properties, '%s')", jp)
	} else {
		col, ok := columnRegistry[field]
		if !ok {
			return "", unknownField(field)
		}
		expr = col.sqlName
	}

	if expr == "data_id" {
		return "data_id " + direction, nil
	}
	return fmt.Sprintf("%s %s, data_id ASC", expr, direction), nil
}
