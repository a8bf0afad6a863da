package store

import (
	"database/sql"
	"encoding/json"
)

// Record is one data row with its properties blob decoded.
type Record struct {
	ID         int64
	TagID      *int64
	Reserved   bool
	Owner      *string
	Properties map[string]any
	CreatedAt  string
	CreatedBy  string
	ModifiedAt string
	ModifiedBy string
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans one data row in the column order produced by the query
// assembler's select statements. A properties blob that fails to parse is
// surfaced as a corrupt record error carrying the row id; the constraint on
// write paths (properties always stored via json.Marshal) makes this an
// integrity failure, not a caller mistake.
func scanRecord(sc rowScanner) (Record, error) {
	var rec Record
	var tagID sql.NullInt64
	var owner sql.NullString
	var propsJSON string

	if err := sc.Scan(
		&rec.ID, &tagID, &rec.Reserved, &owner, &propsJSON,
		&rec.CreatedAt, &rec.CreatedBy, &rec.ModifiedAt, &rec.ModifiedBy,
	); err != nil {
		return Record{}, err
	}

	if tagID.Valid {
		rec.TagID = &tagID.Int64
	}
	if owner.Valid {
		rec.Owner = &owner.String
	}

	if err := json.Unmarshal([]byte(propsJSON), &rec.Properties); err != nil {
		return Record{}, corruptRecord(rec.ID, err)
	}
	if rec.Properties == nil {
		rec.Properties = map[string]any{}
	}

	return rec, nil
}
