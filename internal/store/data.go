package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amgator/databucket-app/internal/rulesql"
)

// NewRecord describes a data row to insert. Properties may be nil; the
// stored blob is then the empty object.
type NewRecord struct {
	ProjectID  int64
	BucketID   int64
	TagID      *int64
	Reserved   bool
	Owner      *string
	Properties map[string]any
	CreatedAt  string
	CreatedBy  string
}

// InsertData inserts one record and returns its id. A tag reference is
// verified against the record's scope first, so a bad tag id fails with
// TagNotFound instead of a bare foreign key violation.
func (s *Store) InsertData(ctx context.Context, rec NewRecord) (int64, error) {
	if rec.TagID != nil {
		if err := s.checkTag(ctx, rec.ProjectID, rec.BucketID, *rec.TagID); err != nil {
			return 0, fmt.Errorf("insert data: %w", err)
		}
	}

	propsJSON, err := marshalProperties(rec.Properties)
	if err != nil {
		return 0, fmt.Errorf("insert data: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO data
		(project_id, bucket_id, tag_id, reserved, reserved_by, properties,
		 created_at, created_by, modified_at, modified_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ProjectID,
		rec.BucketID,
		rec.TagID,
		rec.Reserved,
		rec.Owner,
		propsJSON,
		rec.CreatedAt,
		rec.CreatedBy,
		rec.CreatedAt,
		rec.CreatedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("insert data: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert data: last insert id: %w", err)
	}
	return id, nil
}

// GetData retrieves a single record by id within a scope.
// Returns RecordNotFound if no row matches.
func (s *Store) GetData(ctx context.Context, scope rulesql.Scope, id int64) (Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM data
		WHERE project_id = ? AND bucket_id = ? AND data_id = ?
	`, rulesql.DataColumns)

	rows, err := s.db.QueryContext(ctx, query, scope.ProjectID, scope.BucketID, id)
	if err != nil {
		return Record{}, fmt.Errorf("get data: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Record{}, fmt.Errorf("get data: %w", err)
		}
		return Record{}, recordNotFound(id)
	}

	rec, err := scanRecord(rows)
	if err != nil {
		return Record{}, fmt.Errorf("get data: %w", err)
	}
	return rec, nil
}

// CountData counts the rows matched by a compiled condition fragment.
func (s *Store) CountData(ctx context.Context, frag rulesql.Fragment) (int64, error) {
	stmt := rulesql.Count(frag)

	var total int64
	if err := s.db.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count data: %w", err)
	}
	return total, nil
}

// SelectData returns one page of records matched by a compiled condition
// fragment. Returns an empty slice (not nil) when the page is empty.
func (s *Store) SelectData(ctx context.Context, frag rulesql.Fragment, opts rulesql.ListOptions) ([]Record, error) {
	stmt, err := rulesql.Select(frag, opts)
	if err != nil {
		return nil, fmt.Errorf("select data: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("select data: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("select data: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate data: %w", err)
	}

	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// UpdateData applies a bulk mutation to the rows matched by a compiled
// condition fragment and returns the number of rows changed. A tag
// reassignment is verified against the fragment's scope first.
func (s *Store) UpdateData(ctx context.Context, frag rulesql.Fragment, upd rulesql.Update, modifiedAt, modifiedBy string) (int64, error) {
	if upd.IsZero() {
		return 0, nil
	}
	if upd.TagID != nil {
		if err := s.checkTag(ctx, frag.Scope.ProjectID, frag.Scope.BucketID, *upd.TagID); err != nil {
			return 0, fmt.Errorf("update data: %w", err)
		}
	}

	stmt, err := rulesql.BuildUpdate(frag, upd, modifiedAt, modifiedBy)
	if err != nil {
		return 0, fmt.Errorf("update data: %w", err)
	}

	result, err := s.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("update data: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update data: rows affected: %w", err)
	}
	return affected, nil
}

// DeleteData removes the rows matched by a compiled condition fragment and
// returns the number of rows deleted.
func (s *Store) DeleteData(ctx context.Context, frag rulesql.Fragment) (int64, error) {
	stmt := rulesql.Delete(frag)

	result, err := s.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("delete data: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete data: rows affected: %w", err)
	}
	return affected, nil
}

// marshalProperties encodes a properties map for storage. Nil stores as the
// empty object so the blob column is never NULL.
func marshalProperties(props map[string]any) (string, error) {
	if props == nil {
		return "{}", nil
	}
	encoded, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("encode properties: %w", err)
	}
	return string(encoded), nil
}
