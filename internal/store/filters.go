package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Filter is a named, persisted criteria tree. Criteria holds the canonical
// encoding produced by internal/rule, so every load round-trips through the
// same validation as a wire filter.
type Filter struct {
	ID          int64
	ProjectID   int64
	Name        string
	Description string
	Criteria    []byte
	CreatedAt   string
	CreatedBy   string
	ModifiedAt  string
	ModifiedBy  string
}

const filterColumns = `filter_id, project_id, filter_name, description, criteria,
		created_at, created_by, modified_at, modified_by`

// SaveFilter inserts a saved filter and returns its id.
// Names are unique among live filters of a project.
func (s *Store) SaveFilter(ctx context.Context, f Filter) (int64, error) {
	if f.Name == "" {
		return 0, fmt.Errorf("save filter: name is required")
	}
	if len(f.Criteria) == 0 {
		return 0, fmt.Errorf("save filter: criteria is required")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO data_filters
		(project_id, filter_name, description, criteria,
		 created_at, created_by, modified_at, modified_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.ProjectID,
		f.Name,
		f.Description,
		string(f.Criteria),
		f.CreatedAt,
		f.CreatedBy,
		f.CreatedAt,
		f.CreatedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("save filter: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save filter: last insert id: %w", err)
	}
	return id, nil
}

// GetFilter retrieves a live saved filter by id within a project.
// Returns FilterNotFound if the filter doesn't exist or was deleted.
func (s *Store) GetFilter(ctx context.Context, projectID, id int64) (Filter, error) {
	var f Filter
	var criteria string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM data_filters
		WHERE project_id = ? AND filter_id = ? AND deleted = 0
	`, filterColumns), projectID, id).Scan(
		&f.ID, &f.ProjectID, &f.Name, &f.Description, &criteria,
		&f.CreatedAt, &f.CreatedBy, &f.ModifiedAt, &f.ModifiedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Filter{}, filterNotFound(id)
	}
	if err != nil {
		return Filter{}, fmt.Errorf("get filter: %w", err)
	}

	f.Criteria = []byte(criteria)
	return f, nil
}

// ListFilters returns all live saved filters of a project ordered by id.
// Returns an empty slice (not nil) when the project has none.
func (s *Store) ListFilters(ctx context.Context, projectID int64) ([]Filter, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM data_filters
		WHERE project_id = ? AND deleted = 0
		ORDER BY filter_id ASC
	`, filterColumns), projectID)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	var filters []Filter
	for rows.Next() {
		var f Filter
		var criteria string
		if err := rows.Scan(
			&f.ID, &f.ProjectID, &f.Name, &f.Description, &criteria,
			&f.CreatedAt, &f.CreatedBy, &f.ModifiedAt, &f.ModifiedBy,
		); err != nil {
			return nil, fmt.Errorf("list filters: %w", err)
		}
		f.Criteria = []byte(criteria)
		filters = append(filters, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filters: %w", err)
	}

	if filters == nil {
		filters = []Filter{}
	}
	return filters, nil
}

// UpdateFilter replaces a live filter's name, description, and criteria.
// Returns FilterNotFound if the filter doesn't exist or was deleted.
func (s *Store) UpdateFilter(ctx context.Context, f Filter, modifiedAt, modifiedBy string) error {
	if f.Name == "" {
		return fmt.Errorf("update filter: name is required")
	}
	if len(f.Criteria) == 0 {
		return fmt.Errorf("update filter: criteria is required")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE data_filters
		SET filter_name = ?, description = ?, criteria = ?, modified_at = ?, modified_by = ?
		WHERE project_id = ? AND filter_id = ? AND deleted = 0
	`, f.Name, f.Description, string(f.Criteria), modifiedAt, modifiedBy, f.ProjectID, f.ID)
	if err != nil {
		return fmt.Errorf("update filter: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update filter: rows affected: %w", err)
	}
	if affected == 0 {
		return filterNotFound(f.ID)
	}
	return nil
}

// DeleteFilter soft-deletes a saved filter, freeing its name for reuse.
// Returns FilterNotFound if the filter doesn't exist or was already deleted.
func (s *Store) DeleteFilter(ctx context.Context, projectID, id int64, modifiedAt, modifiedBy string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE data_filters
		SET deleted = 1, modified_at = ?, modified_by = ?
		WHERE project_id = ? AND filter_id = ? AND deleted = 0
	`, modifiedAt, modifiedBy, projectID, id)
	if err != nil {
		return fmt.Errorf("delete filter: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete filter: rows affected: %w", err)
	}
	if affected == 0 {
		return filterNotFound(id)
	}
	return nil
}
