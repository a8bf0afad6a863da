package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/amgator/databucket-app/internal/rulesql"
)

// Claim is the outcome of one reservation attempt. Token is a UUIDv7
// identifying the claim in logs; IDs are the records marked reserved, in
// selection order. An empty IDs slice means nothing matched - that is a
// normal outcome, not an error.
type Claim struct {
	Token string
	IDs   []int64
}

// Reserve atomically claims up to limit unreserved records matching the
// compiled condition fragment, assigning them to owner.
//
// The select and the update run in one immediate transaction. The store's
// connection string begins every transaction with BEGIN IMMEDIATE, so the
// write lock is held before the ids are read: a concurrent Reserve over an
// overlapping predicate waits, then re-evaluates against the committed
// state and sees only rows the first claim left behind. Two claims can
// never return the same id.
//
// The update re-checks reserved = 0 as a belt against any future relaxation
// of the transaction mode; inside the immediate transaction it can never
// exclude a selected row, and a shortfall is reported as an error.
func (s *Store) Reserve(ctx context.Context, frag rulesql.Fragment, limit int, sortField, owner, now, actor string) (Claim, error) {
	token, err := uuid.NewV7()
	if err != nil {
		return Claim{}, fmt.Errorf("reserve: claim token: %w", err)
	}
	claim := Claim{Token: token.String()}

	sel, err := rulesql.ReserveSelect(frag, limit, sortField)
	if err != nil {
		return Claim{}, fmt.Errorf("reserve: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Claim{}, fmt.Errorf("reserve: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	rows, err := tx.QueryContext(ctx, sel.SQL, sel.Args...)
	if err != nil {
		return Claim{}, fmt.Errorf("reserve: select ids: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Claim{}, fmt.Errorf("reserve: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Claim{}, fmt.Errorf("reserve: iterate ids: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		if err := tx.Commit(); err != nil {
			return Claim{}, fmt.Errorf("reserve: commit (empty): %w", err)
		}
		return claim, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids)+3)
	args = append(args, owner, now, actor)
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE data
		SET reserved = 1, reserved_by = ?, modified_at = ?, modified_by = ?
		WHERE data_id IN (%s) AND reserved = 0
	`, placeholders), args...)
	if err != nil {
		return Claim{}, fmt.Errorf("reserve: mark reserved: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Claim{}, fmt.Errorf("reserve: rows affected: %w", err)
	}
	if affected != int64(len(ids)) {
		return Claim{}, fmt.Errorf("reserve: claimed %d of %d selected rows", affected, len(ids))
	}

	if err := tx.Commit(); err != nil {
		return Claim{}, fmt.Errorf("reserve: commit: %w", err)
	}

	claim.IDs = ids
	return claim, nil
}

// Release clears the reservation flag and owner on the records matched by
// the compiled condition fragment, returning the number of rows released.
func (s *Store) Release(ctx context.Context, frag rulesql.Fragment, now, actor string) (int64, error) {
	reserved := false
	owner := ""
	upd := rulesql.Update{Reserved: &reserved, Owner: &owner}

	released, err := s.UpdateData(ctx, frag, upd, now, actor)
	if err != nil {
		return 0, fmt.Errorf("release: %w", err)
	}
	return released, nil
}
