package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/domain/repository"
)

var _ repository.ReconciliationClaimRepository = (*ReconciliationClaimRepo)(nil)

const claimColumns = `note_id, claimed_at, completed_at, outcome, attempts, lines_applied, last_error`

// ReconciliationClaimRepo guard de idempotencia sobre SQLite.
type ReconciliationClaimRepo struct {
	q Querier
}

func NewReconciliationClaimRepository(q Querier) *ReconciliationClaimRepo {
	return &ReconciliationClaimRepo{q: q}
}

func (r *ReconciliationClaimRepo) TryInsert(ctx context.Context, c *entity.ReconciliationClaim) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO reconciliation_claims (`+claimColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (note_id) DO NOTHING`,
		c.NoteID, fmtTime(c.ClaimedAt), fmtTimePtr(c.CompletedAt), c.Outcome, c.Attempts, c.LinesApplied, c.LastError,
	)
	if err != nil {
		return false, fmt.Errorf("insert reconciliation claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert reconciliation claim: %w", err)
	}
	return n == 1, nil
}

func (r *ReconciliationClaimRepo) GetForUpdate(ctx context.Context, noteID string) (*entity.ReconciliationClaim, error) {
	return r.Get(ctx, noteID)
}

func (r *ReconciliationClaimRepo) Get(ctx context.Context, noteID string) (*entity.ReconciliationClaim, error) {
	c, err := scanClaim(r.q.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM reconciliation_claims WHERE note_id = ?`, noteID))
	if err != nil {
		return nil, fmt.Errorf("get reconciliation claim: %w", err)
	}
	return c, nil
}

func (r *ReconciliationClaimRepo) Update(ctx context.Context, c *entity.ReconciliationClaim) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE reconciliation_claims
		SET claimed_at = ?, completed_at = ?, outcome = ?, attempts = ?, lines_applied = ?, last_error = ?
		WHERE note_id = ?`,
		fmtTime(c.ClaimedAt), fmtTimePtr(c.CompletedAt), c.Outcome, c.Attempts, c.LinesApplied, c.LastError, c.NoteID,
	)
	if err != nil {
		return fmt.Errorf("update reconciliation claim: %w", err)
	}
	return nil
}

// UpsertFailure la cláusula WHERE impide degradar un claim exitoso.
func (r *ReconciliationClaimRepo) UpsertFailure(ctx context.Context, c *entity.ReconciliationClaim) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO reconciliation_claims (`+claimColumns+`)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT (note_id) DO UPDATE
		SET outcome = excluded.outcome,
		    completed_at = excluded.completed_at,
		    last_error = excluded.last_error,
		    lines_applied = 0,
		    attempts = reconciliation_claims.attempts + 1
		WHERE reconciliation_claims.outcome <> 'success'`,
		c.NoteID, fmtTime(c.ClaimedAt), fmtTimePtr(c.CompletedAt), entity.ClaimOutcomeFailed, c.Attempts, c.LastError,
	)
	if err != nil {
		return fmt.Errorf("upsert reconciliation failure: %w", err)
	}
	return nil
}

func (r *ReconciliationClaimRepo) ListByOutcome(ctx context.Context, outcome string, limit, offset int) ([]*entity.ReconciliationClaim, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+claimColumns+` FROM reconciliation_claims
		WHERE outcome = ? ORDER BY claimed_at DESC LIMIT ? OFFSET ?`, outcome, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reconciliation claims: %w", err)
	}
	defer rows.Close()
	var list []*entity.ReconciliationClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reconciliation claim: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func scanClaim(row rowScanner) (*entity.ReconciliationClaim, error) {
	var (
		c           entity.ReconciliationClaim
		claimedAt   string
		completedAt sql.NullString
	)
	err := row.Scan(&c.NoteID, &claimedAt, &completedAt, &c.Outcome, &c.Attempts, &c.LinesApplied, &c.LastError)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if c.ClaimedAt, err = parseTime(claimedAt); err != nil {
		return nil, err
	}
	if c.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
