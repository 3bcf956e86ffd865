package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/domain/repository"
)

var _ repository.ReconciliationClaimRepository = (*ReconciliationClaimRepo)(nil)

const claimColumns = `note_id, claimed_at, completed_at, outcome, attempts, lines_applied, last_error`

// ReconciliationClaimRepo guard de idempotencia sobre PostgreSQL (usable con pool o tx).
type ReconciliationClaimRepo struct {
	q Querier
}

// NewReconciliationClaimRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReconciliationClaimRepository(q Querier) *ReconciliationClaimRepo {
	return &ReconciliationClaimRepo{q: q}
}

// TryInsert inserta el claim si no existe. Si otra tx tiene un insert sin confirmar para la misma
// nota, PostgreSQL espera a que termine antes de decidir.
func (r *ReconciliationClaimRepo) TryInsert(ctx context.Context, c *entity.ReconciliationClaim) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		INSERT INTO reconciliation_claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (note_id) DO NOTHING`,
		c.NoteID, c.ClaimedAt, c.CompletedAt, c.Outcome, c.Attempts, c.LinesApplied, c.LastError,
	)
	if err != nil {
		return false, fmt.Errorf("insert reconciliation claim: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// GetForUpdate obtiene el claim bloqueando la fila.
func (r *ReconciliationClaimRepo) GetForUpdate(ctx context.Context, noteID string) (*entity.ReconciliationClaim, error) {
	c, err := scanClaim(r.q.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM reconciliation_claims WHERE note_id = $1 FOR UPDATE`, noteID))
	if err != nil {
		return nil, fmt.Errorf("get reconciliation claim for update: %w", err)
	}
	return c, nil
}

// Get obtiene el claim sin bloquear.
func (r *ReconciliationClaimRepo) Get(ctx context.Context, noteID string) (*entity.ReconciliationClaim, error) {
	c, err := scanClaim(r.q.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM reconciliation_claims WHERE note_id = $1`, noteID))
	if err != nil {
		return nil, fmt.Errorf("get reconciliation claim: %w", err)
	}
	return c, nil
}

// Update reescribe el estado del claim.
func (r *ReconciliationClaimRepo) Update(ctx context.Context, c *entity.ReconciliationClaim) error {
	_, err := r.q.Exec(ctx, `
		UPDATE reconciliation_claims
		SET claimed_at = $2, completed_at = $3, outcome = $4, attempts = $5, lines_applied = $6, last_error = $7
		WHERE note_id = $1`,
		c.NoteID, c.ClaimedAt, c.CompletedAt, c.Outcome, c.Attempts, c.LinesApplied, c.LastError,
	)
	if err != nil {
		return fmt.Errorf("update reconciliation claim: %w", err)
	}
	return nil
}

// UpsertFailure registra el fallo. La cláusula WHERE impide degradar un claim exitoso.
func (r *ReconciliationClaimRepo) UpsertFailure(ctx context.Context, c *entity.ReconciliationClaim) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO reconciliation_claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		ON CONFLICT (note_id) DO UPDATE
		SET outcome = EXCLUDED.outcome,
		    completed_at = EXCLUDED.completed_at,
		    last_error = EXCLUDED.last_error,
		    lines_applied = 0,
		    attempts = reconciliation_claims.attempts + 1
		WHERE reconciliation_claims.outcome <> 'success'`,
		c.NoteID, c.ClaimedAt, c.CompletedAt, entity.ClaimOutcomeFailed, c.Attempts, c.LastError,
	)
	if err != nil {
		return fmt.Errorf("upsert reconciliation failure: %w", err)
	}
	return nil
}

// ListByOutcome lista claims por resultado, los más recientes primero.
func (r *ReconciliationClaimRepo) ListByOutcome(ctx context.Context, outcome string, limit, offset int) ([]*entity.ReconciliationClaim, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+claimColumns+` FROM reconciliation_claims
		WHERE outcome = $1 ORDER BY claimed_at DESC LIMIT $2 OFFSET $3`, outcome, limit, offset)
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

func scanClaim(row pgx.Row) (*entity.ReconciliationClaim, error) {
	var c entity.ReconciliationClaim
	err := row.Scan(&c.NoteID, &c.ClaimedAt, &c.CompletedAt, &c.Outcome, &c.Attempts, &c.LinesApplied, &c.LastError)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
