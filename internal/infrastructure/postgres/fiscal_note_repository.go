package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/domain/repository"
)

var _ repository.FiscalNoteRepository = (*FiscalNoteRepo)(nil)

const (
	noteColumns = `id, number, series, access_key, counterparty_tax_id, counterparty_name, issue_date,
		total_value, operation_kind, status, created_at, updated_at`
	lineColumns = `id, note_id, line_number, product_code, description, unit_measure, ncm, quantity,
		unit_value, line_total, icms, ipi, pis, cofins, processed, product_id, processed_at`
)

// FiscalNoteRepo implementación de FiscalNoteRepository (usable con pool o tx).
type FiscalNoteRepo struct {
	q Querier
}

// NewFiscalNoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFiscalNoteRepository(q Querier) *FiscalNoteRepo {
	return &FiscalNoteRepo{q: q}
}

// Create persiste la cabecera y sus líneas. Usar dentro de una tx para que sea atómico.
func (r *FiscalNoteRepo) Create(ctx context.Context, n *entity.FiscalNote, lines []*entity.FiscalNoteLine) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO fiscal_notes (`+noteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		n.ID, n.Number, n.Series, n.AccessKey, n.CounterpartyTaxID, n.CounterpartyName, n.IssueDate,
		n.TotalValue, n.OperationKind, n.Status, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert fiscal note: %w", err)
	}
	for _, l := range lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.NoteID = n.ID
		_, err := r.q.Exec(ctx, `
			INSERT INTO fiscal_note_lines (`+lineColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			l.ID, l.NoteID, l.LineNumber, l.ProductCode, l.Description, l.UnitMeasure, l.NCM, l.Quantity,
			l.UnitValue, l.LineTotal, l.ICMS, l.IPI, l.PIS, l.COFINS, l.Processed, l.ProductID, l.ProcessedAt,
		)
		if err != nil {
			return fmt.Errorf("insert fiscal note line %d: %w", l.LineNumber, err)
		}
	}
	return nil
}

// GetByID obtiene la cabecera de una nota.
func (r *FiscalNoteRepo) GetByID(ctx context.Context, id string) (*entity.FiscalNote, error) {
	n, err := scanNote(r.q.QueryRow(ctx, `SELECT `+noteColumns+` FROM fiscal_notes WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get fiscal note: %w", err)
	}
	return n, nil
}

// GetForUpdate obtiene la cabecera bloqueando la fila.
func (r *FiscalNoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.FiscalNote, error) {
	n, err := scanNote(r.q.QueryRow(ctx, `SELECT `+noteColumns+` FROM fiscal_notes WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("get fiscal note for update: %w", err)
	}
	return n, nil
}

// UpdateStatus cambia el estado. El trigger trg_fiscal_note_processed emite NOTIFY al pasar a Processed.
func (r *FiscalNoteRepo) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `UPDATE fiscal_notes SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	if err != nil {
		return fmt.Errorf("update fiscal note status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListLines líneas de la nota en su orden almacenado.
func (r *FiscalNoteRepo) ListLines(ctx context.Context, noteID string) ([]*entity.FiscalNoteLine, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+lineColumns+` FROM fiscal_note_lines WHERE note_id = $1 ORDER BY line_number`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list fiscal note lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.FiscalNoteLine
	for rows.Next() {
		var l entity.FiscalNoteLine
		if err := rows.Scan(&l.ID, &l.NoteID, &l.LineNumber, &l.ProductCode, &l.Description, &l.UnitMeasure,
			&l.NCM, &l.Quantity, &l.UnitValue, &l.LineTotal, &l.ICMS, &l.IPI, &l.PIS, &l.COFINS,
			&l.Processed, &l.ProductID, &l.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan fiscal note line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// MarkLineProcessed marca la línea y fija el producto resuelto. Solo afecta líneas no procesadas.
func (r *FiscalNoteRepo) MarkLineProcessed(ctx context.Context, lineID, productID string, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE fiscal_note_lines SET processed = TRUE, product_id = $2, processed_at = $3
		WHERE id = $1 AND processed = FALSE`, lineID, productID, at)
	if err != nil {
		return fmt.Errorf("mark fiscal note line processed: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("línea %s ya procesada: %w", lineID, domain.ErrConflict)
	}
	return nil
}

// ListPendingReconciliation notas Processed de entrada sin claim exitoso.
func (r *FiscalNoteRepo) ListPendingReconciliation(ctx context.Context, maxAttempts, limit int) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT n.id FROM fiscal_notes n
		LEFT JOIN reconciliation_claims c ON c.note_id = n.id
		WHERE n.status = $1 AND n.operation_kind = $2
		  AND (c.note_id IS NULL OR (c.outcome <> $3 AND c.attempts < $4))
		ORDER BY n.updated_at
		LIMIT $5`,
		entity.NoteStatusProcessed, entity.OperationInbound, entity.ClaimOutcomeSuccess, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending reconciliation: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan note id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanNote(row pgx.Row) (*entity.FiscalNote, error) {
	var n entity.FiscalNote
	err := row.Scan(&n.ID, &n.Number, &n.Series, &n.AccessKey, &n.CounterpartyTaxID, &n.CounterpartyName,
		&n.IssueDate, &n.TotalValue, &n.OperationKind, &n.Status, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}
