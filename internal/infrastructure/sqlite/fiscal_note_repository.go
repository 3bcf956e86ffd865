package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

// FiscalNoteRepo notas fiscales y sus líneas sobre SQLite.
type FiscalNoteRepo struct {
	q Querier
}

func NewFiscalNoteRepository(q Querier) *FiscalNoteRepo {
	return &FiscalNoteRepo{q: q}
}

// Create persiste la cabecera y sus líneas. Usar dentro de una tx para que sea atómico.
func (r *FiscalNoteRepo) Create(ctx context.Context, n *entity.FiscalNote, lines []*entity.FiscalNoteLine) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO fiscal_notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Number, n.Series, n.AccessKey, n.CounterpartyTaxID, n.CounterpartyName, fmtTime(n.IssueDate),
		n.TotalValue.String(), n.OperationKind, n.Status, fmtTime(n.CreatedAt), fmtTime(n.UpdatedAt),
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
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO fiscal_note_lines (`+lineColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.NoteID, l.LineNumber, l.ProductCode, l.Description, l.UnitMeasure, l.NCM, l.Quantity.String(),
			l.UnitValue.String(), l.LineTotal.String(), l.ICMS.String(), l.IPI.String(), l.PIS.String(), l.COFINS.String(),
			l.Processed, optionalStr(l.ProductID), fmtTimePtr(l.ProcessedAt),
		)
		if err != nil {
			return fmt.Errorf("insert fiscal note line %d: %w", l.LineNumber, err)
		}
	}
	return nil
}

func (r *FiscalNoteRepo) GetByID(ctx context.Context, id string) (*entity.FiscalNote, error) {
	n, err := scanNote(r.q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM fiscal_notes WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get fiscal note: %w", err)
	}
	return n, nil
}

// GetForUpdate sin bloqueo de fila: la tx IMMEDIATE serializa escritores.
func (r *FiscalNoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.FiscalNote, error) {
	return r.GetByID(ctx, id)
}

func (r *FiscalNoteRepo) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE fiscal_notes SET status = ?, updated_at = ? WHERE id = ?`, status, fmtTime(at), id)
	if err != nil {
		return fmt.Errorf("update fiscal note status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FiscalNoteRepo) ListLines(ctx context.Context, noteID string) ([]*entity.FiscalNoteLine, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM fiscal_note_lines WHERE note_id = ? ORDER BY line_number`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list fiscal note lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.FiscalNoteLine
	for rows.Next() {
		var (
			l           entity.FiscalNoteLine
			productID   sql.NullString
			processedAt sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.NoteID, &l.LineNumber, &l.ProductCode, &l.Description, &l.UnitMeasure,
			&l.NCM, &l.Quantity, &l.UnitValue, &l.LineTotal, &l.ICMS, &l.IPI, &l.PIS, &l.COFINS,
			&l.Processed, &productID, &processedAt); err != nil {
			return nil, fmt.Errorf("scan fiscal note line: %w", err)
		}
		l.ProductID = strPtr(productID)
		if l.ProcessedAt, err = parseNullTime(processedAt); err != nil {
			return nil, fmt.Errorf("scan fiscal note line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

func (r *FiscalNoteRepo) MarkLineProcessed(ctx context.Context, lineID, productID string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE fiscal_note_lines SET processed = 1, product_id = ?, processed_at = ?
		WHERE id = ? AND processed = 0`, productID, fmtTime(at), lineID)
	if err != nil {
		return fmt.Errorf("mark fiscal note line processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("línea %s ya procesada: %w", lineID, domain.ErrConflict)
	}
	return nil
}

func (r *FiscalNoteRepo) ListPendingReconciliation(ctx context.Context, maxAttempts, limit int) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT n.id FROM fiscal_notes n
		LEFT JOIN reconciliation_claims c ON c.note_id = n.id
		WHERE n.status = ? AND n.operation_kind = ?
		  AND (c.note_id IS NULL OR (c.outcome <> ? AND c.attempts < ?))
		ORDER BY n.updated_at
		LIMIT ?`,
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

func scanNote(row rowScanner) (*entity.FiscalNote, error) {
	var (
		n                               entity.FiscalNote
		issueDate, createdAt, updatedAt string
	)
	err := row.Scan(&n.ID, &n.Number, &n.Series, &n.AccessKey, &n.CounterpartyTaxID, &n.CounterpartyName,
		&issueDate, &n.TotalValue, &n.OperationKind, &n.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if n.IssueDate, err = parseTime(issueDate); err != nil {
		return nil, err
	}
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}
