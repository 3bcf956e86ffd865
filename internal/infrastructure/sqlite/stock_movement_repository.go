package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, kind, direction, quantity, stock_before, stock_after, source_note_id, reason, actor, occurred_at`

// StockMovementRepo libro de movimientos sobre SQLite; seq (AUTOINCREMENT) fija el orden de la cadena.
type StockMovementRepo struct {
	q Querier
}

func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO stock_movements (`+movementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProductID, m.Kind, m.Direction, m.Quantity.String(), m.StockBefore.String(), m.StockAfter.String(),
		optionalStr(m.SourceNoteID), m.Reason, nullIfEmpty(m.Actor), fmtTime(m.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = ? ORDER BY seq`
	args := []any{productID}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements by product: %w", err)
	}
	return collectMovements(rows)
}

func (r *StockMovementRepo) ListByNote(ctx context.Context, noteID string) ([]*entity.StockMovement, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM stock_movements WHERE source_note_id = ? ORDER BY seq`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list movements by note: %w", err)
	}
	return collectMovements(rows)
}

func (r *StockMovementRepo) CountByNote(ctx context.Context, noteID string) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx,
		`SELECT count(*) FROM stock_movements WHERE source_note_id = ?`, noteID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movements by note: %w", err)
	}
	return n, nil
}

func collectMovements(rows *sql.Rows) ([]*entity.StockMovement, error) {
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var (
			m          entity.StockMovement
			noteID     sql.NullString
			actor      sql.NullString
			occurredAt string
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Direction, &m.Quantity, &m.StockBefore,
			&m.StockAfter, &noteID, &m.Reason, &actor, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		t, err := parseTime(occurredAt)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.OccurredAt = t
		m.SourceNoteID = strPtr(noteID)
		m.Actor = actor.String
		list = append(list, &m)
	}
	return list, rows.Err()
}
