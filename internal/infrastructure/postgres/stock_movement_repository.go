package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, kind, direction, quantity, stock_before, stock_after, source_note_id, reason, actor, occurred_at`

// StockMovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
// seq (BIGSERIAL) fija el orden de la cadena: las inserciones de un mismo producto están
// serializadas por el bloqueo de su fila.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.Kind, m.Direction, m.Quantity, m.StockBefore, m.StockAfter,
		m.SourceNoteID, m.Reason, nullIfEmpty(m.Actor), m.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// ListByProduct movimientos de un producto en orden de la cadena. limit <= 0 devuelve todos.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = $1 ORDER BY seq`
	args := []any{productID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements by product: %w", err)
	}
	return collectMovements(rows)
}

// ListByNote movimientos originados por una nota fiscal.
func (r *StockMovementRepo) ListByNote(ctx context.Context, noteID string) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+movementColumns+` FROM stock_movements WHERE source_note_id = $1 ORDER BY seq`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list movements by note: %w", err)
	}
	return collectMovements(rows)
}

// CountByNote cantidad de movimientos originados por una nota fiscal.
func (r *StockMovementRepo) CountByNote(ctx context.Context, noteID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM stock_movements WHERE source_note_id = $1`, noteID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movements by note: %w", err)
	}
	return n, nil
}

func collectMovements(rows pgx.Rows) ([]*entity.StockMovement, error) {
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var actor *string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Direction, &m.Quantity, &m.StockBefore,
			&m.StockAfter, &m.SourceNoteID, &m.Reason, &actor, &m.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Actor = derefStr(actor)
		list = append(list, &m)
	}
	return list, rows.Err()
}
