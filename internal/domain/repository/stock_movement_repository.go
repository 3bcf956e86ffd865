package repository

import (
	"context"

	"github.com/jhoicas/logistica-api/internal/domain/entity"
)

// StockMovementRepository puerto del libro de movimientos. Solo inserción y lectura: no hay Update ni Delete.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	// ListByProduct devuelve los movimientos en orden de la cadena (orden de inserción).
	// limit <= 0 devuelve todos.
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error)
	ListByNote(ctx context.Context, noteID string) ([]*entity.StockMovement, error)
	CountByNote(ctx context.Context, noteID string) (int, error)
}
