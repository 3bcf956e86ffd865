package inventory

import (
	"context"

	"github.com/jhoicas/logistica-api/internal/domain/repository"
)

// Repos agrupa los repositorios atados a una misma transacción (o al pool, fuera de ella).
type Repos struct {
	Products  repository.ProductRepository
	Movements repository.StockMovementRepository
	Notes     repository.FiscalNoteRepository
	Claims    repository.ReconciliationClaimRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; Rollback en cualquier otro caso. Garantiza atomicidad del libro de stock.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
