package inventory

import (
	"context"

	"github.com/jhoicas/logistica-api/internal/application/dto"
	"github.com/jhoicas/logistica-api/internal/domain"
	domaininv "github.com/jhoicas/logistica-api/internal/domain/inventory"
)

// VerifyStockUseCase reconstruye el stock de un producto a partir de su cadena de movimientos
// y lo compara con la cantidad almacenada.
type VerifyStockUseCase struct {
	txRunner TxRunner
}

// NewVerifyStockUseCase construye el caso de uso.
func NewVerifyStockUseCase(txRunner TxRunner) *VerifyStockUseCase {
	return &VerifyStockUseCase{txRunner: txRunner}
}

// Verify lee producto y movimientos en la misma transacción para obtener una foto coherente.
func (uc *VerifyStockUseCase) Verify(ctx context.Context, productID string) (*dto.StockVerificationDTO, error) {
	var out *dto.StockVerificationDTO
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		product, err := repos.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		movements, err := repos.Movements.ListByProduct(ctx, productID, 0, 0)
		if err != nil {
			return err
		}
		replayed, broken := domaininv.Replay(movements)
		out = &dto.StockVerificationDTO{
			ProductID:     product.ID,
			Code:          product.Code,
			StockQuantity: product.StockQuantity,
			Replayed:      replayed,
			Drift:         product.StockQuantity.Sub(replayed),
			Movements:     len(movements),
			BrokenAt:      broken,
			Consistent:    broken < 0 && product.StockQuantity.Equal(replayed),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
