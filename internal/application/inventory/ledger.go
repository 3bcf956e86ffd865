package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	domaininv "github.com/jhoicas/logistica-api/internal/domain/inventory"
)

// AppendInput datos de un movimiento a registrar en el libro.
type AppendInput struct {
	ProductID    string
	Kind         string
	Direction    int // solo para ajuste/transferencia
	Quantity     decimal.Decimal
	SourceNoteID *string
	Reason       string
	Actor        string
	OccurredAt   time.Time
}

// StockLedger libro de movimientos de stock, solo inserción.
// Es la única ruta que escribe Product.StockQuantity.
type StockLedger struct {
	log zerolog.Logger
}

// NewStockLedger construye el libro.
func NewStockLedger(log zerolog.Logger) *StockLedger {
	return &StockLedger{log: log}
}

// Append bloquea la fila del producto (SELECT FOR UPDATE), calcula las instantáneas antes/después,
// guarda el movimiento y escribe la nueva cantidad. Debe ejecutarse dentro de TxRunner.Run.
func (l *StockLedger) Append(ctx context.Context, repos Repos, in AppendInput) (*entity.StockMovement, error) {
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	direction, err := domaininv.ResolveDirection(in.Kind, in.Direction)
	if err != nil {
		return nil, err
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = time.Now()
	}

	product, err := repos.Products.GetForUpdate(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	after, err := domaininv.NextStock(product.StockQuantity, direction, in.Quantity)
	if err != nil {
		return nil, err
	}

	mov := &entity.StockMovement{
		ID:           uuid.New().String(),
		ProductID:    product.ID,
		Kind:         in.Kind,
		Direction:    direction,
		Quantity:     in.Quantity,
		StockBefore:  product.StockQuantity,
		StockAfter:   after,
		SourceNoteID: in.SourceNoteID,
		Reason:       in.Reason,
		Actor:        in.Actor,
		OccurredAt:   in.OccurredAt,
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	if err := repos.Products.UpdateStock(ctx, product.ID, after, in.OccurredAt); err != nil {
		return nil, err
	}

	if after.IsNegative() {
		l.log.Warn().
			Str("product_id", product.ID).
			Str("code", product.Code).
			Str("kind", in.Kind).
			Str("stock_before", mov.StockBefore.String()).
			Str("stock_after", after.String()).
			Bool("negative_stock", true).
			Msg("movimiento deja stock negativo")
	}
	return mov, nil
}
