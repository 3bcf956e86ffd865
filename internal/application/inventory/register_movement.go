package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/logistica-api/internal/application/dto"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	domaininv "github.com/jhoicas/logistica-api/internal/domain/inventory"
)

// RegisterMovementUseCase registra movimientos manuales del operador (entrada, saida, ajuste,
// transferencia) de forma transaccional. Pasa siempre por StockLedger.Append para preservar
// la invariante de reconstrucción del stock.
type RegisterMovementUseCase struct {
	txRunner TxRunner
	ledger   *StockLedger
	now      func() time.Time
}

// NewRegisterMovementUseCase construye el caso de uso.
func NewRegisterMovementUseCase(txRunner TxRunner, ledger *StockLedger) *RegisterMovementUseCase {
	return &RegisterMovementUseCase{txRunner: txRunner, ledger: ledger, now: time.Now}
}

// MovementInputDTO entrada para registrar un movimiento manual.
type MovementInputDTO struct {
	UserID    string
	ProductID string
	Type      string
	Direction int
	Quantity  decimal.Decimal
	Reason    string
}

// RegisterMovement valida la entrada y agrega el movimiento al libro dentro de una transacción.
func (uc *RegisterMovementUseCase) RegisterMovement(ctx context.Context, input MovementInputDTO) (*entity.StockMovement, error) {
	if input.ProductID == "" || input.UserID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := domaininv.ResolveDirection(input.Type, input.Direction); err != nil {
		return nil, err
	}

	var mov *entity.StockMovement
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		var err error
		mov, err = uc.ledger.Append(ctx, repos, AppendInput{
			ProductID:  input.ProductID,
			Kind:       input.Type,
			Direction:  input.Direction,
			Quantity:   input.Quantity,
			Reason:     input.Reason,
			Actor:      input.UserID,
			OccurredAt: uc.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// RegisterMovementFromRequest adapta el request HTTP al caso de uso RegisterMovement.
func (uc *RegisterMovementUseCase) RegisterMovementFromRequest(ctx context.Context, userID string, in dto.RegisterMovementRequest) (*entity.StockMovement, error) {
	input := MovementInputDTO{
		UserID:    userID,
		ProductID: in.ProductID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Reason:    in.Reason,
	}
	switch in.Direction {
	case "in":
		input.Direction = entity.DirectionIn
	case "out":
		input.Direction = entity.DirectionOut
	}
	return uc.RegisterMovement(ctx, input)
}
