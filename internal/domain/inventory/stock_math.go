package inventory

import (
	"github.com/shopspring/decimal"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
)

// ResolveDirection fija la dirección de un movimiento según su tipo.
// entrada siempre suma y saida siempre resta; ajuste y transferencia exigen dirección explícita.
func ResolveDirection(kind string, direction int) (int, error) {
	switch kind {
	case entity.MovementKindEntrada:
		return entity.DirectionIn, nil
	case entity.MovementKindSaida:
		return entity.DirectionOut, nil
	case entity.MovementKindAjuste, entity.MovementKindTransferencia:
		if direction != entity.DirectionIn && direction != entity.DirectionOut {
			return 0, domain.ErrInvalidInput
		}
		return direction, nil
	}
	return 0, domain.ErrInvalidInput
}

// SignedQuantity aplica la dirección a una cantidad siempre positiva.
func SignedQuantity(direction int, quantity decimal.Decimal) decimal.Decimal {
	if direction == entity.DirectionOut {
		return quantity.Neg()
	}
	return quantity
}

// NextStock calcula StockDespués = StockAntes + signo(cantidad).
// No rechaza resultados negativos: el libro los registra para exponer la discrepancia.
func NextStock(before decimal.Decimal, direction int, quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidQuantity
	}
	return before.Add(SignedQuantity(direction, quantity)), nil
}

// Replay reconstruye el stock sumando la cadena de movimientos.
// Devuelve además el índice del primer movimiento cuya instantánea no encadena (-1 si todo cuadra).
func Replay(movements []*entity.StockMovement) (decimal.Decimal, int) {
	total := decimal.Zero
	broken := -1
	for i, m := range movements {
		if broken < 0 && (!m.StockBefore.Equal(total) || !m.StockAfter.Equal(m.StockBefore.Add(m.Signed()))) {
			broken = i
		}
		total = total.Add(m.Signed())
	}
	return total, broken
}
