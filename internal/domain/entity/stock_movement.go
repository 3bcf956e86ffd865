package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovementKindEntrada       = "entrada"       // siempre suma
	MovementKindSaida         = "saida"         // siempre resta
	MovementKindAjuste        = "ajuste"        // dirección explícita
	MovementKindTransferencia = "transferencia" // dirección explícita (pool único)
)

// Direcciones de un movimiento.
const (
	DirectionIn  = 1
	DirectionOut = -1
)

// StockMovement registro inmutable del libro de stock.
// Invariante: StockAfter = StockBefore + Direction*Quantity, con Quantity > 0.
type StockMovement struct {
	ID           string
	ProductID    string
	Kind         string
	Direction    int
	Quantity     decimal.Decimal
	StockBefore  decimal.Decimal
	StockAfter   decimal.Decimal
	SourceNoteID *string // nil para ajustes manuales
	Reason       string
	Actor        string
	OccurredAt   time.Time
}

// Signed devuelve la cantidad con signo aplicada al stock.
func (m *StockMovement) Signed() decimal.Decimal {
	if m.Direction == DirectionOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
