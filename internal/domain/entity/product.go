package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de producto. Nunca se borra: se descontinúa.
const (
	ProductStatusActive       = "Active"
	ProductStatusInactive     = "Inactive"
	ProductStatusDiscontinued = "Discontinued"
)

// Product fila canónica del catálogo, identificada por Code (único, sensible a mayúsculas).
// StockQuantity solo cambia a través del libro de movimientos (StockLedger.Append).
type Product struct {
	ID            string
	Code          string
	Name          string
	Category      string
	UnitMeasure   string
	StockQuantity decimal.Decimal
	MinStock      *decimal.Decimal // definido por el operador; la conciliación nunca lo toca
	MaxStock      *decimal.Decimal
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BelowMinimum indica si el stock actual quedó por debajo del mínimo configurado.
func (p *Product) BelowMinimum() bool {
	return p.MinStock != nil && p.StockQuantity.LessThan(*p.MinStock)
}
