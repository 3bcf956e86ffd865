package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// FiscalNoteLine línea de detalle de una nota fiscal.
// ProductID solo se fija al conciliar; antes la línea referencia el producto por código.
// Los impuestos se transportan tal cual, no se calculan.
type FiscalNoteLine struct {
	ID          string
	NoteID      string
	LineNumber  int
	ProductCode string
	Description string
	UnitMeasure string
	NCM         string
	Quantity    decimal.Decimal
	UnitValue   decimal.Decimal
	LineTotal   decimal.Decimal
	ICMS        decimal.Decimal
	IPI         decimal.Decimal
	PIS         decimal.Decimal
	COFINS      decimal.Decimal
	Processed   bool
	ProductID   *string
	ProcessedAt *time.Time
}
