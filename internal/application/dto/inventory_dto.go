package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// direction solo aplica a ajuste y transferencia: "in" o "out".
type RegisterMovementRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Type      string          `json:"type" validate:"required,oneof=entrada saida ajuste transferencia"`
	Direction string          `json:"direction,omitempty" validate:"omitempty,oneof=in out"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason" validate:"required,max=500"`
}

// MovementResponse salida de un movimiento del libro.
type MovementResponse struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	Kind         string          `json:"kind"`
	Direction    string          `json:"direction"`
	Quantity     decimal.Decimal `json:"quantity"`
	StockBefore  decimal.Decimal `json:"stock_before"`
	StockAfter   decimal.Decimal `json:"stock_after"`
	SourceNoteID *string         `json:"source_note_id"`
	Reason       string          `json:"reason"`
	Actor        string          `json:"actor"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// ToMovementResponse convierte la entidad a su representación HTTP.
func ToMovementResponse(m *entity.StockMovement) MovementResponse {
	dir := "in"
	if m.Direction == entity.DirectionOut {
		dir = "out"
	}
	return MovementResponse{
		ID:           m.ID,
		ProductID:    m.ProductID,
		Kind:         m.Kind,
		Direction:    dir,
		Quantity:     m.Quantity,
		StockBefore:  m.StockBefore,
		StockAfter:   m.StockAfter,
		SourceNoteID: m.SourceNoteID,
		Reason:       m.Reason,
		Actor:        m.Actor,
		OccurredAt:   m.OccurredAt,
	}
}

// ToMovementResponses convierte una lista de movimientos.
func ToMovementResponses(list []*entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, ToMovementResponse(m))
	}
	return out
}

// StockVerificationDTO resultado de reconstruir el stock desde el libro.
type StockVerificationDTO struct {
	ProductID     string          `json:"product_id"`
	Code          string          `json:"code"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	Replayed      decimal.Decimal `json:"replayed"`
	Drift         decimal.Decimal `json:"drift"` // StockQuantity - Replayed
	Movements     int             `json:"movements"`
	BrokenAt      int             `json:"broken_at"` // índice del primer movimiento que no encadena, -1 si ninguno
	Consistent    bool            `json:"consistent"`
}

// ReplenishmentSuggestionDTO producto por debajo de su mínimo con la cantidad sugerida
// para volver al máximo (o al mínimo si no hay máximo).
type ReplenishmentSuggestionDTO struct {
	ProductID         string          `json:"product_id"`
	Code              string          `json:"code"`
	ProductName       string          `json:"product_name"`
	CurrentStock      decimal.Decimal `json:"current_stock"`
	MinStock          decimal.Decimal `json:"min_stock"`
	TargetStock       decimal.Decimal `json:"target_stock"`
	SuggestedOrderQty decimal.Decimal `json:"suggested_order_qty"`
	Priority          int             `json:"priority"` // 1 = más urgente
}
