package dto

import "time"

// UpdateNoteStatusRequest body para PATCH /api/fiscal-notes/:id/status.
type UpdateNoteStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Processing Processed Cancelled Rejected"`
}

// ReconciliationResultDTO resultado de una ejecución del orquestador.
type ReconciliationResultDTO struct {
	NoteID          string             `json:"note_id"`
	Outcome         string             `json:"outcome"` // reconciled | already_done | nothing_to_process | failed
	LinesApplied    int                `json:"lines_applied"`
	ProductsCreated int                `json:"products_created"`
	Movements       []MovementResponse `json:"movements,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// NoteStatusChangeDTO respuesta de un cambio de estado de nota.
type NoteStatusChangeDTO struct {
	NoteID         string                   `json:"note_id"`
	Status         string                   `json:"status"`
	Reconciliation *ReconciliationResultDTO `json:"reconciliation,omitempty"`
}

// ReconciliationStatusDTO estado visible para el operador.
// stock_reflected=false con outcome=failed equivale a "stock aún no reflejado".
type ReconciliationStatusDTO struct {
	NoteID         string     `json:"note_id"`
	Outcome        string     `json:"outcome"` // none | success | failed
	StockReflected bool       `json:"stock_reflected"`
	Attempts       int        `json:"attempts"`
	LinesApplied   int        `json:"lines_applied"`
	LastError      string     `json:"last_error,omitempty"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}
