package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de la nota fiscal.
const (
	NoteStatusPending    = "Pending"
	NoteStatusProcessing = "Processing"
	NoteStatusProcessed  = "Processed"
	NoteStatusCancelled  = "Cancelled"
	NoteStatusRejected   = "Rejected"
)

// Tipo de operación de la nota.
const (
	OperationInbound  = "inbound"
	OperationOutbound = "outbound"
)

// FiscalNote cabecera de una nota fiscal (entrada o salida).
// La ingesta del documento es externa; aquí solo se leen status, tipo de operación y líneas.
type FiscalNote struct {
	ID                string
	Number            string
	Series            string
	AccessKey         string // única
	CounterpartyTaxID string
	CounterpartyName  string
	IssueDate         time.Time
	TotalValue        decimal.Decimal
	OperationKind     string
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsInbound indica si la nota afecta stock (solo las de entrada).
func (n *FiscalNote) IsInbound() bool {
	return n.OperationKind == OperationInbound
}

// ValidNoteStatus verifica que s sea un estado conocido.
func ValidNoteStatus(s string) bool {
	switch s {
	case NoteStatusPending, NoteStatusProcessing, NoteStatusProcessed, NoteStatusCancelled, NoteStatusRejected:
		return true
	}
	return false
}
