package entity

import "time"

// Resultados de un claim de conciliación.
const (
	ClaimOutcomePending = "pending" // solo visible dentro de la transacción que lo tomó
	ClaimOutcomeSuccess = "success"
	ClaimOutcomeFailed  = "failed"
)

// ReconciliationClaim registro del guard de idempotencia: una fila por nota fiscal.
// Como máximo un claim exitoso por nota.
type ReconciliationClaim struct {
	NoteID       string
	ClaimedAt    time.Time
	CompletedAt  *time.Time
	Outcome      string
	Attempts     int
	LinesApplied int
	LastError    string
}
