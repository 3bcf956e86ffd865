package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/logistica-api/internal/application/inventory"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/domain/repository"
)

const maxLastErrorLen = 1000

// Guard guard de idempotencia: una fila de claim por nota fiscal, a lo sumo una exitosa.
// Begin y Complete corren en la transacción del orquestador; MarkFailed abre la suya propia
// porque se invoca después del Rollback.
type Guard struct {
	txRunner inventory.TxRunner
	now      func() time.Time
}

// NewGuard construye el guard.
func NewGuard(txRunner inventory.TxRunner) *Guard {
	return &Guard{txRunner: txRunner, now: time.Now}
}

// Begin intenta tomar el claim de la nota.
//   - sin claim previo: lo inserta (la restricción única sobre note_id decide la carrera) → claimed.
//   - claim exitoso: alreadyDone, el caller no debe hacer nada.
//   - claim fallido (o pendiente huérfano): se vuelve a tomar como un intento nuevo.
func (g *Guard) Begin(ctx context.Context, claims repository.ReconciliationClaimRepository, noteID string) (claimed, alreadyDone bool, err error) {
	now := g.now()
	inserted, err := claims.TryInsert(ctx, &entity.ReconciliationClaim{
		NoteID:    noteID,
		ClaimedAt: now,
		Outcome:   entity.ClaimOutcomePending,
		Attempts:  1,
	})
	if err != nil {
		return false, false, err
	}
	if inserted {
		return true, false, nil
	}

	existing, err := claims.GetForUpdate(ctx, noteID)
	if err != nil {
		return false, false, err
	}
	if existing == nil {
		return false, false, fmt.Errorf("claim de nota %s desapareció tras conflicto: %w", noteID, domain.ErrConflict)
	}
	if existing.Outcome == entity.ClaimOutcomeSuccess {
		return false, true, nil
	}

	existing.Outcome = entity.ClaimOutcomePending
	existing.Attempts++
	existing.ClaimedAt = now
	existing.CompletedAt = nil
	if err := claims.Update(ctx, existing); err != nil {
		return false, false, err
	}
	return true, false, nil
}

// Complete cierra el claim con el resultado. Debe confirmarse en la misma transacción que los
// movimientos que protege.
func (g *Guard) Complete(ctx context.Context, claims repository.ReconciliationClaimRepository, noteID, outcome string, linesApplied int, errText string) error {
	claim, err := claims.GetForUpdate(ctx, noteID)
	if err != nil {
		return err
	}
	if claim == nil {
		return fmt.Errorf("completar claim de nota %s: %w", noteID, domain.ErrNotFound)
	}
	now := g.now()
	claim.Outcome = outcome
	claim.CompletedAt = &now
	claim.LinesApplied = linesApplied
	claim.LastError = truncate(errText, maxLastErrorLen)
	return claims.Update(ctx, claim)
}

// MarkFailed registra el intento fallido en una transacción aparte, después del Rollback de la
// conciliación. Nunca pisa un claim exitoso.
func (g *Guard) MarkFailed(ctx context.Context, noteID string, cause error) error {
	now := g.now()
	msg := ""
	if cause != nil {
		msg = truncate(cause.Error(), maxLastErrorLen)
	}
	return g.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		return repos.Claims.UpsertFailure(ctx, &entity.ReconciliationClaim{
			NoteID:      noteID,
			ClaimedAt:   now,
			CompletedAt: &now,
			Outcome:     entity.ClaimOutcomeFailed,
			Attempts:    1,
			LastError:   msg,
		})
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
