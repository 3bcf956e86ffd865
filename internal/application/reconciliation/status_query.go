package reconciliation

import (
	"context"

	"github.com/jhoicas/logistica-api/internal/application/dto"
	"github.com/jhoicas/logistica-api/internal/application/inventory"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
)

// Outcome "none": la nota nunca fue conciliada.
const statusNone = "none"

// StatusQuery expone al operador el estado de conciliación de las notas.
type StatusQuery struct {
	repos inventory.Repos
}

// NewStatusQuery construye la consulta con repositorios atados al pool.
func NewStatusQuery(repos inventory.Repos) *StatusQuery {
	return &StatusQuery{repos: repos}
}

// Status distingue "stock reflejado" (success) de "stock aún no reflejado" (failed o sin claim).
func (q *StatusQuery) Status(ctx context.Context, noteID string) (*dto.ReconciliationStatusDTO, error) {
	note, err := q.repos.Notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, domain.ErrNotFound
	}
	claim, err := q.repos.Claims.Get(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return &dto.ReconciliationStatusDTO{NoteID: noteID, Outcome: statusNone}, nil
	}
	out := toStatusDTO(claim)
	return &out, nil
}

// ListFailed lista los claims fallidos, pendientes de reintento.
func (q *StatusQuery) ListFailed(ctx context.Context, page dto.PageRequest) ([]dto.ReconciliationStatusDTO, error) {
	page.DefaultPage()
	claims, err := q.repos.Claims.ListByOutcome(ctx, entity.ClaimOutcomeFailed, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReconciliationStatusDTO, 0, len(claims))
	for _, c := range claims {
		out = append(out, toStatusDTO(c))
	}
	return out, nil
}

func toStatusDTO(c *entity.ReconciliationClaim) dto.ReconciliationStatusDTO {
	claimedAt := c.ClaimedAt
	return dto.ReconciliationStatusDTO{
		NoteID:         c.NoteID,
		Outcome:        c.Outcome,
		StockReflected: c.Outcome == entity.ClaimOutcomeSuccess,
		Attempts:       c.Attempts,
		LinesApplied:   c.LinesApplied,
		LastError:      c.LastError,
		ClaimedAt:      &claimedAt,
		CompletedAt:    c.CompletedAt,
	}
}
