package fiscal

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/jhoicas/logistica-api/internal/application/dto"
	"github.com/jhoicas/logistica-api/internal/application/inventory"
	"github.com/jhoicas/logistica-api/internal/application/reconciliation"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
)

// StatusUseCase cambios de estado de la nota fiscal. El paso a Processed dispara la conciliación
// de forma síncrona; el estado refleja el ciclo de vida del documento y no se revierte si la
// conciliación falla.
type StatusUseCase struct {
	txRunner   inventory.TxRunner
	reconciler reconciliation.Reconciler
	log        zerolog.Logger
	now        func() time.Time
}

// NewStatusUseCase construye el caso de uso.
func NewStatusUseCase(txRunner inventory.TxRunner, reconciler reconciliation.Reconciler, log zerolog.Logger) *StatusUseCase {
	return &StatusUseCase{txRunner: txRunner, reconciler: reconciler, log: log, now: time.Now}
}

// SetStatus aplica la transición. Una nota Processed es inmutable (domain.ErrNoteImmutable).
func (uc *StatusUseCase) SetStatus(ctx context.Context, noteID, status, actor string) (*dto.NoteStatusChangeDTO, error) {
	if noteID == "" || !entity.ValidNoteStatus(status) {
		return nil, domain.ErrInvalidInput
	}
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		note, err := repos.Notes.GetForUpdate(ctx, noteID)
		if err != nil {
			return err
		}
		if note == nil {
			return domain.ErrNotFound
		}
		if note.Status == entity.NoteStatusProcessed {
			return domain.ErrNoteImmutable
		}
		return repos.Notes.UpdateStatus(ctx, noteID, status, uc.now())
	})
	if err != nil {
		return nil, err
	}

	out := &dto.NoteStatusChangeDTO{NoteID: noteID, Status: status}
	if status != entity.NoteStatusProcessed {
		return out, nil
	}

	res, err := uc.reconciler.Reconcile(ctx, noteID, actor)
	switch {
	case res != nil:
		out.Reconciliation = res.DTO()
	case err != nil:
		out.Reconciliation = &dto.ReconciliationResultDTO{
			NoteID:  noteID,
			Outcome: string(reconciliation.OutcomeFailed),
			Error:   err.Error(),
		}
	}
	if err != nil {
		uc.log.Warn().Err(err).Str("note_id", noteID).Msg("nota Processed con stock aún no reflejado")
	}
	return out, nil
}
