package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/jhoicas/logistica-api/internal/application/dto"
	"github.com/jhoicas/logistica-api/internal/application/inventory"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
)

// Outcome resultado de una ejecución del orquestador.
type Outcome string

const (
	OutcomeReconciled       Outcome = "reconciled"
	OutcomeAlreadyDone      Outcome = "already_done"
	OutcomeNothingToProcess Outcome = "nothing_to_process"
	OutcomeFailed           Outcome = "failed"
)

// Result detalle de una conciliación.
type Result struct {
	NoteID          string
	Outcome         Outcome
	LinesApplied    int
	ProductsCreated int
	Movements       []*entity.StockMovement
	Err             error
}

// DTO convierte el resultado para la respuesta HTTP.
func (r *Result) DTO() *dto.ReconciliationResultDTO {
	out := &dto.ReconciliationResultDTO{
		NoteID:          r.NoteID,
		Outcome:         string(r.Outcome),
		LinesApplied:    r.LinesApplied,
		ProductsCreated: r.ProductsCreated,
	}
	if len(r.Movements) > 0 {
		out.Movements = dto.ToMovementResponses(r.Movements)
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// Orchestrator pliega las líneas de una nota fiscal Processed en el catálogo y el libro de stock,
// exactamente una vez: claim → validación → (resolver + entrada + marcar línea) por línea → completar claim,
// todo en una única transacción.
type Orchestrator struct {
	txRunner inventory.TxRunner
	guard    *Guard
	resolver *inventory.ProductResolver
	ledger   *inventory.StockLedger
	log      zerolog.Logger
	now      func() time.Time
}

// NewOrchestrator construye el orquestador.
func NewOrchestrator(
	txRunner inventory.TxRunner,
	guard *Guard,
	resolver *inventory.ProductResolver,
	ledger *inventory.StockLedger,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		txRunner: txRunner,
		guard:    guard,
		resolver: resolver,
		ledger:   ledger,
		log:      log,
		now:      time.Now,
	}
}

// Reconcile concilia la nota. Es idempotente: reinvocarlo con el mismo id tras un éxito no hace nada
// (OutcomeAlreadyDone) y tras un fallo reintenta desde cero, porque los movimientos se derivan
// de las líneas pendientes y no de deltas previos.
//
// Un fallo después de tomar el claim deshace toda la transacción, deja el claim en failed y devuelve
// un Result con OutcomeFailed junto con el error.
func (o *Orchestrator) Reconcile(ctx context.Context, noteID, actor string) (*Result, error) {
	if noteID == "" {
		return nil, domain.ErrInvalidInput
	}
	log := o.log.With().Str("note_id", noteID).Logger()

	var (
		res     *Result
		claimed bool
	)
	err := o.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		res = &Result{NoteID: noteID}
		claimed = false

		note, err := repos.Notes.GetByID(ctx, noteID)
		if err != nil {
			return err
		}
		if note == nil {
			return domain.ErrNotFound
		}
		if note.Status != entity.NoteStatusProcessed {
			return domain.ErrNoteNotProcessed
		}

		ok, alreadyDone, err := o.guard.Begin(ctx, repos.Claims, noteID)
		if err != nil {
			return err
		}
		if alreadyDone {
			res.Outcome = OutcomeAlreadyDone
			return nil
		}
		claimed = ok

		pending, err := o.pendingLines(ctx, repos, note)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			res.Outcome = OutcomeNothingToProcess
			return o.guard.Complete(ctx, repos.Claims, noteID, entity.ClaimOutcomeSuccess, 0, "")
		}

		now := o.now()
		for _, line := range pending {
			if err := o.applyLine(ctx, repos, note, line, actor, now, res); err != nil {
				return fmt.Errorf("línea %d (código %q): %w", line.LineNumber, line.ProductCode, err)
			}
		}

		res.Outcome = OutcomeReconciled
		return o.guard.Complete(ctx, repos.Claims, noteID, entity.ClaimOutcomeSuccess, res.LinesApplied, "")
	})
	if err == nil {
		log.Info().
			Str("outcome", string(res.Outcome)).
			Int("lines", res.LinesApplied).
			Int("products_created", res.ProductsCreated).
			Msg("conciliación de nota fiscal")
		return res, nil
	}

	err = classify(err)
	if !claimed {
		// Nota inexistente, no procesada o fallo antes del claim: nada que registrar.
		return nil, err
	}

	if markErr := o.guard.MarkFailed(context.WithoutCancel(ctx), noteID, err); markErr != nil {
		log.Error().Err(markErr).Msg("no se pudo registrar el claim fallido")
	}
	log.Error().Err(err).Msg("conciliación fallida, stock no reflejado")
	return &Result{NoteID: noteID, Outcome: OutcomeFailed, Err: err}, err
}

// pendingLines aplica la validación: solo notas de entrada con al menos una línea sin procesar.
func (o *Orchestrator) pendingLines(ctx context.Context, repos inventory.Repos, note *entity.FiscalNote) ([]*entity.FiscalNoteLine, error) {
	if !note.IsInbound() {
		return nil, nil
	}
	lines, err := repos.Notes.ListLines(ctx, note.ID)
	if err != nil {
		return nil, err
	}
	pending := make([]*entity.FiscalNoteLine, 0, len(lines))
	for _, l := range lines {
		if !l.Processed {
			pending = append(pending, l)
		}
	}
	return pending, nil
}

// applyLine resuelve el producto, agrega la entrada y marca la línea. Las líneas repetidas del mismo
// código generan movimientos independientes.
func (o *Orchestrator) applyLine(
	ctx context.Context,
	repos inventory.Repos,
	note *entity.FiscalNote,
	line *entity.FiscalNoteLine,
	actor string,
	now time.Time,
	res *Result,
) error {
	if line.ProductCode == "" {
		return domain.ErrEmptyProductCode
	}
	if !line.Quantity.IsPositive() {
		return domain.ErrInvalidQuantity
	}

	product, created, err := o.resolver.ResolveOrCreate(ctx, repos.Products, line.ProductCode, inventory.ProductFields{
		Name:        line.Description,
		UnitMeasure: line.UnitMeasure,
	})
	if err != nil {
		return err
	}
	if created {
		res.ProductsCreated++
	}

	noteID := note.ID
	mov, err := o.ledger.Append(ctx, repos, inventory.AppendInput{
		ProductID:    product.ID,
		Kind:         entity.MovementKindEntrada,
		Quantity:     line.Quantity,
		SourceNoteID: &noteID,
		Reason:       fmt.Sprintf("NF %s/%s línea %d", note.Number, note.Series, line.LineNumber),
		Actor:        actor,
		OccurredAt:   now,
	})
	if err != nil {
		return err
	}
	if err := repos.Notes.MarkLineProcessed(ctx, line.ID, product.ID, now); err != nil {
		return err
	}
	res.Movements = append(res.Movements, mov)
	res.LinesApplied++
	return nil
}

// classify conserva los errores de dominio y envuelve el resto como ErrTransactionAborted.
func classify(err error) error {
	known := []error{
		domain.ErrInvalidQuantity,
		domain.ErrEmptyProductCode,
		domain.ErrNotFound,
		domain.ErrNoteNotProcessed,
		domain.ErrInvalidInput,
		domain.ErrConflict,
		domain.ErrTransactionAborted,
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrTransactionAborted, err)
}
