package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/jhoicas/logistica-api/internal/domain/repository"
)

// ErrLeaseNotObtained otra réplica tiene el lease del worker.
var ErrLeaseNotObtained = errors.New("lease del worker no obtenido")

const workerLeaseKey = "lock:reconciliation-worker"

// Lease lease obtenido sobre el worker; se libera al terminar cada ciclo.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker lease distribuido opcional para que una sola réplica consuma la cola de notas pendientes.
// La exclusión por nota no depende de él: la garantiza el claim único dentro de la transacción.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Reconciler puerto del orquestador (permite probar el worker aislado).
type Reconciler interface {
	Reconcile(ctx context.Context, noteID, actor string) (*Result, error)
}

// WorkerConfig parámetros del worker.
type WorkerConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int // tope de reintentos automáticos; luego solo reintento manual
	Actor       string
}

// Worker consume notas Processed de entrada sin claim exitoso: reintentos de fallos y notas cuyo
// disparo se perdió. Se despierta por ticker y por señales (LISTEN/NOTIFY o llamadas directas).
type Worker struct {
	reconciler Reconciler
	notes      repository.FiscalNoteRepository
	locker     Locker
	log        zerolog.Logger
	cfg        WorkerConfig
	signals    chan string
}

// NewWorker construye el worker. locker puede ser nil (despliegue de una sola réplica).
func NewWorker(reconciler Reconciler, notes repository.FiscalNoteRepository, locker Locker, log zerolog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Actor == "" {
		cfg.Actor = "system"
	}
	return &Worker{
		reconciler: reconciler,
		notes:      notes,
		locker:     locker,
		log:        log.With().Str("component", "reconciliation_worker").Logger(),
		cfg:        cfg,
		signals:    make(chan string, 256),
	}
}

// Notify encola una nota para conciliar. No bloquea: si la cola está llena la nota la recogerá
// el próximo sondeo.
func (w *Worker) Notify(noteID string) {
	select {
	case w.signals <- noteID:
	default:
		w.log.Warn().Str("note_id", noteID).Msg("cola de señales llena, se delega al sondeo")
	}
}

// Run bloquea hasta que ctx se cancele.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.log.Info().
		Dur("interval", w.cfg.Interval).
		Int("batch_size", w.cfg.BatchSize).
		Msg("worker de conciliación iniciado")

	if _, err := w.PollOnce(ctx); err != nil && ctx.Err() == nil {
		w.log.Error().Err(err).Msg("sondeo inicial")
	}
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker de conciliación detenido")
			return nil
		case noteID := <-w.signals:
			err := w.withLease(ctx, func(ctx context.Context) error {
				w.reconcile(ctx, noteID)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Str("note_id", noteID).Msg("señal no atendida, se delega al sondeo")
			}
		case <-ticker.C:
			if _, err := w.PollOnce(ctx); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("sondeo de notas pendientes")
			}
		}
	}
}

// PollOnce procesa un lote de notas pendientes. Devuelve cuántas quedaron conciliadas.
func (w *Worker) PollOnce(ctx context.Context) (int, error) {
	done := 0
	err := w.withLease(ctx, func(ctx context.Context) error {
		ids, err := w.notes.ListPendingReconciliation(ctx, w.cfg.MaxAttempts, w.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if w.reconcile(ctx, id) {
				done++
			}
		}
		return nil
	})
	return done, err
}

func (w *Worker) reconcile(ctx context.Context, noteID string) bool {
	res, err := w.reconciler.Reconcile(ctx, noteID, w.cfg.Actor)
	if err != nil {
		w.log.Warn().Err(err).Str("note_id", noteID).Msg("conciliación pendiente de reintento")
		return false
	}
	return res != nil && (res.Outcome == OutcomeReconciled || res.Outcome == OutcomeNothingToProcess)
}

// withLease ejecuta fn con el lease del worker si hay Locker; sin lease, omite el ciclo.
func (w *Worker) withLease(ctx context.Context, fn func(ctx context.Context) error) error {
	if w.locker == nil {
		return fn(ctx)
	}
	lease, err := w.locker.Obtain(ctx, workerLeaseKey, 2*w.cfg.Interval)
	if errors.Is(err, ErrLeaseNotObtained) {
		w.log.Debug().Msg("lease en manos de otra réplica, ciclo omitido")
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			w.log.Warn().Err(err).Msg("liberar lease del worker")
		}
	}()
	return fn(ctx)
}
