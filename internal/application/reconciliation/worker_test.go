package reconciliation_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/logistica-api/internal/application/reconciliation"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/testutil"
)

// denyLocker simula otra réplica con el lease tomado.
type denyLocker struct{}

func (denyLocker) Obtain(context.Context, string, time.Duration) (reconciliation.Lease, error) {
	return nil, reconciliation.ErrLeaseNotObtained
}

// countingLocker concede siempre y cuenta obtenciones y liberaciones.
type countingLocker struct {
	mu       sync.Mutex
	obtained int
	released int
}

type countingLease struct{ l *countingLocker }

func (c countingLease) Release(context.Context) error {
	c.l.mu.Lock()
	c.l.released++
	c.l.mu.Unlock()
	return nil
}

func (l *countingLocker) Obtain(context.Context, string, time.Duration) (reconciliation.Lease, error) {
	l.mu.Lock()
	l.obtained++
	l.mu.Unlock()
	return countingLease{l: l}, nil
}

// brokenLocker simula el backend del lease caído.
type brokenLocker struct{}

func (brokenLocker) Obtain(context.Context, string, time.Duration) (reconciliation.Lease, error) {
	return nil, errors.New("redis: connection refused")
}

// syncBuffer destino de logs seguro entre goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// recordingReconciler registra las notas recibidas.
type recordingReconciler struct {
	calls chan string
}

func (r *recordingReconciler) Reconcile(_ context.Context, noteID, _ string) (*reconciliation.Result, error) {
	r.calls <- noteID
	return &reconciliation.Result{NoteID: noteID, Outcome: reconciliation.OutcomeReconciled}, nil
}

func workerConfig() reconciliation.WorkerConfig {
	return reconciliation.WorkerConfig{Interval: time.Hour, BatchSize: 10, MaxAttempts: 2, Actor: "worker-test"}
}

func TestWorker_PollOnceConciliaNotasPendientes(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	a := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-W1", Quantity: "5"})
	store.CreateNote(t, entity.OperationInbound, entity.NoteStatusPending,
		testutil.Line{Code: "PRD-W2", Quantity: "5"})

	locker := &countingLocker{}
	w := reconciliation.NewWorker(orch, store.Repos.Notes, locker, zerolog.Nop(), workerConfig())

	done, err := w.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, done, "solo la nota Processed sin claim")
	assert.True(t, store.Stock(t, "PRD-W1").Equal(dec("5")))
	assert.Zero(t, store.CountProducts(t, "PRD-W2"))
	assert.Equal(t, 1, locker.obtained)
	assert.Equal(t, 1, locker.released)

	claim := claimOf(t, store, a.ID)
	require.NotNil(t, claim)
	assert.Equal(t, entity.ClaimOutcomeSuccess, claim.Outcome)

	done, err = w.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, done, "una nota exitosa no vuelve a la cola")
}

func TestWorker_RespetaTopeDeIntentos(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "", Quantity: "5"})

	w := reconciliation.NewWorker(orch, store.Repos.Notes, nil, zerolog.Nop(), workerConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		done, err := w.PollOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, done)
	}
	claim := claimOf(t, store, note.ID)
	require.NotNil(t, claim)
	assert.Equal(t, entity.ClaimOutcomeFailed, claim.Outcome)
	assert.Equal(t, 2, claim.Attempts, "tras MaxAttempts el worker deja la nota para reintento manual")
}

func TestWorker_SinLeaseOmiteCiclo(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-L", Quantity: "1"})

	w := reconciliation.NewWorker(orch, store.Repos.Notes, denyLocker{}, zerolog.Nop(), workerConfig())
	done, err := w.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, done)
	assert.Nil(t, claimOf(t, store, note.ID))
}

func TestWorker_RunAtiendeSenalesYTerminaConElContexto(t *testing.T) {
	store := testutil.NewStore(t)
	rec := &recordingReconciler{calls: make(chan string, 4)}
	w := reconciliation.NewWorker(rec, store.Repos.Notes, nil, zerolog.Nop(), workerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	w.Notify("nota-senalada")
	select {
	case id := <-rec.calls:
		assert.Equal(t, "nota-senalada", id)
	case <-time.After(5 * time.Second):
		t.Fatal("el worker no atendió la señal")
	}

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run no terminó tras cancelar el contexto")
	}
}

func TestWorker_SenalConLeaseCaidoQuedaRegistrada(t *testing.T) {
	store := testutil.NewStore(t)
	rec := &recordingReconciler{calls: make(chan string, 4)}
	out := &syncBuffer{}
	w := reconciliation.NewWorker(rec, store.Repos.Notes, brokenLocker{}, zerolog.New(out), workerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	w.Notify("nota-sin-lease")
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "nota-sin-lease")
	}, 5*time.Second, 10*time.Millisecond, "el error del lease debe quedar en el log con la nota")

	cancel()
	require.NoError(t, <-errCh)
	assert.Contains(t, out.String(), "connection refused")
	assert.Empty(t, rec.calls, "sin lease no se concilia")
}
