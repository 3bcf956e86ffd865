package fiscal_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/logistica-api/internal/application/fiscal"
	"github.com/jhoicas/logistica-api/internal/application/inventory"
	"github.com/jhoicas/logistica-api/internal/application/reconciliation"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/testutil"
)

func newStatusUseCase(store *testutil.Store) *fiscal.StatusUseCase {
	orch := reconciliation.NewOrchestrator(
		store.Tx,
		reconciliation.NewGuard(store.Tx),
		inventory.NewProductResolver(),
		inventory.NewStockLedger(zerolog.Nop()),
		zerolog.Nop(),
	)
	return fiscal.NewStatusUseCase(store.Tx, orch, zerolog.Nop())
}

func TestSetStatus_ProcessedDisparaConciliacion(t *testing.T) {
	store := testutil.NewStore(t)
	uc := newStatusUseCase(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusPending,
		testutil.Line{Code: "PRD-1", Quantity: "50"})

	out, err := uc.SetStatus(context.Background(), note.ID, entity.NoteStatusProcessed, "fiscal-1")
	require.NoError(t, err)
	assert.Equal(t, entity.NoteStatusProcessed, out.Status)
	require.NotNil(t, out.Reconciliation)
	assert.Equal(t, string(reconciliation.OutcomeReconciled), out.Reconciliation.Outcome)
	assert.True(t, store.Stock(t, "PRD-1").Equal(decimal.NewFromInt(50)))
}

func TestSetStatus_OtrosEstadosNoConcilian(t *testing.T) {
	store := testutil.NewStore(t)
	uc := newStatusUseCase(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusPending,
		testutil.Line{Code: "PRD-2", Quantity: "1"})

	out, err := uc.SetStatus(context.Background(), note.ID, entity.NoteStatusProcessing, "fiscal-1")
	require.NoError(t, err)
	assert.Nil(t, out.Reconciliation)
	assert.Zero(t, store.CountProducts(t, "PRD-2"))
}

func TestSetStatus_FalloDeConciliacionNoRevierteEstado(t *testing.T) {
	store := testutil.NewStore(t)
	uc := newStatusUseCase(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusPending,
		testutil.Line{Code: "", Quantity: "1"})

	out, err := uc.SetStatus(context.Background(), note.ID, entity.NoteStatusProcessed, "fiscal-1")
	require.NoError(t, err, "el cambio de estado se confirma aunque la conciliación falle")
	require.NotNil(t, out.Reconciliation)
	assert.Equal(t, string(reconciliation.OutcomeFailed), out.Reconciliation.Outcome)
	assert.Contains(t, out.Reconciliation.Error, "código de producto vacío")

	stored, err := store.Repos.Notes.GetByID(context.Background(), note.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.NoteStatusProcessed, stored.Status)
}

func TestSetStatus_NotaProcesadaEsInmutable(t *testing.T) {
	store := testutil.NewStore(t)
	uc := newStatusUseCase(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-3", Quantity: "1"})

	_, err := uc.SetStatus(context.Background(), note.ID, entity.NoteStatusCancelled, "fiscal-1")
	assert.ErrorIs(t, err, domain.ErrNoteImmutable)
}

func TestSetStatus_EntradaInvalida(t *testing.T) {
	store := testutil.NewStore(t)
	uc := newStatusUseCase(store)

	_, err := uc.SetStatus(context.Background(), "", entity.NoteStatusProcessed, "fiscal-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusPending)
	_, err = uc.SetStatus(context.Background(), note.ID, "Aprovada", "fiscal-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.SetStatus(context.Background(), "00000000-0000-0000-0000-0000000000bb", entity.NoteStatusProcessed, "fiscal-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
