package reconciliation_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/logistica-api/internal/application/inventory"
	"github.com/jhoicas/logistica-api/internal/application/reconciliation"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	domaininv "github.com/jhoicas/logistica-api/internal/domain/inventory"
	"github.com/jhoicas/logistica-api/internal/testutil"
)

const testActor = "operador-fiscal"

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func newOrchestrator(store *testutil.Store) *reconciliation.Orchestrator {
	return reconciliation.NewOrchestrator(
		store.Tx,
		reconciliation.NewGuard(store.Tx),
		inventory.NewProductResolver(),
		inventory.NewStockLedger(zerolog.Nop()),
		zerolog.Nop(),
	)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func movementsOfNote(t *testing.T, store *testutil.Store, noteID string) []*entity.StockMovement {
	t.Helper()
	list, err := store.Repos.Movements.ListByNote(context.Background(), noteID)
	require.NoError(t, err)
	return list
}

func claimOf(t *testing.T, store *testutil.Store, noteID string) *entity.ReconciliationClaim {
	t.Helper()
	c, err := store.Repos.Claims.Get(context.Background(), noteID)
	require.NoError(t, err)
	return c
}

// assertReplay verifica que el stock del producto coincide con la suma de su libro.
func assertReplay(t *testing.T, store *testutil.Store, code string) {
	t.Helper()
	ctx := context.Background()
	p, err := store.Repos.Products.GetByCode(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, p)
	movs, err := store.Repos.Movements.ListByProduct(ctx, p.ID, 0, 0)
	require.NoError(t, err)
	replayed, broken := domaininv.Replay(movs)
	assert.Equal(t, -1, broken, "la cadena before/after de %s debe encadenar", code)
	assert.True(t, p.StockQuantity.Equal(replayed), "stock %s = %s, libro = %s", code, p.StockQuantity, replayed)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

// Caso 1: nota de entrada con un código nuevo → producto creado con stock 0 y entrada de 50.
func TestReconcile_CreaProductoYRegistraEntrada(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-1", Description: "Parafuso 10mm", Quantity: "50"})

	res, err := orch.Reconcile(context.Background(), note.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, reconciliation.OutcomeReconciled, res.Outcome)
	assert.Equal(t, 1, res.LinesApplied)
	assert.Equal(t, 1, res.ProductsCreated)

	p, err := store.Repos.Products.GetByCode(context.Background(), "PRD-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Parafuso 10mm", p.Name, "el nombre se toma de la descripción de la línea")
	assert.True(t, p.StockQuantity.Equal(dec("50")))

	movs := movementsOfNote(t, store, note.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementKindEntrada, movs[0].Kind)
	assert.True(t, movs[0].StockBefore.IsZero())
	assert.True(t, movs[0].StockAfter.Equal(dec("50")))
	assert.Equal(t, testActor, movs[0].Actor)

	claim := claimOf(t, store, note.ID)
	require.NotNil(t, claim)
	assert.Equal(t, entity.ClaimOutcomeSuccess, claim.Outcome)
	assert.Equal(t, 1, claim.LinesApplied)
	assertReplay(t, store, "PRD-1")
}

// Caso 2: repetir la conciliación del caso 1 no crea productos ni movimientos.
func TestReconcile_SegundaEjecucionEsNoOp(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-1", Quantity: "50"})

	_, err := orch.Reconcile(context.Background(), note.ID, testActor)
	require.NoError(t, err)

	res, err := orch.Reconcile(context.Background(), note.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, reconciliation.OutcomeAlreadyDone, res.Outcome)
	assert.Zero(t, res.LinesApplied)

	assert.Equal(t, 1, store.CountProducts(t, "PRD-1"))
	assert.Len(t, movementsOfNote(t, store, note.ID), 1)
	assert.True(t, store.Stock(t, "PRD-1").Equal(dec("50")))
}

// Caso 3: dos líneas del mismo código generan dos movimientos separados.
func TestReconcile_LineasRepetidasNoSeFusionan(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	store.CreateProduct(t, "PRD-1", "Parafuso", "50")
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-1", Quantity: "10"},
		testutil.Line{Code: "PRD-1", Quantity: "5"})

	res, err := orch.Reconcile(context.Background(), note.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LinesApplied)
	assert.Zero(t, res.ProductsCreated)

	movs := movementsOfNote(t, store, note.ID)
	require.Len(t, movs, 2)
	assert.True(t, movs[0].Quantity.Equal(dec("10")))
	assert.True(t, movs[1].Quantity.Equal(dec("5")))
	assert.True(t, movs[1].StockBefore.Equal(movs[0].StockAfter), "el segundo movimiento parte del primero")
	assert.True(t, store.Stock(t, "PRD-1").Equal(dec("65")))
	assertReplay(t, store, "PRD-1")
}

// Caso 4: cantidad negativa → ErrInvalidQuantity, sin movimientos, claim failed, reintentable.
func TestReconcile_CantidadInvalidaFallaYEsReintentable(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-9", Quantity: "-3"})

	res, err := orch.Reconcile(context.Background(), note.ID, testActor)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	require.NotNil(t, res)
	assert.Equal(t, reconciliation.OutcomeFailed, res.Outcome)

	assert.Empty(t, movementsOfNote(t, store, note.ID))
	assert.Zero(t, store.CountProducts(t, "PRD-9"))
	claim := claimOf(t, store, note.ID)
	require.NotNil(t, claim)
	assert.Equal(t, entity.ClaimOutcomeFailed, claim.Outcome)
	assert.Equal(t, 1, claim.Attempts)
	assert.Contains(t, claim.LastError, "cantidad inválida")

	// Corrección del dato y reintento.
	_, err = store.DB.Exec(`UPDATE fiscal_note_lines SET quantity = '3' WHERE note_id = ?`, note.ID)
	require.NoError(t, err)

	res, err = orch.Reconcile(context.Background(), note.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, reconciliation.OutcomeReconciled, res.Outcome)
	assert.True(t, store.Stock(t, "PRD-9").Equal(dec("3")))

	claim = claimOf(t, store, note.ID)
	assert.Equal(t, entity.ClaimOutcomeSuccess, claim.Outcome)
	assert.Equal(t, 2, claim.Attempts)
	assert.Empty(t, claim.LastError)
}

// Caso 5: nota de salida → nada que procesar, sin cambios en catálogo ni libro.
func TestReconcile_NotaDeSalidaNoProcesa(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	note := store.CreateNote(t, entity.OperationOutbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-5", Quantity: "7"})

	res, err := orch.Reconcile(context.Background(), note.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, reconciliation.OutcomeNothingToProcess, res.Outcome)
	assert.Zero(t, store.CountProducts(t, "PRD-5"))
	assert.Empty(t, movementsOfNote(t, store, note.ID))

	res, err = orch.Reconcile(context.Background(), note.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, reconciliation.OutcomeAlreadyDone, res.Outcome)
}

func TestReconcile_NotaNoProcesadaOInexistente(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusPending,
		testutil.Line{Code: "PRD-1", Quantity: "1"})

	_, err := orch.Reconcile(context.Background(), note.ID, testActor)
	assert.ErrorIs(t, err, domain.ErrNoteNotProcessed)
	assert.Nil(t, claimOf(t, store, note.ID), "sin claim: la nota no llegó a conciliarse")

	_, err = orch.Reconcile(context.Background(), "00000000-0000-0000-0000-0000000000ff", testActor)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades
// ──────────────────────────────────────────────────────────────────────────────

// Atomicidad: una nota de 3 líneas que falla en la línea 3 no deja ningún movimiento.
func TestReconcile_FalloEnLineaTresNoDejaMovimientos(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	store.CreateProduct(t, "PRD-A", "Existente", "10")
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-A", Quantity: "4"},
		testutil.Line{Code: "PRD-NUEVO", Quantity: "2"},
		testutil.Line{Code: "", Quantity: "1"})

	res, err := orch.Reconcile(context.Background(), note.ID, testActor)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyProductCode)
	assert.Contains(t, err.Error(), "línea 3")
	assert.Equal(t, reconciliation.OutcomeFailed, res.Outcome)

	assert.Empty(t, movementsOfNote(t, store, note.ID), "cero movimientos, no dos")
	assert.True(t, store.Stock(t, "PRD-A").Equal(dec("10")))
	assert.Zero(t, store.CountProducts(t, "PRD-NUEVO"), "el producto creado en la línea 2 también se revierte")

	lines, err := store.Repos.Notes.ListLines(context.Background(), note.ID)
	require.NoError(t, err)
	for _, l := range lines {
		assert.False(t, l.Processed, "línea %d no debe quedar marcada", l.LineNumber)
	}
	assertReplay(t, store, "PRD-A")
}

// Idempotencia concurrente: N conciliaciones simultáneas de la misma nota aplican una sola vez.
func TestReconcile_ConcurrenteMismaNotaAplicaUnaVez(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	note := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-C", Quantity: "8"},
		testutil.Line{Code: "PRD-D", Quantity: "2"})

	const workers = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[reconciliation.Outcome]int{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := orch.Reconcile(context.Background(), note.ID, testActor)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			outcomes[res.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, outcomes[reconciliation.OutcomeReconciled])
	assert.Equal(t, workers-1, outcomes[reconciliation.OutcomeAlreadyDone])
	assert.Len(t, movementsOfNote(t, store, note.ID), 2)
	assert.True(t, store.Stock(t, "PRD-C").Equal(dec("8")))
	assert.True(t, store.Stock(t, "PRD-D").Equal(dec("2")))
}

// Unicidad: dos notas distintas con el mismo código nuevo crean un único producto.
func TestReconcile_ConcurrenteMismoCodigoNuevoUnSoloProducto(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	a := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-NEW", Quantity: "3"})
	b := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-NEW", Quantity: "4"})

	var wg sync.WaitGroup
	for _, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := orch.Reconcile(context.Background(), id, testActor)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, store.CountProducts(t, "PRD-NEW"))
	assert.True(t, store.Stock(t, "PRD-NEW").Equal(dec("7")))
	assertReplay(t, store, "PRD-NEW")
}

// Independencia de orden: A y B en paralelo dejan el mismo estado que en cualquier orden secuencial.
func TestReconcile_OrdenIndependiente(t *testing.T) {
	build := func(t *testing.T) (*testutil.Store, *entity.FiscalNote, *entity.FiscalNote) {
		store := testutil.NewStore(t)
		store.CreateProduct(t, "PRD-X", "X", "1")
		store.CreateProduct(t, "PRD-Y", "Y", "2")
		a := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
			testutil.Line{Code: "PRD-X", Quantity: "10"})
		b := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
			testutil.Line{Code: "PRD-Y", Quantity: "20"})
		return store, a, b
	}
	final := func(t *testing.T, store *testutil.Store) [2]string {
		return [2]string{store.Stock(t, "PRD-X").String(), store.Stock(t, "PRD-Y").String()}
	}

	ctx := context.Background()

	s1, a1, b1 := build(t)
	o1 := newOrchestrator(s1)
	_, err := o1.Reconcile(ctx, a1.ID, testActor)
	require.NoError(t, err)
	_, err = o1.Reconcile(ctx, b1.ID, testActor)
	require.NoError(t, err)

	s2, a2, b2 := build(t)
	o2 := newOrchestrator(s2)
	_, err = o2.Reconcile(ctx, b2.ID, testActor)
	require.NoError(t, err)
	_, err = o2.Reconcile(ctx, a2.ID, testActor)
	require.NoError(t, err)

	s3, a3, b3 := build(t)
	o3 := newOrchestrator(s3)
	var wg sync.WaitGroup
	for _, id := range []string{a3.ID, b3.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := o3.Reconcile(ctx, id, testActor)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	want := [2]string{"11", "22"}
	assert.Equal(t, want, final(t, s1))
	assert.Equal(t, want, final(t, s2))
	assert.Equal(t, want, final(t, s3))
}

// Reconstrucción: tras mezclar conciliaciones y ajustes manuales el stock sigue cuadrando con el libro.
func TestReconcile_InvarianteDeReconstruccion(t *testing.T) {
	store := testutil.NewStore(t)
	orch := newOrchestrator(store)
	ctx := context.Background()
	register := inventory.NewRegisterMovementUseCase(store.Tx, inventory.NewStockLedger(zerolog.Nop()))

	n1 := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-R", Quantity: "12.5"})
	_, err := orch.Reconcile(ctx, n1.ID, testActor)
	require.NoError(t, err)

	p, err := store.Repos.Products.GetByCode(ctx, "PRD-R")
	require.NoError(t, err)
	_, err = register.RegisterMovement(ctx, inventory.MovementInputDTO{
		UserID: "bodega-1", ProductID: p.ID, Type: entity.MovementKindSaida,
		Quantity: dec("20"), Reason: "despacho",
	})
	require.NoError(t, err)
	assert.True(t, store.Stock(t, "PRD-R").Equal(dec("-7.5")), "el stock negativo se registra")

	n2 := store.CreateNote(t, entity.OperationInbound, entity.NoteStatusProcessed,
		testutil.Line{Code: "PRD-R", Quantity: "10"})
	_, err = orch.Reconcile(ctx, n2.ID, testActor)
	require.NoError(t, err)

	assert.True(t, store.Stock(t, "PRD-R").Equal(dec("2.5")))
	assertReplay(t, store, "PRD-R")
}
