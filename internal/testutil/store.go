// Package testutil arma una base SQLite temporal con el esquema completo para pruebas de integración.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/logistica-api/internal/application/inventory"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/infrastructure/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Store base temporal: TxRunner real y repositorios fuera de transacción para verificar estado.
type Store struct {
	DB    *sql.DB
	Tx    *sqlite.TxRunner
	Repos inventory.Repos
}

// NewStore crea la base en t.TempDir(); se cierra al terminar la prueba.
func NewStore(t testing.TB) *Store {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "logistica.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{DB: db, Tx: sqlite.NewTxRunner(db), Repos: sqlite.NewRepos(db)}
}

// Line datos mínimos de una línea de nota.
type Line struct {
	Code        string
	Description string
	Quantity    string
	UnitMeasure string
}

// CreateNote inserta una nota con sus líneas numeradas en el orden recibido.
func (s *Store) CreateNote(t testing.TB, operation, status string, lines ...Line) *entity.FiscalNote {
	t.Helper()
	now := time.Now()
	n := &entity.FiscalNote{
		ID:                uuid.New().String(),
		Number:            fmt.Sprintf("%06d", now.Nanosecond()%1000000),
		Series:            "1",
		AccessKey:         uuid.New().String(),
		CounterpartyTaxID: "12345678000190",
		CounterpartyName:  "Fornecedor Teste Ltda",
		IssueDate:         now,
		OperationKind:     operation,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	total := decimal.Zero
	list := make([]*entity.FiscalNoteLine, 0, len(lines))
	for i, l := range lines {
		qty := decimal.RequireFromString(l.Quantity)
		unit := decimal.NewFromInt(10)
		list = append(list, &entity.FiscalNoteLine{
			LineNumber:  i + 1,
			ProductCode: l.Code,
			Description: l.Description,
			UnitMeasure: l.UnitMeasure,
			Quantity:    qty,
			UnitValue:   unit,
			LineTotal:   qty.Mul(unit),
		})
		total = total.Add(qty.Mul(unit))
	}
	n.TotalValue = total
	err := s.Tx.Run(context.Background(), func(ctx context.Context, repos inventory.Repos) error {
		return repos.Notes.Create(ctx, n, list)
	})
	require.NoError(t, err)
	return n
}

// CreateProduct inserta un producto y, si stock != 0, lo lleva a esa cantidad con un ajuste en el
// libro para que la reconstrucción siga cuadrando.
func (s *Store) CreateProduct(t testing.TB, code, name, stock string) *entity.Product {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	p := &entity.Product{
		ID:            uuid.New().String(),
		Code:          code,
		Name:          name,
		UnitMeasure:   "UN",
		StockQuantity: decimal.Zero,
		Status:        entity.ProductStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.Repos.Products.Create(ctx, p))

	qty := decimal.RequireFromString(stock)
	if qty.IsZero() {
		return p
	}
	dir := entity.DirectionIn
	if qty.IsNegative() {
		dir = entity.DirectionOut
	}
	ledger := inventory.NewStockLedger(zerolog.Nop())
	err := s.Tx.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		_, err := ledger.Append(ctx, repos, inventory.AppendInput{
			ProductID:  p.ID,
			Kind:       entity.MovementKindAjuste,
			Direction:  dir,
			Quantity:   qty.Abs(),
			Reason:     "saldo inicial",
			Actor:      "testutil",
			OccurredAt: now,
		})
		return err
	})
	require.NoError(t, err)
	p.StockQuantity = qty
	return p
}

// Stock cantidad actual del producto con ese código.
func (s *Store) Stock(t testing.TB, code string) decimal.Decimal {
	t.Helper()
	p, err := s.Repos.Products.GetByCode(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, p, "producto %q no existe", code)
	return p.StockQuantity
}

// CountProducts cantidad de productos con ese código exacto.
func (s *Store) CountProducts(t testing.TB, code string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB.QueryRow(`SELECT count(*) FROM products WHERE code = ?`, code).Scan(&n))
	return n
}
