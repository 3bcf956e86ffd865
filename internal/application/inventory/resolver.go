package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/domain/repository"
)

const (
	defaultResolveAttempts = 3
	defaultUnitMeasure     = "UN"
)

// ProductFields datos descriptivos tomados de la línea de la nota, usados solo al crear.
type ProductFields struct {
	Name        string
	Category    string
	UnitMeasure string
}

// ProductResolver busca o crea el producto canónico para un código de negocio.
type ProductResolver struct {
	maxAttempts int
	now         func() time.Time
}

// NewProductResolver construye el resolver.
func NewProductResolver() *ProductResolver {
	return &ProductResolver{maxAttempts: defaultResolveAttempts, now: time.Now}
}

// ResolveOrCreate devuelve el producto con ese código exacto; si no existe lo crea con stock 0.
// Un producto existente se devuelve sin cambios: los datos fiscales nunca renombran el catálogo.
// Siempre se intenta insertar primero; la restricción única decide la carrera y, ante
// ErrResolutionConflict, se relee la fila ganadora. created indica si esta llamada insertó el producto.
func (r *ProductResolver) ResolveOrCreate(
	ctx context.Context,
	products repository.ProductRepository,
	code string,
	fields ProductFields,
) (product *entity.Product, created bool, err error) {
	if strings.TrimSpace(code) == "" {
		return nil, false, domain.ErrEmptyProductCode
	}
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		p := newCatalogProduct(code, fields, r.now())
		err := products.Create(ctx, p)
		if err == nil {
			return p, true, nil
		}
		if !errors.Is(err, domain.ErrResolutionConflict) {
			return nil, false, err
		}

		existing, err := products.GetByCode(ctx, code)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
		// El ganador aún no es visible (o se revirtió): nuevo intento.
	}
	return nil, false, fmt.Errorf("resolver producto %q tras %d intentos: %w", code, r.maxAttempts, domain.ErrTransactionAborted)
}

func newCatalogProduct(code string, fields ProductFields, now time.Time) *entity.Product {
	name := strings.TrimSpace(fields.Name)
	if name == "" {
		name = code
	}
	unit := strings.TrimSpace(fields.UnitMeasure)
	if unit == "" {
		unit = defaultUnitMeasure
	}
	return &entity.Product{
		ID:            uuid.New().String(),
		Code:          code,
		Name:          name,
		Category:      strings.TrimSpace(fields.Category),
		UnitMeasure:   unit,
		StockQuantity: decimal.Zero,
		Status:        entity.ProductStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
