package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/logistica-api/internal/application/dto"
)

const replenishmentScanLimit = 500

// ReplenishmentUseCase genera la lista de reposición a partir de los umbrales mínimo/máximo
// que define el operador.
type ReplenishmentUseCase struct {
	repos Repos
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(repos Repos) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{repos: repos}
}

// GenerateReplenishmentList devuelve los productos bajo su mínimo con la cantidad sugerida
// para alcanzar el máximo (o el mínimo si no hay máximo), ordenados por déficit relativo.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context) ([]dto.ReplenishmentSuggestionDTO, error) {
	products, err := uc.repos.Products.ListBelowMinimum(ctx, replenishmentScanLimit)
	if err != nil {
		return nil, err
	}
	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(products))
	for _, p := range products {
		if p.MinStock == nil {
			continue
		}
		target := *p.MinStock
		if p.MaxStock != nil && p.MaxStock.GreaterThan(target) {
			target = *p.MaxStock
		}
		qty := target.Sub(p.StockQuantity)
		if qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			ProductID:         p.ID,
			Code:              p.Code,
			ProductName:       p.Name,
			CurrentStock:      p.StockQuantity,
			MinStock:          *p.MinStock,
			TargetStock:       target,
			SuggestedOrderQty: qty,
		})
	}

	// Mayor déficit relativo bajo el mínimo primero; empate por déficit absoluto.
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		ra, rb := relativeDeficit(a), relativeDeficit(b)
		if !ra.Equal(rb) {
			return ra.GreaterThan(rb)
		}
		return a.MinStock.Sub(a.CurrentStock).GreaterThan(b.MinStock.Sub(b.CurrentStock))
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

func relativeDeficit(s dto.ReplenishmentSuggestionDTO) decimal.Decimal {
	if !s.MinStock.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	return s.MinStock.Sub(s.CurrentStock).Div(s.MinStock)
}
