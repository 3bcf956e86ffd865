package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
)

// ProductResponse salida de un producto del catálogo.
type ProductResponse struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	UnitMeasure   string           `json:"unit_measure"`
	StockQuantity decimal.Decimal  `json:"stock_quantity"`
	MinStock      *decimal.Decimal `json:"min_stock"`
	MaxStock      *decimal.Decimal `json:"max_stock"`
	Status        string           `json:"status"`
	BelowMinimum  bool             `json:"below_minimum"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// ToProductResponse convierte la entidad a su representación HTTP.
func ToProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Code:          p.Code,
		Name:          p.Name,
		Category:      p.Category,
		UnitMeasure:   p.UnitMeasure,
		StockQuantity: p.StockQuantity,
		MinStock:      p.MinStock,
		MaxStock:      p.MaxStock,
		Status:        p.Status,
		BelowMinimum:  p.BelowMinimum(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
