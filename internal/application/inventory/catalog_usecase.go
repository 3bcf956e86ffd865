package inventory

import (
	"context"

	"github.com/jhoicas/logistica-api/internal/application/dto"
	"github.com/jhoicas/logistica-api/internal/domain"
)

// CatalogUseCase consultas de solo lectura sobre catálogo y libro de movimientos.
type CatalogUseCase struct {
	repos Repos
}

// NewCatalogUseCase construye el caso de uso con repositorios atados al pool.
func NewCatalogUseCase(repos Repos) *CatalogUseCase {
	return &CatalogUseCase{repos: repos}
}

// ListProducts lista productos con paginación.
func (uc *CatalogUseCase) ListProducts(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	list, err := uc.repos.Products.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, dto.ToProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// GetProduct obtiene un producto por ID.
func (uc *CatalogUseCase) GetProduct(ctx context.Context, id string) (*dto.ProductResponse, error) {
	p, err := uc.repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	out := dto.ToProductResponse(p)
	return &out, nil
}

// ListProductMovements historial de movimientos de un producto en orden cronológico.
func (uc *CatalogUseCase) ListProductMovements(ctx context.Context, productID string, page dto.PageRequest) ([]dto.MovementResponse, error) {
	page.DefaultPage()
	p, err := uc.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	list, err := uc.repos.Movements.ListByProduct(ctx, productID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return dto.ToMovementResponses(list), nil
}

// ListNoteMovements movimientos originados por una nota fiscal.
func (uc *CatalogUseCase) ListNoteMovements(ctx context.Context, noteID string) ([]dto.MovementResponse, error) {
	note, err := uc.repos.Notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, domain.ErrNotFound
	}
	list, err := uc.repos.Movements.ListByNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	return dto.ToMovementResponses(list), nil
}
