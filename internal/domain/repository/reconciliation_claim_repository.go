package repository

import (
	"context"

	"github.com/jhoicas/logistica-api/internal/domain/entity"
)

// ReconciliationClaimRepository puerto del guard de idempotencia.
type ReconciliationClaimRepository interface {
	// TryInsert inserta el claim si no existe (ON CONFLICT DO NOTHING). Devuelve true si insertó.
	TryInsert(ctx context.Context, claim *entity.ReconciliationClaim) (bool, error)
	GetForUpdate(ctx context.Context, noteID string) (*entity.ReconciliationClaim, error)
	Get(ctx context.Context, noteID string) (*entity.ReconciliationClaim, error)
	Update(ctx context.Context, claim *entity.ReconciliationClaim) error
	// UpsertFailure registra un intento fallido sin pisar nunca un claim exitoso.
	UpsertFailure(ctx context.Context, claim *entity.ReconciliationClaim) error
	ListByOutcome(ctx context.Context, outcome string, limit, offset int) ([]*entity.ReconciliationClaim, error)
}
