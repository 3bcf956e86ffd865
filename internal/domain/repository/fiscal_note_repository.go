package repository

import (
	"context"
	"time"

	"github.com/jhoicas/logistica-api/internal/domain/entity"
)

// FiscalNoteRepository puerto de lectura de notas fiscales y de marcado de líneas.
// La creación de notas pertenece a la ingesta de documentos; Create existe para semillas y pruebas.
type FiscalNoteRepository interface {
	Create(ctx context.Context, note *entity.FiscalNote, lines []*entity.FiscalNoteLine) error
	GetByID(ctx context.Context, id string) (*entity.FiscalNote, error)
	// GetForUpdate bloquea la cabecera (cambio de estado).
	GetForUpdate(ctx context.Context, id string) (*entity.FiscalNote, error)
	UpdateStatus(ctx context.Context, id, status string, at time.Time) error
	// ListLines devuelve las líneas en su orden almacenado (line_number).
	ListLines(ctx context.Context, noteID string) ([]*entity.FiscalNoteLine, error)
	MarkLineProcessed(ctx context.Context, lineID, productID string, at time.Time) error
	// ListPendingReconciliation notas Processed de entrada sin claim exitoso y con menos de
	// maxAttempts intentos fallidos, más antiguas primero.
	ListPendingReconciliation(ctx context.Context, maxAttempts, limit int) ([]string, error)
}
