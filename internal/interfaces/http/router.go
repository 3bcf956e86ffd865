package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/logistica-api/internal/application/fiscal"
	"github.com/jhoicas/logistica-api/internal/application/inventory"
	"github.com/jhoicas/logistica-api/internal/application/reconciliation"
	"github.com/jhoicas/logistica-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	NoteStatus       *fiscal.StatusUseCase
	Reconciler       reconciliation.Reconciler
	ReconcileStatus  *reconciliation.StatusQuery
	Catalog          *inventory.CatalogUseCase
	VerifyStock      *inventory.VerifyStockUseCase
	Replenishment    *inventory.ReplenishmentUseCase
	RegisterMovement *inventory.RegisterMovementUseCase
	JWTSecret        string
	JWTIssuer        string
}

// Router registra las rutas de la API. Todas requieren Bearer Token; las escrituras además un rol.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	fiscalWrite := RequireRole(jwt.RoleAdmin, jwt.RoleFiscal)
	stockWrite := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)

	// Notas fiscales y conciliación
	noteHandler := NewFiscalNoteHandler(deps.NoteStatus, deps.Reconciler, deps.ReconcileStatus, deps.Catalog)
	notes := api.Group("/fiscal-notes")
	notes.Patch("/:id/status", fiscalWrite, noteHandler.UpdateStatus)
	notes.Post("/:id/reconcile", fiscalWrite, noteHandler.Reconcile)
	notes.Get("/:id/reconciliation", noteHandler.Reconciliation)
	notes.Get("/:id/movements", noteHandler.Movements)
	api.Get("/reconciliations/failed", noteHandler.ListFailed)

	// Productos (solo lectura; el stock cambia únicamente por el libro)
	productHandler := NewProductHandler(deps.Catalog, deps.VerifyStock, deps.Replenishment)
	products := api.Group("/products")
	products.Get("/", productHandler.List)
	products.Get("/low-stock", productHandler.LowStock)
	products.Get("/:id", productHandler.GetByID)
	products.Get("/:id/movements", productHandler.Movements)
	products.Get("/:id/verify", productHandler.Verify)

	// Movimientos manuales
	inventoryHandler := NewInventoryHandler(deps.RegisterMovement)
	api.Post("/inventory/movements", stockWrite, inventoryHandler.RegisterMovement)
}
