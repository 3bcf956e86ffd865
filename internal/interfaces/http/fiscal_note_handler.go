package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/logistica-api/internal/application/dto"
	"github.com/jhoicas/logistica-api/internal/application/fiscal"
	"github.com/jhoicas/logistica-api/internal/application/inventory"
	"github.com/jhoicas/logistica-api/internal/application/reconciliation"
)

// FiscalNoteHandler estado de notas fiscales y su conciliación con el inventario (protegido).
type FiscalNoteHandler struct {
	status     *fiscal.StatusUseCase
	reconciler reconciliation.Reconciler
	query      *reconciliation.StatusQuery
	catalog    *inventory.CatalogUseCase
}

// NewFiscalNoteHandler construye el handler.
func NewFiscalNoteHandler(
	status *fiscal.StatusUseCase,
	reconciler reconciliation.Reconciler,
	query *reconciliation.StatusQuery,
	catalog *inventory.CatalogUseCase,
) *FiscalNoteHandler {
	return &FiscalNoteHandler{status: status, reconciler: reconciler, query: query, catalog: catalog}
}

// UpdateStatus godoc
// @Summary      Cambiar estado de la nota fiscal
// @Description  Al pasar a Processed concilia la nota con el inventario en la misma petición.
//               Un fallo de conciliación no revierte el estado: se informa en "reconciliation".
// @Tags         fiscal-notes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID de la nota"
// @Param        body  body  dto.UpdateNoteStatusRequest  true  "Nuevo estado"
// @Success      200   {object}  dto.NoteStatusChangeDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/fiscal-notes/{id}/status [patch]
func (h *FiscalNoteHandler) UpdateStatus(c *fiber.Ctx) error {
	id, errResp := pathID(c)
	if errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}
	var in dto.UpdateNoteStatusRequest
	if errResp := bindBody(c, &in); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}
	out, err := h.status.SetStatus(c.UserContext(), id, in.Status, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Reconcile godoc
// @Summary      Conciliar (o reintentar) una nota Processed
// @Tags         fiscal-notes
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la nota"
// @Success      200  {object}  dto.ReconciliationResultDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/fiscal-notes/{id}/reconcile [post]
func (h *FiscalNoteHandler) Reconcile(c *fiber.Ctx) error {
	id, errResp := pathID(c)
	if errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}
	res, err := h.reconciler.Reconcile(c.UserContext(), id, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res.DTO())
}

// Reconciliation godoc
// @Summary      Estado de conciliación de la nota
// @Description  outcome "success" = stock reflejado; "failed" o "none" = stock aún no reflejado.
// @Tags         fiscal-notes
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la nota"
// @Success      200  {object}  dto.ReconciliationStatusDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fiscal-notes/{id}/reconciliation [get]
func (h *FiscalNoteHandler) Reconciliation(c *fiber.Ctx) error {
	id, errResp := pathID(c)
	if errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}
	out, err := h.query.Status(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Movements godoc
// @Summary      Movimientos de stock originados por la nota
// @Tags         fiscal-notes
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la nota"
// @Success      200  {array}   dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fiscal-notes/{id}/movements [get]
func (h *FiscalNoteHandler) Movements(c *fiber.Ctx) error {
	id, errResp := pathID(c)
	if errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}
	out, err := h.catalog.ListNoteMovements(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListFailed godoc
// @Summary      Conciliaciones fallidas (stock no reflejado)
// @Tags         fiscal-notes
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Máx. resultados (default 20, max 100)"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {array}   dto.ReconciliationStatusDTO
// @Router       /api/reconciliations/failed [get]
func (h *FiscalNoteHandler) ListFailed(c *fiber.Ctx) error {
	page, errResp := bindPage(c)
	if errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}
	out, err := h.query.ListFailed(c.UserContext(), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}
