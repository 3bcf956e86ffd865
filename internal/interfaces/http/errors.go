package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/go-playground/validator/v10"
	"github.com/jhoicas/logistica-api/internal/application/dto"
	"github.com/jhoicas/logistica-api/internal/domain"
)

var validate = validator.New()

// bindBody decodifica el body y aplica las etiquetas validate del DTO.
// Devuelve nil si el request es válido.
func bindBody(c *fiber.Ctx, out any) *dto.ErrorResponse {
	if err := c.BodyParser(out); err != nil {
		return &dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"}
	}
	if err := validate.Struct(out); err != nil {
		return &dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	}
	return nil
}

// bindPage lee limit/offset del query string.
func bindPage(c *fiber.Ctx) (dto.PageRequest, *dto.ErrorResponse) {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return page, &dto.ErrorResponse{Code: "INVALID_PARAMS", Message: "parámetros de consulta inválidos"}
	}
	page.DefaultPage()
	if err := validate.Struct(page); err != nil {
		return page, &dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	}
	return page, nil
}

// writeError traduce errores de dominio a la respuesta HTTP.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrInvalidQuantity):
		status, code = fiber.StatusBadRequest, "INVALID_QUANTITY"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrNoteImmutable):
		status, code = fiber.StatusConflict, "NOTE_IMMUTABLE"
	case errors.Is(err, domain.ErrNoteNotProcessed), errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrEmptyProductCode):
		status, code = fiber.StatusUnprocessableEntity, "EMPTY_PRODUCT_CODE"
	case errors.Is(err, domain.ErrTransactionAborted):
		status, code = fiber.StatusServiceUnavailable, "RECONCILIATION_PENDING_RETRY"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

// pathID valida que el parámetro :id sea un UUID.
func pathID(c *fiber.Ctx) (string, *dto.ErrorResponse) {
	id := c.Params("id")
	if err := validate.Var(id, "required,uuid"); err != nil {
		return "", &dto.ErrorResponse{Code: "VALIDATION", Message: "id debe ser un UUID"}
	}
	return id, nil
}
