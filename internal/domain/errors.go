package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Errores del motor de conciliación nota fiscal → inventario.
var (
	// ErrInvalidQuantity cantidad no positiva en una línea o ajuste. Reintentable tras corregir el dato.
	ErrInvalidQuantity = errors.New("cantidad inválida: debe ser mayor que cero")
	// ErrResolutionConflict carrera al crear el mismo código de producto; se resuelve releyendo.
	ErrResolutionConflict = errors.New("conflicto de unicidad al resolver producto")
	// ErrTransactionAborted cualquier fallo de almacenamiento; la conciliación queda pendiente de reintento.
	ErrTransactionAborted = errors.New("transacción abortada")
	// ErrEmptyProductCode línea sin código de producto: requiere corrección manual.
	ErrEmptyProductCode = errors.New("código de producto vacío")
	ErrNoteNotProcessed = errors.New("la nota fiscal no está en estado Processed")
	ErrNoteImmutable    = errors.New("la nota fiscal ya fue procesada y no admite cambios de estado")
)
