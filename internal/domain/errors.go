package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")

	// ErrMissingCertificate la empresa no tiene certificado configurado.
	ErrMissingCertificate = errors.New("certificado AEAT no configurado")
	// ErrVerifactuDisabled la empresa no está habilitada o no tiene fecha de alta.
	ErrVerifactuDisabled = errors.New("VERI*FACTU no habilitado para la empresa")
	// ErrChainDivergence la consulta a la AEAT devolvió un registro que no
	// casa con ninguna factura local: detener el ciclo de la empresa.
	ErrChainDivergence = errors.New("divergencia entre la cadena local y el registro de la AEAT")
	// ErrChainBusy otro ciclo de envío tiene tomada la cadena de la empresa.
	ErrChainBusy = errors.New("ciclo de envío en curso para la empresa")
)
