package repository

import "github.com/facturalia/verifactu-api/internal/domain/entity"

// ChainLinkRepository define el puerto de persistencia de la cadena de
// huellas. La tabla es append-only: no hay Update ni Delete.
type ChainLinkRepository interface {
	// Append añade un eslabón asignándole el siguiente SubmitOrder de la
	// empresa. Debe ser atómico frente a appends concurrentes de la misma
	// empresa para no bifurcar la cadena.
	Append(link *entity.ChainLink) error
	// Head devuelve el eslabón con mayor SubmitOrder cuyo estado no está
	// superado (rechazado/anulado); nil si la empresa no tiene cadena.
	Head(companyID string) (*entity.ChainLink, error)
	// GetByFingerprint busca un eslabón por huella dentro de una empresa.
	GetByFingerprint(companyID, fingerprint string) (*entity.ChainLink, error)
	// ListByInvoice devuelve los eslabones de una factura, más reciente primero.
	ListByInvoice(invoiceID string) ([]*entity.ChainLink, error)
}
