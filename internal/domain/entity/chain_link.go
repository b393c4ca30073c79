package entity

import (
	"time"

	"github.com/facturalia/verifactu-api/internal/domain/verifactu"
)

// ChainLink es un eslabón de la cadena de huellas de una empresa: un registro
// de facturación ya generado, con la huella que viajó (o viajará) a la AEAT.
// La tabla es append-only; la historia nunca se reescribe.
type ChainLink struct {
	ID        string
	CompanyID string

	Fingerprint string // huella SHA-256 en mayúsculas (64 hex)

	// Identidad de la factura que respalda el eslabón. InvoiceID vacío en
	// eslabones importados de la AEAT durante la reconciliación.
	InvoiceID    string
	SeriesNumber string
	IssueDate    time.Time
	IssuerTaxID  string

	State                verifactu.RecordState
	CommunicationCode    int    // CodigoErrorRegistro devuelto; 0 si no hubo
	CommunicationMessage string // DescripcionErrorRegistro
	CSV                  string // código seguro de verificación del acuse

	// SubmitOrder es el orden de generación dentro de la empresa. Lo asigna
	// el repositorio en el Append; define quién es la cabeza de la cadena.
	SubmitOrder int64

	CreatedAt time.Time
}

// Superseded indica si el eslabón ya no puede ser predecesor de la cadena:
// los rechazados y anulados se saltan al buscar la huella anterior. Un
// duplicado también: la AEAT rechazó esa huella porque ya tiene anotada
// otra para la misma factura, así que la local nunca quedó registrada.
func (l *ChainLink) Superseded() bool {
	return l.State == verifactu.StateRejected || l.State == verifactu.StateCancelled ||
		l.State == verifactu.StateDuplicated
}
