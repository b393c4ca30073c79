// Package verifactu orquesta el ciclo de vida de los registros de
// facturación: generación encadenada, envío por lotes a la AEAT y
// reconciliación de la cadena local contra el libro remoto.
package verifactu

import (
	"context"
	"crypto/tls"

	"github.com/facturalia/verifactu-api/internal/domain/entity"
	"github.com/facturalia/verifactu-api/internal/domain/repository"
	"github.com/facturalia/verifactu-api/internal/infrastructure/aeat"
)

// Submitter define el puerto de salida hacia los servicios SOAP de la AEAT.
// La implementación real es aeat.Client; los tests inyectan un fake.
type Submitter interface {
	Submit(ctx context.Context, cert tls.Certificate, cab aeat.Cabecera,
		records []aeat.RegistroFactura) (*aeat.SubmitResponse, error)
	Cancel(ctx context.Context, cert tls.Certificate, cab aeat.Cabecera,
		requests []aeat.AnulacionRequest) (*aeat.CancelResponse, error)
	Query(ctx context.Context, cert tls.Certificate, cab aeat.Cabecera,
		filter aeat.QueryFilter) (*aeat.QueryResponse, error)
}

// CertLoader carga el certificado de cliente de una empresa en el momento
// del ciclo. El certificado no sobrevive a la llamada.
type CertLoader interface {
	Load(company *entity.Company) (tls.Certificate, error)
}

// TxRunner ejecuta un ciclo con el bloqueo de la empresa tomado y los repos
// atados a la transacción: si el callback falla, nada del ciclo persiste.
type TxRunner interface {
	RunCompanyCycle(ctx context.Context, companyID string, fn func(
		invoiceRepo repository.InvoiceRepository,
		chainRepo repository.ChainLinkRepository,
	) error) error
}
