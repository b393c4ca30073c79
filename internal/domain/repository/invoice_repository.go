package repository

import (
	"time"

	"github.com/facturalia/verifactu-api/internal/domain/entity"
	"github.com/facturalia/verifactu-api/internal/domain/verifactu"
)

// InvoiceRepository define el puerto de persistencia para la proyección de
// facturas emitidas. Solo lectura de los campos del registro + escritura del
// estado VERI*FACTU; la factura contable pertenece al ERP anfitrión.
type InvoiceRepository interface {
	GetByID(id string) (*entity.Invoice, error)
	// GetBySeriesNumber localiza la factura de una empresa por su número de serie.
	GetBySeriesNumber(companyID, seriesNumber string) (*entity.Invoice, error)
	// GetBySeriesNumberInRange localiza por número de serie dentro de un rango
	// de fechas de expedición (usado al casar respuestas de consulta por mes).
	GetBySeriesNumberInRange(companyID, seriesNumber string, from, to time.Time) (*entity.Invoice, error)
	// ListPending devuelve las facturas pendientes de envío o subsanación,
	// ordenadas por fecha de expedición ascendente.
	ListPending(companyID string) ([]*entity.Invoice, error)
	// UpdateState fija el estado VERI*FACTU y el flag de pendiente.
	UpdateState(invoiceID string, state verifactu.RecordState, pending bool) error
}
