package dto

import "time"

// SubmissionReport resume un ciclo de envío de una empresa: cuántas facturas
// había pendientes y cómo quedó cada una. Las facturas con error de
// validación se excluyen del lote sin abortar el resto; los duplicados
// (códigos 3000/3001) no se reencolan.
type SubmissionReport struct {
	CompanyID          string `json:"company_id"`
	Pending            int    `json:"pending"`
	Accepted           int    `json:"accepted"`
	AcceptedWithErrors int    `json:"accepted_with_errors"`
	Rejected           int    `json:"rejected"`
	Duplicates         int    `json:"duplicates"`
	ValidationFailed   int    `json:"validation_failed"`
	Batches            int    `json:"batches"`
}

// ReconcileReport resume una reconciliación contra el libro de la AEAT:
// registros remotos que ya casaban con la cadena local y huellas remotas
// importadas como eslabones nuevos.
type ReconcileReport struct {
	CompanyID       string `json:"company_id"`
	MonthsScanned   int    `json:"months_scanned"`
	Matched         int    `json:"matched"`
	Imported        int    `json:"imported"`
	HeadFingerprint string `json:"head_fingerprint,omitempty"` // cabeza tras reconciliar
}

// ChainLinkResponse un eslabón de la cadena de una factura.
type ChainLinkResponse struct {
	ID           string    `json:"id"`
	Fingerprint  string    `json:"fingerprint"`
	SeriesNumber string    `json:"series_number"`
	IssueDate    string    `json:"issue_date"` // DD-MM-YYYY
	State        string    `json:"state"`
	Code         int       `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
	CSV          string    `json:"csv,omitempty"`
	SubmitOrder  int64     `json:"submit_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// InvoiceRecordResponse el estado de registro de una factura con su historial.
type InvoiceRecordResponse struct {
	InvoiceID    string              `json:"invoice_id"`
	SeriesNumber string              `json:"series_number"`
	State        string              `json:"state"`
	PendingSend  bool                `json:"pending_send"`
	Links        []ChainLinkResponse `json:"links"`
}

// QRResponse la URL de cotejo que debe incorporarse al QR de la factura.
type QRResponse struct {
	InvoiceID string `json:"invoice_id"`
	URL       string `json:"url"`
}
