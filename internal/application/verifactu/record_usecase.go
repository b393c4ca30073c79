package verifactu

import (
	"github.com/facturalia/verifactu-api/internal/application/dto"
	"github.com/facturalia/verifactu-api/internal/domain"
	"github.com/facturalia/verifactu-api/internal/domain/repository"
	domvf "github.com/facturalia/verifactu-api/internal/domain/verifactu"
	pkgaeat "github.com/facturalia/verifactu-api/pkg/aeat"
)

// RecordUseCase lecturas del registro: historial de eslabones de una factura
// y URL de cotejo para el QR tributario.
type RecordUseCase struct {
	companyRepo repository.CompanyRepository
	invoiceRepo repository.InvoiceRepository
	chainRepo   repository.ChainLinkRepository
	production  bool
}

// NewRecordUseCase construye el caso de uso de lectura.
func NewRecordUseCase(companyRepo repository.CompanyRepository,
	invoiceRepo repository.InvoiceRepository, chainRepo repository.ChainLinkRepository,
	production bool) *RecordUseCase {

	return &RecordUseCase{
		companyRepo: companyRepo,
		invoiceRepo: invoiceRepo,
		chainRepo:   chainRepo,
		production:  production,
	}
}

// GetInvoiceRecord devuelve el estado y el historial de eslabones de una
// factura (una factura rechazada y subsanada tiene más de uno).
func (uc *RecordUseCase) GetInvoiceRecord(companyID, invoiceID string) (*dto.InvoiceRecordResponse, error) {
	invoice, err := uc.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil || invoice.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}

	links, err := uc.chainRepo.ListByInvoice(invoiceID)
	if err != nil {
		return nil, err
	}

	out := &dto.InvoiceRecordResponse{
		InvoiceID:    invoice.ID,
		SeriesNumber: invoice.SeriesNumber,
		State:        string(invoice.State),
		PendingSend:  invoice.PendingSend,
	}
	for _, l := range links {
		out.Links = append(out.Links, dto.ChainLinkResponse{
			ID:           l.ID,
			Fingerprint:  l.Fingerprint,
			SeriesNumber: l.SeriesNumber,
			IssueDate:    domvf.FormatIssueDate(l.IssueDate),
			State:        string(l.State),
			Code:         l.CommunicationCode,
			Message:      l.CommunicationMessage,
			CSV:          l.CSV,
			SubmitOrder:  l.SubmitOrder,
			CreatedAt:    l.CreatedAt,
		})
	}
	return out, nil
}

// GetInvoiceQR devuelve la URL de cotejo que debe incorporarse al QR de la
// factura impresa o electrónica.
func (uc *RecordUseCase) GetInvoiceQR(companyID, invoiceID string) (*dto.QRResponse, error) {
	invoice, err := uc.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil || invoice.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	company, err := uc.companyRepo.GetByID(companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}

	url := pkgaeat.QRURL(uc.production, company.NIF, invoice.SeriesNumber,
		invoice.IssueDate, invoice.TotalAmount)
	return &dto.QRResponse{InvoiceID: invoice.ID, URL: url}, nil
}
