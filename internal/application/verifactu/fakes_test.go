package verifactu

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturalia/verifactu-api/internal/domain/entity"
	"github.com/facturalia/verifactu-api/internal/domain/repository"
	domvf "github.com/facturalia/verifactu-api/internal/domain/verifactu"
	"github.com/facturalia/verifactu-api/internal/infrastructure/aeat"
	"github.com/facturalia/verifactu-api/pkg/logger"
)

// ── Fakes en memoria para los casos de uso ────────────────────────────────────

type fakeCompanyRepo struct {
	company *entity.Company
}

func (r *fakeCompanyRepo) Create(*entity.Company) error { return nil }
func (r *fakeCompanyRepo) Update(*entity.Company) error { return nil }
func (r *fakeCompanyRepo) GetByID(id string) (*entity.Company, error) {
	if r.company != nil && r.company.ID == id {
		return r.company, nil
	}
	return nil, nil
}
func (r *fakeCompanyRepo) GetByNIF(nif string) (*entity.Company, error) {
	if r.company != nil && r.company.NIF == nif {
		return r.company, nil
	}
	return nil, nil
}
func (r *fakeCompanyRepo) ListVerifactuEnabled() ([]*entity.Company, error) {
	if r.company != nil && r.company.VerifactuEnabled {
		return []*entity.Company{r.company}, nil
	}
	return nil, nil
}

type fakeInvoiceRepo struct {
	invoices map[string]*entity.Invoice
}

func (r *fakeInvoiceRepo) add(inv *entity.Invoice) {
	if r.invoices == nil {
		r.invoices = make(map[string]*entity.Invoice)
	}
	r.invoices[inv.ID] = inv
}

func (r *fakeInvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	return r.invoices[id], nil
}

func (r *fakeInvoiceRepo) GetBySeriesNumber(companyID, seriesNumber string) (*entity.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.CompanyID == companyID && inv.SeriesNumber == seriesNumber {
			return inv, nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) GetBySeriesNumberInRange(companyID, seriesNumber string,
	from, to time.Time) (*entity.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.CompanyID == companyID && inv.SeriesNumber == seriesNumber &&
			!inv.IssueDate.Before(from) && !inv.IssueDate.After(to) {
			return inv, nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) ListPending(companyID string) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, inv := range r.invoices {
		if inv.CompanyID == companyID && inv.PendingSend {
			out = append(out, inv)
		}
	}
	// Orden de expedición estable, como el repo real.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].SeriesNumber < out[i].SeriesNumber {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) UpdateState(invoiceID string, state domvf.RecordState, pending bool) error {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("factura %s no existe", invoiceID)
	}
	if state == domvf.StateRejected {
		inv.PreviousRejected = true
	}
	inv.State = state
	inv.PendingSend = pending
	return nil
}

type fakeChainRepo struct {
	links []*entity.ChainLink
}

func (r *fakeChainRepo) Append(link *entity.ChainLink) error {
	link.SubmitOrder = int64(len(r.links) + 1)
	r.links = append(r.links, link)
	return nil
}

func (r *fakeChainRepo) Head(companyID string) (*entity.ChainLink, error) {
	for i := len(r.links) - 1; i >= 0; i-- {
		l := r.links[i]
		if l.CompanyID == companyID && !l.Superseded() && l.Fingerprint != "" {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeChainRepo) GetByFingerprint(companyID, fingerprint string) (*entity.ChainLink, error) {
	for _, l := range r.links {
		if l.CompanyID == companyID && l.Fingerprint == fingerprint {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeChainRepo) ListByInvoice(invoiceID string) ([]*entity.ChainLink, error) {
	var out []*entity.ChainLink
	for i := len(r.links) - 1; i >= 0; i-- {
		if r.links[i].InvoiceID == invoiceID {
			out = append(out, r.links[i])
		}
	}
	return out, nil
}

type fakeTxRunner struct {
	invoices repository.InvoiceRepository
	chain    repository.ChainLinkRepository
}

func (r *fakeTxRunner) RunCompanyCycle(ctx context.Context, companyID string, fn func(
	invoiceRepo repository.InvoiceRepository,
	chainRepo repository.ChainLinkRepository,
) error) error {
	return fn(r.invoices, r.chain)
}

type fakeCertLoader struct{}

func (fakeCertLoader) Load(*entity.Company) (tls.Certificate, error) {
	return tls.Certificate{}, nil
}

// fakeSubmitter responde según las funciones inyectadas y captura los lotes.
type fakeSubmitter struct {
	submitted [][]aeat.RegistroFactura
	submitFn  func(records []aeat.RegistroFactura) (*aeat.SubmitResponse, error)
	cancelFn  func(requests []aeat.AnulacionRequest) (*aeat.CancelResponse, error)
	queryFn   func(filter aeat.QueryFilter) (*aeat.QueryResponse, error)
}

func (s *fakeSubmitter) Submit(_ context.Context, _ tls.Certificate, _ aeat.Cabecera,
	records []aeat.RegistroFactura) (*aeat.SubmitResponse, error) {
	s.submitted = append(s.submitted, records)
	return s.submitFn(records)
}

func (s *fakeSubmitter) Cancel(_ context.Context, _ tls.Certificate, _ aeat.Cabecera,
	requests []aeat.AnulacionRequest) (*aeat.CancelResponse, error) {
	return s.cancelFn(requests)
}

func (s *fakeSubmitter) Query(_ context.Context, _ tls.Certificate, _ aeat.Cabecera,
	filter aeat.QueryFilter) (*aeat.QueryResponse, error) {
	return s.queryFn(filter)
}

// acceptAll construye una respuesta Correcto para cada registro del lote.
func acceptAll(records []aeat.RegistroFactura) (*aeat.SubmitResponse, error) {
	resp := &aeat.SubmitResponse{EstadoEnvio: "Correcto", CSV: "CSV-OK"}
	for _, r := range records {
		resp.Lines = append(resp.Lines, aeat.LineResult{
			SeriesNumber: r.RegistroAlta.IDFactura.NumSerieFactura,
			IssueDate:    r.RegistroAlta.IDFactura.FechaExpedicionFactura,
			State:        "Correcto",
		})
	}
	return resp, nil
}

// ── Datos de prueba ───────────────────────────────────────────────────────────

func enabledCompany() *entity.Company {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &entity.Company{
		ID:                 "c-1",
		Name:               "Construcciones Perez SL",
		NIF:                "B65247983",
		VerifactuEnabled:   true,
		VerifactuStartDate: &start,
		CertPath:           "/etc/certs/perez.pem",
	}
}

func pendingInvoice(id, series string, day int) *entity.Invoice {
	return &entity.Invoice{
		ID:           id,
		CompanyID:    "c-1",
		SeriesNumber: series,
		IssueDate:    time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		Description:  "Venta",
		OperationKey: domvf.OpF1,
		Counterpart:  &entity.Counterpart{Name: "Cliente SA", TaxID: "12345678Z"},
		TaxLines: []entity.TaxLine{{
			ParentTaxID: "iva-21",
			RegimeKey:   domvf.RegimeGeneral,
			Rate:        decimal.RequireFromString("0.21"),
			Base:        decimal.RequireFromString("100.00"),
			Amount:      decimal.RequireFromString("21.00"),
		}},
		State:       domvf.StatePendingSend,
		PendingSend: true,
	}
}

func testSistemaInformatico() aeat.SistemaInformatico {
	return aeat.SistemaInformatico{
		NombreRazon:              "Facturalia Software SL",
		NIF:                      "B65247983",
		NombreSistemaInformatico: "verifactu-api",
		IdSistemaInformatico:     "77",
		Version:                  "1.0",
		NumeroInstalacion:        "1",
	}
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}
