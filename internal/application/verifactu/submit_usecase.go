package verifactu

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/facturalia/verifactu-api/internal/application/dto"
	"github.com/facturalia/verifactu-api/internal/domain"
	"github.com/facturalia/verifactu-api/internal/domain/entity"
	"github.com/facturalia/verifactu-api/internal/domain/repository"
	"github.com/facturalia/verifactu-api/internal/domain/verifactu"
	"github.com/facturalia/verifactu-api/internal/infrastructure/aeat"
	pkgaeat "github.com/facturalia/verifactu-api/pkg/aeat"
	"github.com/facturalia/verifactu-api/pkg/logger"
)

// SubmitConfig parámetros del ciclo de envío.
type SubmitConfig struct {
	MaxBatchSize int // registros por llamada SOAP
}

// SubmitUseCase genera los registros pendientes de una empresa, los encadena
// y los remite a la AEAT por lotes. Un ciclo por empresa a la vez.
type SubmitUseCase struct {
	companyRepo repository.CompanyRepository
	txRunner    TxRunner
	certs       CertLoader
	client      Submitter
	builder     *aeat.RecordBuilder
	tracker     *ChainTracker
	cfg         SubmitConfig
	log         *logger.Logger
	now         func() time.Time
}

// NewSubmitUseCase construye el caso de uso de envío.
func NewSubmitUseCase(companyRepo repository.CompanyRepository, txRunner TxRunner,
	certs CertLoader, client Submitter, builder *aeat.RecordBuilder,
	tracker *ChainTracker, cfg SubmitConfig, log *logger.Logger) *SubmitUseCase {

	return &SubmitUseCase{
		companyRepo: companyRepo,
		txRunner:    txRunner,
		certs:       certs,
		client:      client,
		builder:     builder,
		tracker:     tracker,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// builtRecord empareja una factura con su registro ya generado.
type builtRecord struct {
	invoice *entity.Invoice
	rec     *aeat.BuiltRecord
}

// SubmitPending envía todas las facturas pendientes de la empresa. Las
// facturas que no superan la validación se excluyen del lote sin abortar el
// ciclo; un fallo de transporte deshace el ciclo entero y deja todo
// reintentable.
func (uc *SubmitUseCase) SubmitPending(ctx context.Context, companyID string) (*dto.SubmissionReport, error) {
	company, cert, err := uc.prepare(companyID)
	if err != nil {
		return nil, err
	}

	release, err := uc.tracker.Acquire(companyID)
	if err != nil {
		return nil, err
	}
	defer release()

	log := uc.log.Company(company.ID, company.NIF)
	report := &dto.SubmissionReport{CompanyID: companyID}

	err = uc.txRunner.RunCompanyCycle(ctx, companyID, func(
		invoiceRepo repository.InvoiceRepository,
		chainRepo repository.ChainLinkRepository,
	) error {
		pending, err := invoiceRepo.ListPending(companyID)
		if err != nil {
			return err
		}
		report.Pending = len(pending)
		if len(pending) == 0 {
			return nil
		}

		batch, err := uc.buildBatch(log, invoiceRepo, chainRepo, company, pending, report)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		cab := cabecera(company)
		for start := 0; start < len(batch); start += uc.cfg.MaxBatchSize {
			end := min(start+uc.cfg.MaxBatchSize, len(batch))
			chunk := batch[start:end]

			records := make([]aeat.RegistroFactura, len(chunk))
			for i, b := range chunk {
				records[i] = aeat.RegistroFactura{RegistroAlta: b.rec.Registro}
			}

			resp, err := uc.client.Submit(ctx, cert, cab, records)
			if err != nil {
				// El lote entero queda reintentable: rollback de todo el ciclo.
				return fmt.Errorf("envío del lote: %w", err)
			}
			report.Batches++

			if err := uc.applyResponse(log, invoiceRepo, chainRepo, company, chunk, resp, report); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("pending", report.Pending).
		Int("accepted", report.Accepted).
		Int("accepted_with_errors", report.AcceptedWithErrors).
		Int("rejected", report.Rejected).
		Int("duplicates", report.Duplicates).
		Int("validation_failed", report.ValidationFailed).
		Int("batches", report.Batches).
		Msg("ciclo de envío completado")
	return report, nil
}

// CancelInvoice remite la baja de una factura ya registrada ante la AEAT.
func (uc *SubmitUseCase) CancelInvoice(ctx context.Context, companyID, invoiceID string) error {
	company, cert, err := uc.prepare(companyID)
	if err != nil {
		return err
	}

	release, err := uc.tracker.Acquire(companyID)
	if err != nil {
		return err
	}
	defer release()

	log := uc.log.Company(company.ID, company.NIF)

	return uc.txRunner.RunCompanyCycle(ctx, companyID, func(
		invoiceRepo repository.InvoiceRepository,
		chainRepo repository.ChainLinkRepository,
	) error {
		invoice, err := invoiceRepo.GetByID(invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil || invoice.CompanyID != companyID {
			return domain.ErrNotFound
		}
		if !invoice.State.IsTerminalAccepted() {
			return fmt.Errorf("%w: solo se anulan facturas registradas", domain.ErrInvalidInput)
		}

		req := uc.builder.BuildCancel(company, invoice)
		resp, err := uc.client.Cancel(ctx, cert, cabecera(company), []aeat.AnulacionRequest{req})
		if err != nil {
			return fmt.Errorf("envío de la anulación: %w", err)
		}

		line := matchLine(resp.Lines, invoice.SeriesNumber)
		if line == nil {
			return fmt.Errorf("la AEAT no devolvió línea para la factura %s", invoice.SeriesNumber)
		}
		state := verifactu.StateFromAEAT(line.State)
		switch {
		case verifactu.DuplicateCodes[line.Code]:
			// Baja ya tramitada con anterioridad: dar por anulada.
			state = verifactu.StateCancelled
		case state.IsTerminalAccepted():
			// El acuse de una baja llega como Correcto: la anulación quedó
			// anotada en el libro de la AEAT.
			state = verifactu.StateCancelled
		}
		if state != verifactu.StateCancelled {
			return fmt.Errorf("anulación de %s rechazada: [%d] %s",
				invoice.SeriesNumber, line.Code, line.Message)
		}

		link := &entity.ChainLink{
			CompanyID:            companyID,
			InvoiceID:            invoice.ID,
			SeriesNumber:         invoice.SeriesNumber,
			IssueDate:            invoice.IssueDate,
			IssuerTaxID:          company.NIF,
			State:                verifactu.StateCancelled,
			CommunicationCode:    line.Code,
			CommunicationMessage: line.Message,
			CSV:                  resp.CSV,
		}
		if err := chainRepo.Append(link); err != nil {
			return err
		}
		if err := invoiceRepo.UpdateState(invoice.ID, verifactu.StateCancelled, false); err != nil {
			return err
		}

		log.Info().Str("invoice_id", invoice.ID).Str("series_number", invoice.SeriesNumber).
			Msg("factura anulada ante la AEAT")
		return nil
	})
}

// prepare valida los requisitos previos de la empresa y carga su certificado.
func (uc *SubmitUseCase) prepare(companyID string) (*entity.Company, tls.Certificate, error) {
	company, err := uc.companyRepo.GetByID(companyID)
	if err != nil {
		return nil, tls.Certificate{}, err
	}
	if company == nil {
		return nil, tls.Certificate{}, domain.ErrNotFound
	}
	if !company.CanSubmit(uc.now()) {
		if company.VerifactuEnabled && company.VerifactuStartDate != nil && company.CertPath == "" {
			return nil, tls.Certificate{}, domain.ErrMissingCertificate
		}
		return nil, tls.Certificate{}, domain.ErrVerifactuDisabled
	}
	cert, err := uc.certs.Load(company)
	if err != nil {
		return nil, tls.Certificate{}, err
	}
	return company, cert, nil
}

// buildBatch genera los registros en orden de expedición, encadenando cada
// huella con la anterior. El predecesor inicial es la cabeza de la cadena
// persistida; dentro del lote cada registro encadena con el recién generado.
func (uc *SubmitUseCase) buildBatch(log *logger.Logger,
	invoiceRepo repository.InvoiceRepository, chainRepo repository.ChainLinkRepository,
	company *entity.Company, pending []*entity.Invoice,
	report *dto.SubmissionReport) ([]builtRecord, error) {

	prev, err := chainRepo.Head(company.ID)
	if err != nil {
		return nil, err
	}

	var batch []builtRecord
	for _, inv := range pending {
		if inv.OperationKey == "" {
			inv.OperationKey = entity.DeriveOperationKey(inv.Simplified, inv.ReplacesRange, inv.TotalAmount)
		}

		var rectified *entity.InvoiceRef
		if inv.CorrectionOf != "" {
			orig, err := invoiceRepo.GetByID(inv.CorrectionOf)
			if err != nil {
				return nil, err
			}
			if orig != nil {
				rectified = &entity.InvoiceRef{
					SeriesNumber: orig.SeriesNumber,
					IssueDate:    orig.IssueDate,
				}
			}
		}

		rec, err := uc.builder.BuildAlta(company, inv, rectified, prev, uc.now())
		if err != nil {
			var verr *aeat.ValidationError
			if errors.As(err, &verr) {
				report.ValidationFailed++
				log.Warn().
					Str("invoice_id", inv.ID).
					Str("series_number", inv.SeriesNumber).
					Str("reason", verr.Reason).
					Msg("factura excluida del lote")
				continue
			}
			return nil, err
		}

		batch = append(batch, builtRecord{invoice: inv, rec: rec})
		prev = &entity.ChainLink{
			Fingerprint:  rec.Fingerprint,
			SeriesNumber: inv.SeriesNumber,
			IssueDate:    inv.IssueDate,
			IssuerTaxID:  company.NIF,
		}
	}
	return batch, nil
}

// applyResponse persiste eslabones y estados según la respuesta por línea.
func (uc *SubmitUseCase) applyResponse(log *logger.Logger,
	invoiceRepo repository.InvoiceRepository, chainRepo repository.ChainLinkRepository,
	company *entity.Company, chunk []builtRecord, resp *aeat.SubmitResponse,
	report *dto.SubmissionReport) error {

	bySeries := make(map[string]builtRecord, len(chunk))
	for _, b := range chunk {
		bySeries[b.invoice.SeriesNumber] = b
	}

	for _, line := range resp.Lines {
		b, ok := bySeries[line.SeriesNumber]
		if !ok {
			log.Warn().Str("series_number", line.SeriesNumber).
				Msg("la AEAT devolvió una línea que no estaba en el lote")
			continue
		}

		state := verifactu.StateFromAEAT(line.State)
		pendingFlag := false
		switch {
		case verifactu.DuplicateCodes[line.Code]:
			// Registro duplicado o ya dado de baja: reenviar solo duplicaría.
			state = verifactu.StateDuplicated
			report.Duplicates++
		case state == verifactu.StateAccepted:
			report.Accepted++
		case state == verifactu.StateAcceptedWithErrors:
			report.AcceptedWithErrors++
		case state == verifactu.StateRejected:
			report.Rejected++
			pendingFlag = true // reenvío posterior con subsanación
		}

		link := &entity.ChainLink{
			CompanyID:            company.ID,
			Fingerprint:          b.rec.Fingerprint,
			InvoiceID:            b.invoice.ID,
			SeriesNumber:         b.invoice.SeriesNumber,
			IssueDate:            b.invoice.IssueDate,
			IssuerTaxID:          company.NIF,
			State:                state,
			CommunicationCode:    line.Code,
			CommunicationMessage: line.Message,
			CSV:                  resp.CSV,
		}
		if err := chainRepo.Append(link); err != nil {
			return err
		}
		if err := invoiceRepo.UpdateState(b.invoice.ID, state, pendingFlag); err != nil {
			return err
		}
	}
	return nil
}

// cabecera construye el bloque de cabecera común de las tres operaciones.
func cabecera(company *entity.Company) aeat.Cabecera {
	return aeat.Cabecera{
		IDVersion: aeat.IDVersion,
		ObligadoEmision: aeat.ObligadoEmision{
			NombreRazon: pkgaeat.Unaccent(company.Name),
			NIF:         company.NIF,
		},
	}
}

func matchLine(lines []aeat.LineResult, seriesNumber string) *aeat.LineResult {
	for i := range lines {
		if lines[i].SeriesNumber == seriesNumber {
			return &lines[i]
		}
	}
	return nil
}
