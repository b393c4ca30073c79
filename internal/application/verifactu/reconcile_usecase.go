package verifactu

import (
	"context"
	"crypto/tls"
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

// ReconcileConfig parámetros de la reconciliación.
type ReconcileConfig struct {
	LookbackMonths int // ventana máxima hacia atrás (defecto 24)
}

// ReconcileUseCase reconstruye la posición de la cadena local consultando el
// libro que la AEAT tiene anotado para la empresa. Se usa tras restaurar una
// copia de seguridad o ante la sospecha de que otro sistema envió registros.
type ReconcileUseCase struct {
	companyRepo repository.CompanyRepository
	txRunner    TxRunner
	certs       CertLoader
	client      Submitter
	sistema     aeat.SistemaInformatico
	tracker     *ChainTracker
	cfg         ReconcileConfig
	log         *logger.Logger
	now         func() time.Time
}

// NewReconcileUseCase construye el caso de uso de reconciliación.
func NewReconcileUseCase(companyRepo repository.CompanyRepository, txRunner TxRunner,
	certs CertLoader, client Submitter, sistema aeat.SistemaInformatico,
	tracker *ChainTracker, cfg ReconcileConfig, log *logger.Logger) *ReconcileUseCase {

	return &ReconcileUseCase{
		companyRepo: companyRepo,
		txRunner:    txRunner,
		certs:       certs,
		client:      client,
		sistema:     sistema,
		tracker:     tracker,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// Reconcile recorre los meses hacia atrás casando los registros remotos
// contra la cadena local hasta reencontrar una huella ya anotada: esa es la
// posición conocida de la cadena y ahí termina el rastreo. Las huellas
// remotas desconocidas que correspondan a facturas locales se importan como
// eslabones en orden cronológico, de modo que la cabeza resultante es el
// último registro que la AEAT tiene anotado; un registro remoto sin factura
// local es una divergencia fatal: la cadena de la empresa queda detenida
// hasta intervención manual.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, companyID string) (*dto.ReconcileReport, error) {
	company, err := uc.companyRepo.GetByID(companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	if !company.CanSubmit(uc.now()) {
		return nil, domain.ErrVerifactuDisabled
	}
	cert, err := uc.certs.Load(company)
	if err != nil {
		return nil, err
	}

	release, err := uc.tracker.Acquire(companyID)
	if err != nil {
		return nil, err
	}
	defer release()

	log := uc.log.Company(company.ID, company.NIF)
	report := &dto.ReconcileReport{CompanyID: companyID}

	err = uc.txRunner.RunCompanyCycle(ctx, companyID, func(
		invoiceRepo repository.InvoiceRepository,
		chainRepo repository.ChainLinkRepository,
	) error {
		cab := cabecera(company)
		now := uc.now()
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

		// La consulta devuelve los registros del mes del más reciente al
		// más antiguo. Se acumulan las huellas desconocidas hasta dar con
		// una ya anotada en la cadena local; un mes sin coincidencias no
		// detiene el rastreo.
		var unknown []remoteEntry
		found := false
		for i := 0; i < uc.cfg.LookbackMonths && !found; i++ {
			entries, err := uc.queryMonth(ctx, cert, cab, month)
			if err != nil {
				return err
			}
			report.MonthsScanned++

			for _, e := range entries {
				local, err := chainRepo.GetByFingerprint(companyID, e.Fingerprint)
				if err != nil {
					return err
				}
				if local != nil {
					report.Matched++
					found = true
					break
				}
				unknown = append(unknown, remoteEntry{entry: e, month: month})
			}
			month = month.AddDate(0, -1, 0)
		}

		// Importar del más antiguo al más reciente para que el submit_order
		// respete la cronología del libro remoto.
		for i := len(unknown) - 1; i >= 0; i-- {
			if err := uc.importEntry(log, invoiceRepo, chainRepo, company, unknown[i], report); err != nil {
				return err
			}
		}

		// Sin historia remota en toda la ventana la cadena local arranca
		// (o continúa) por su cuenta y head queda como estuviera.
		head, err := chainRepo.Head(companyID)
		if err != nil {
			return err
		}
		if head != nil {
			report.HeadFingerprint = head.Fingerprint
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("months_scanned", report.MonthsScanned).
		Int("matched", report.Matched).
		Int("imported", report.Imported).
		Msg("reconciliación completada")
	return report, nil
}

// queryMonth agota la paginación de la consulta de un mes.
func (uc *ReconcileUseCase) queryMonth(ctx context.Context, cert tls.Certificate,
	cab aeat.Cabecera, month time.Time) ([]aeat.QueryEntry, error) {

	filter := aeat.QueryFilter{
		PeriodoImputacion: aeat.PeriodoImputacion{
			Ejercicio: fmt.Sprintf("%d", month.Year()),
			Periodo:   pkgaeat.FormatPeriod(int(month.Month())),
		},
		SistemaInformatico: uc.sistema,
	}

	var entries []aeat.QueryEntry
	for {
		resp, err := uc.client.Query(ctx, cert, cab, filter)
		if err != nil {
			return nil, fmt.Errorf("consulta de %s: %w", filter.PeriodoImputacion.Periodo, err)
		}
		entries = append(entries, resp.Entries...)
		if !resp.HasMorePages {
			return entries, nil
		}
		filter.ClavePaginacion = resp.NextPageToken
	}
}

// remoteEntry conserva el mes del que vino cada registro remoto para poder
// casar la factura local por rango de fechas de expedición.
type remoteEntry struct {
	entry aeat.QueryEntry
	month time.Time
}

// importEntry anota en la cadena local una huella que otro sistema (o una
// instalación anterior) envió. Solo se importa si la factura existe aquí.
func (uc *ReconcileUseCase) importEntry(log *logger.Logger,
	invoiceRepo repository.InvoiceRepository, chainRepo repository.ChainLinkRepository,
	company *entity.Company, re remoteEntry, report *dto.ReconcileReport) error {

	e := re.entry
	from := re.month
	to := re.month.AddDate(0, 1, 0).Add(-time.Second)

	invoice, err := invoiceRepo.GetBySeriesNumberInRange(company.ID, e.SeriesNumber, from, to)
	if err != nil {
		return err
	}
	if invoice == nil {
		return fmt.Errorf("%w: la AEAT tiene la huella %s (factura %s) sin factura local",
			domain.ErrChainDivergence, e.Fingerprint, e.SeriesNumber)
	}

	issueDate := invoice.IssueDate
	if t, err := time.Parse("02-01-2006", e.IssueDate); err == nil {
		issueDate = t
	}

	state := verifactu.StateFromAEAT(e.State)
	link := &entity.ChainLink{
		CompanyID:    company.ID,
		Fingerprint:  e.Fingerprint,
		InvoiceID:    invoice.ID,
		SeriesNumber: e.SeriesNumber,
		IssueDate:    issueDate,
		IssuerTaxID:  company.NIF,
		State:        state,
	}
	if err := chainRepo.Append(link); err != nil {
		return err
	}
	report.Imported++

	if state.IsTerminalAccepted() || state == verifactu.StateCancelled {
		if err := invoiceRepo.UpdateState(invoice.ID, state, false); err != nil {
			return err
		}
	}

	log.Info().
		Str("series_number", e.SeriesNumber).
		Str("fingerprint", e.Fingerprint).
		Str("state", string(state)).
		Msg("huella remota importada a la cadena local")
	return nil
}
