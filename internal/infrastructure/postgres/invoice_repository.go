package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/facturalia/verifactu-api/internal/domain/entity"
	"github.com/facturalia/verifactu-api/internal/domain/repository"
	"github.com/facturalia/verifactu-api/internal/domain/verifactu"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// La proyección es de solo lectura salvo el estado VERI*FACTU: las facturas
// las escribe el ERP anfitrión.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, company_id, series_number, issue_date, description,
	       operation_key, correction_of, simplified, replaces_range,
	       counterpart_name, counterpart_tax_id, counterpart_id_type, counterpart_country,
	       total_amount, total_tax, state, pending_send, previous_rejected,
	       created_at, updated_at`

// GetByID obtiene una factura con sus líneas de impuestos.
func (r *InvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return r.getOne(query, id)
}

// GetBySeriesNumber localiza la factura de una empresa por número de serie.
func (r *InvoiceRepo) GetBySeriesNumber(companyID, seriesNumber string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices WHERE company_id = $1 AND series_number = $2`
	return r.getOne(query, companyID, seriesNumber)
}

// GetBySeriesNumberInRange localiza por número de serie dentro de un rango de
// fechas de expedición. Se usa al casar respuestas de consulta mes a mes.
func (r *InvoiceRepo) GetBySeriesNumberInRange(companyID, seriesNumber string,
	from, to time.Time) (*entity.Invoice, error) {

	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE company_id = $1 AND series_number = $2
		  AND issue_date >= $3 AND issue_date <= $4`
	return r.getOne(query, companyID, seriesNumber, from, to)
}

// ListPending devuelve las facturas pendientes de envío o subsanación en
// orden de expedición: el encadenamiento sigue el orden de emisión.
func (r *InvoiceRepo) ListPending(companyID string) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE company_id = $1 AND pending_send
		ORDER BY issue_date, series_number`
	rows, err := r.q.Query(context.Background(), query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list pending invoices: %w", err)
	}
	defer rows.Close()

	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, inv := range list {
		if err := r.loadTaxLines(inv); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// UpdateState fija el estado VERI*FACTU y el flag de pendiente.
func (r *InvoiceRepo) UpdateState(invoiceID string, state verifactu.RecordState, pending bool) error {
	query := `
		UPDATE invoices
		SET state        = $2,
		    pending_send = $3,
		    previous_rejected = CASE WHEN $2 = 'Incorrecto' THEN true ELSE previous_rejected END,
		    updated_at   = $4
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query, invoiceID, string(state), pending, time.Now())
	if err != nil {
		return fmt.Errorf("update invoice state: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) getOne(query string, args ...any) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(context.Background(), query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if err := r.loadTaxLines(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepo) loadTaxLines(inv *entity.Invoice) error {
	query := `
		SELECT parent_tax_id, regime_key, subjection_key, exemption_cause,
		       rate, base, amount, surcharge_rate, surcharge_amount,
		       has_surcharge, is_surcharge, is_service
		FROM invoice_tax_lines WHERE invoice_id = $1 ORDER BY position`
	rows, err := r.q.Query(context.Background(), query, inv.ID)
	if err != nil {
		return fmt.Errorf("list tax lines: %w", err)
	}
	defer rows.Close()

	inv.TaxLines = nil
	for rows.Next() {
		var l entity.TaxLine
		var regime, subjection, exemption string
		if err := rows.Scan(
			&l.ParentTaxID, &regime, &subjection, &exemption,
			&l.Rate, &l.Base, &l.Amount, &l.SurchargeRate, &l.SurchargeAmount,
			&l.HasSurcharge, &l.IsSurcharge, &l.IsService,
		); err != nil {
			return fmt.Errorf("scan tax line: %w", err)
		}
		l.RegimeKey = verifactu.RegimeKey(regime)
		l.SubjectionKey = verifactu.SubjectionKey(subjection)
		l.ExemptionCause = verifactu.ExemptionCause(exemption)
		inv.TaxLines = append(inv.TaxLines, l)
	}
	return rows.Err()
}

func scanInvoice(row pgxScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	var operationKey, state string
	var correctionOf, cpName, cpTaxID, cpIDType, cpCountry *string
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.SeriesNumber, &inv.IssueDate, &inv.Description,
		&operationKey, &correctionOf, &inv.Simplified, &inv.ReplacesRange,
		&cpName, &cpTaxID, &cpIDType, &cpCountry,
		&inv.TotalAmount, &inv.TotalTax, &state, &inv.PendingSend, &inv.PreviousRejected,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.OperationKey = verifactu.OperationKey(operationKey)
	inv.State = verifactu.RecordState(state)
	inv.CorrectionOf = derefStr(correctionOf)
	if cpName != nil || cpTaxID != nil {
		inv.Counterpart = &entity.Counterpart{
			Name:           derefStr(cpName),
			TaxID:          derefStr(cpTaxID),
			IdentifierType: verifactu.IdentifierType(derefStr(cpIDType)),
			Country:        derefStr(cpCountry),
		}
	}
	return &inv, nil
}
