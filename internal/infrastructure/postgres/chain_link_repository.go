package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facturalia/verifactu-api/internal/domain/entity"
	"github.com/facturalia/verifactu-api/internal/domain/repository"
	"github.com/facturalia/verifactu-api/internal/domain/verifactu"
)

var _ repository.ChainLinkRepository = (*ChainLinkRepo)(nil)

// ChainLinkRepo implementación de ChainLinkRepository (usable con pool o tx).
// La tabla chain_links es append-only; no hay UPDATE ni DELETE.
type ChainLinkRepo struct {
	q Querier
}

// NewChainLinkRepository construye el adaptador. Pasar pool o tx (Querier).
func NewChainLinkRepository(q Querier) *ChainLinkRepo {
	return &ChainLinkRepo{q: q}
}

const chainLinkColumns = `id, company_id, fingerprint, invoice_id, series_number,
	       issue_date, issuer_tax_id, state, communication_code,
	       communication_message, csv, submit_order, created_at`

// Append añade un eslabón asignándole el siguiente submit_order de la
// empresa. El subselect corre dentro de la transacción del ciclo, que ya
// tiene el bloqueo de la empresa: no hay carreras sobre el contador.
func (r *ChainLinkRepo) Append(link *entity.ChainLink) error {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO chain_links (id, company_id, fingerprint, invoice_id, series_number,
			issue_date, issuer_tax_id, state, communication_code,
			communication_message, csv, submit_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			(SELECT COALESCE(MAX(submit_order), 0) + 1 FROM chain_links WHERE company_id = $2),
			$12)
		RETURNING submit_order`
	err := r.q.QueryRow(context.Background(), query,
		link.ID, link.CompanyID, link.Fingerprint, nullIfEmpty(link.InvoiceID),
		link.SeriesNumber, link.IssueDate, link.IssuerTaxID,
		string(link.State), link.CommunicationCode,
		nullIfEmpty(link.CommunicationMessage), nullIfEmpty(link.CSV),
		link.CreatedAt,
	).Scan(&link.SubmitOrder)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("chain link ya registrado (huella %s): %w", link.Fingerprint, err)
		}
		return fmt.Errorf("append chain link: %w", err)
	}
	return nil
}

// Head devuelve el eslabón más reciente cuyo estado no está superado:
// los rechazados, anulados y duplicados no encadenan (la huella local de
// un duplicado nunca quedó anotada en la AEAT).
func (r *ChainLinkRepo) Head(companyID string) (*entity.ChainLink, error) {
	query := `SELECT ` + chainLinkColumns + `
		FROM chain_links
		WHERE company_id = $1 AND state NOT IN ($2, $3, $4)
		ORDER BY submit_order DESC
		LIMIT 1`
	link, err := scanChainLink(r.q.QueryRow(context.Background(), query,
		companyID, string(verifactu.StateRejected), string(verifactu.StateCancelled),
		string(verifactu.StateDuplicated)))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chain head: %w", err)
	}
	return link, nil
}

// GetByFingerprint busca un eslabón por huella dentro de una empresa.
func (r *ChainLinkRepo) GetByFingerprint(companyID, fingerprint string) (*entity.ChainLink, error) {
	query := `SELECT ` + chainLinkColumns + `
		FROM chain_links WHERE company_id = $1 AND fingerprint = $2`
	link, err := scanChainLink(r.q.QueryRow(context.Background(), query, companyID, fingerprint))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chain link: %w", err)
	}
	return link, nil
}

// ListByInvoice devuelve los eslabones de una factura, más reciente primero.
// Una factura puede tener varios: rechazo y reenvío con subsanación.
func (r *ChainLinkRepo) ListByInvoice(invoiceID string) ([]*entity.ChainLink, error) {
	query := `SELECT ` + chainLinkColumns + `
		FROM chain_links WHERE invoice_id = $1 ORDER BY submit_order DESC`
	rows, err := r.q.Query(context.Background(), query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list chain links: %w", err)
	}
	defer rows.Close()

	var list []*entity.ChainLink
	for rows.Next() {
		link, err := scanChainLink(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, link)
	}
	return list, rows.Err()
}

func scanChainLink(row pgxScanner) (*entity.ChainLink, error) {
	var l entity.ChainLink
	var state string
	var invoiceID, message, csv *string
	err := row.Scan(
		&l.ID, &l.CompanyID, &l.Fingerprint, &invoiceID, &l.SeriesNumber,
		&l.IssueDate, &l.IssuerTaxID, &state, &l.CommunicationCode,
		&message, &csv, &l.SubmitOrder, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.State = verifactu.RecordState(state)
	l.InvoiceID = derefStr(invoiceID)
	l.CommunicationMessage = derefStr(message)
	l.CSV = derefStr(csv)
	return &l, nil
}
