package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	appvf "github.com/facturalia/verifactu-api/internal/application/verifactu"
	"github.com/facturalia/verifactu-api/internal/domain"
	"github.com/facturalia/verifactu-api/internal/domain/repository"
)

var _ appvf.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunCompanyCycle toma el bloqueo de la fila de la empresa (FOR UPDATE NOWAIT)
// y ejecuta fn con repos atados a la transacción. Si otro ciclo ya tiene el
// bloqueo devuelve domain.ErrChainBusy sin esperar. La cadena de una empresa
// tiene así un único escritor aunque corran varias réplicas del servicio.
func (r *TxRunner) RunCompanyCycle(ctx context.Context, companyID string, fn func(
	invoiceRepo repository.InvoiceRepository,
	chainRepo repository.ChainLinkRepository,
) error) error {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked string
	err = tx.QueryRow(ctx,
		`SELECT id FROM companies WHERE id = $1 FOR UPDATE NOWAIT`, companyID).Scan(&locked)
	if err != nil {
		if isLockNotAvailable(err) {
			return domain.ErrChainBusy
		}
		if isNoRows(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock company %s: %w", companyID, err)
	}

	if err := fn(NewInvoiceRepository(tx), NewChainLinkRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
