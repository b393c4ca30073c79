package verifactu

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturalia/verifactu-api/internal/domain"
	"github.com/facturalia/verifactu-api/internal/domain/entity"
	domvf "github.com/facturalia/verifactu-api/internal/domain/verifactu"
	"github.com/facturalia/verifactu-api/internal/infrastructure/aeat"
)

func newSubmitFixture(submitFn func([]aeat.RegistroFactura) (*aeat.SubmitResponse, error)) (
	*SubmitUseCase, *fakeInvoiceRepo, *fakeChainRepo, *fakeSubmitter) {

	invoices := &fakeInvoiceRepo{}
	chain := &fakeChainRepo{}
	client := &fakeSubmitter{submitFn: submitFn}

	uc := NewSubmitUseCase(
		&fakeCompanyRepo{company: enabledCompany()},
		&fakeTxRunner{invoices: invoices, chain: chain},
		fakeCertLoader{},
		client,
		aeat.NewRecordBuilder(testSistemaInformatico()),
		NewChainTracker(),
		SubmitConfig{MaxBatchSize: 300},
		quietLogger(),
	)
	return uc, invoices, chain, client
}

func TestSubmitPendingEncadenaElLote(t *testing.T) {
	uc, invoices, chain, client := newSubmitFixture(acceptAll)
	invoices.add(pendingInvoice("inv-1", "A-0001", 10))
	invoices.add(pendingInvoice("inv-2", "A-0002", 11))
	invoices.add(pendingInvoice("inv-3", "A-0003", 12))

	report, err := uc.SubmitPending(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Pending)
	assert.Equal(t, 3, report.Accepted)
	assert.Equal(t, 1, report.Batches)
	require.Len(t, client.submitted, 1)

	records := client.submitted[0]
	require.Len(t, records, 3)

	// Primer registro de la cadena: sin predecesor.
	assert.Equal(t, "S", records[0].RegistroAlta.Encadenamiento.PrimerRegistro)
	require.Nil(t, records[0].RegistroAlta.Encadenamiento.RegistroAnterior)

	// Cada registro posterior encadena con la huella del anterior del lote.
	for i := 1; i < len(records); i++ {
		prev := records[i].RegistroAlta.Encadenamiento.RegistroAnterior
		require.NotNil(t, prev, "registro %d sin encadenamiento", i)
		assert.Equal(t, records[i-1].RegistroAlta.Huella, prev.Huella)
		assert.Equal(t, records[i-1].RegistroAlta.IDFactura.NumSerieFactura, prev.NumSerieFactura)
	}

	// Eslabones persistidos en orden de envío y facturas registradas.
	require.Len(t, chain.links, 3)
	for i, l := range chain.links {
		assert.Equal(t, int64(i+1), l.SubmitOrder)
		assert.Equal(t, domvf.StateAccepted, l.State)
		assert.Equal(t, "CSV-OK", l.CSV)
	}
	for _, id := range []string{"inv-1", "inv-2", "inv-3"} {
		inv := invoices.invoices[id]
		assert.Equal(t, domvf.StateAccepted, inv.State)
		assert.False(t, inv.PendingSend)
	}
}

func TestSubmitPendingContinuaDesdeLaCabeza(t *testing.T) {
	uc, invoices, chain, client := newSubmitFixture(acceptAll)
	chain.links = append(chain.links, &entity.ChainLink{
		CompanyID:    "c-1",
		Fingerprint:  "CABEZA0000000000000000000000000000000000000000000000000000000000",
		SeriesNumber: "A-0000",
		State:        domvf.StateAccepted,
		SubmitOrder:  1,
	})
	invoices.add(pendingInvoice("inv-1", "A-0001", 10))

	_, err := uc.SubmitPending(context.Background(), "c-1")
	require.NoError(t, err)

	records := client.submitted[0]
	require.Len(t, records, 1)
	prev := records[0].RegistroAlta.Encadenamiento.RegistroAnterior
	require.NotNil(t, prev)
	assert.Equal(t, "CABEZA0000000000000000000000000000000000000000000000000000000000", prev.Huella)
	assert.Equal(t, "A-0000", prev.NumSerieFactura)
}

func TestSubmitPendingParteEnLotes(t *testing.T) {
	uc, invoices, _, client := newSubmitFixture(acceptAll)
	for i := 0; i < 301; i++ {
		invoices.add(pendingInvoice(
			fmt.Sprintf("inv-%03d", i),
			fmt.Sprintf("A-%04d", i+1),
			1+i%28,
		))
	}

	report, err := uc.SubmitPending(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, 301, report.Pending)
	assert.Equal(t, 301, report.Accepted)
	assert.Equal(t, 2, report.Batches)
	require.Len(t, client.submitted, 2)
	assert.Len(t, client.submitted[0], 300)
	assert.Len(t, client.submitted[1], 1)

	// La cadena no se rompe en el corte del lote.
	first := client.submitted[1][0].RegistroAlta
	require.NotNil(t, first.Encadenamiento.RegistroAnterior)
	last := client.submitted[0][299].RegistroAlta
	assert.Equal(t, last.Huella, first.Encadenamiento.RegistroAnterior.Huella)
}

func TestSubmitPendingExcluyeFacturaInvalida(t *testing.T) {
	uc, invoices, chain, client := newSubmitFixture(acceptAll)
	bad := pendingInvoice("inv-bad", "A-0001", 10)
	bad.Counterpart = nil // F1 exige destinatario
	invoices.add(bad)
	invoices.add(pendingInvoice("inv-ok", "A-0002", 11))

	report, err := uc.SubmitPending(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.ValidationFailed)
	assert.Equal(t, 1, report.Accepted)
	require.Len(t, client.submitted, 1)
	require.Len(t, client.submitted[0], 1)
	assert.Equal(t, "A-0002", client.submitted[0][0].RegistroAlta.IDFactura.NumSerieFactura)

	// La factura inválida sigue pendiente y sin eslabón.
	assert.True(t, invoices.invoices["inv-bad"].PendingSend)
	require.Len(t, chain.links, 1)
	assert.Equal(t, "inv-ok", chain.links[0].InvoiceID)
}

func TestSubmitPendingDerivaClaveDeOperacion(t *testing.T) {
	uc, invoices, _, client := newSubmitFixture(acceptAll)
	ticket := pendingInvoice("inv-1", "T-0001", 10)
	ticket.OperationKey = ""
	ticket.Simplified = true
	ticket.Counterpart = nil
	invoices.add(ticket)

	report, err := uc.SubmitPending(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Accepted)
	require.Len(t, client.submitted, 1)
	alta := client.submitted[0][0].RegistroAlta
	assert.Equal(t, "F2", alta.TipoFactura)
	assert.Nil(t, alta.Destinatarios, "una simplificada no lleva destinatarios")
}

func TestSubmitPendingDuplicadoNoSeReencola(t *testing.T) {
	uc, invoices, chain, _ := newSubmitFixture(func(records []aeat.RegistroFactura) (*aeat.SubmitResponse, error) {
		return &aeat.SubmitResponse{
			EstadoEnvio: "Incorrecto",
			Lines: []aeat.LineResult{{
				SeriesNumber: records[0].RegistroAlta.IDFactura.NumSerieFactura,
				State:        "Incorrecto",
				Code:         3000,
				Message:      "Registro duplicado",
			}},
		}, nil
	})
	invoices.add(pendingInvoice("inv-1", "A-0001", 10))

	report, err := uc.SubmitPending(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 0, report.Rejected)
	inv := invoices.invoices["inv-1"]
	assert.Equal(t, domvf.StateDuplicated, inv.State)
	assert.False(t, inv.PendingSend)
	require.Len(t, chain.links, 1)
	assert.Equal(t, domvf.StateDuplicated, chain.links[0].State)

	// La AEAT rechazó esa huella por tener ya anotada otra para la misma
	// factura: el eslabón duplicado no puede encadenar como cabeza.
	head, err := chain.Head("c-1")
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestSubmitPendingRechazoQuedaPendiente(t *testing.T) {
	uc, invoices, chain, _ := newSubmitFixture(func(records []aeat.RegistroFactura) (*aeat.SubmitResponse, error) {
		return &aeat.SubmitResponse{
			EstadoEnvio: "Incorrecto",
			Lines: []aeat.LineResult{{
				SeriesNumber: records[0].RegistroAlta.IDFactura.NumSerieFactura,
				State:        "Incorrecto",
				Code:         1117,
				Message:      "NIF del destinatario no identificado",
			}},
		}, nil
	})
	invoices.add(pendingInvoice("inv-1", "A-0001", 10))

	report, err := uc.SubmitPending(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Rejected)
	inv := invoices.invoices["inv-1"]
	assert.Equal(t, domvf.StateRejected, inv.State)
	assert.True(t, inv.PendingSend)
	assert.True(t, inv.PreviousRejected)
	require.Len(t, chain.links, 1)
	assert.Equal(t, 1117, chain.links[0].CommunicationCode)

	// El eslabón rechazado no cuenta como cabeza: el siguiente envío vuelve
	// a abrir cadena.
	head, err := chain.Head("c-1")
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestSubmitPendingFalloDeTransporte(t *testing.T) {
	uc, invoices, chain, _ := newSubmitFixture(func([]aeat.RegistroFactura) (*aeat.SubmitResponse, error) {
		return nil, errors.New("connection refused")
	})
	invoices.add(pendingInvoice("inv-1", "A-0001", 10))

	_, err := uc.SubmitPending(context.Background(), "c-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "envío del lote")

	// Nada persistido: todo el ciclo queda reintentable.
	assert.Empty(t, chain.links)
	assert.True(t, invoices.invoices["inv-1"].PendingSend)
}

func TestSubmitPendingEmpresaSinVerifactu(t *testing.T) {
	uc, _, _, _ := newSubmitFixture(acceptAll)
	disabled := enabledCompany()
	disabled.VerifactuEnabled = false
	uc.companyRepo = &fakeCompanyRepo{company: disabled}

	_, err := uc.SubmitPending(context.Background(), "c-1")
	assert.ErrorIs(t, err, domain.ErrVerifactuDisabled)
}

func TestSubmitPendingEmpresaSinCertificado(t *testing.T) {
	uc, _, _, _ := newSubmitFixture(acceptAll)
	noCert := enabledCompany()
	noCert.CertPath = ""
	uc.companyRepo = &fakeCompanyRepo{company: noCert}

	_, err := uc.SubmitPending(context.Background(), "c-1")
	assert.ErrorIs(t, err, domain.ErrMissingCertificate)
}

func TestSubmitPendingCicloOcupado(t *testing.T) {
	uc, invoices, _, _ := newSubmitFixture(acceptAll)
	invoices.add(pendingInvoice("inv-1", "A-0001", 10))

	release, err := uc.tracker.Acquire("c-1")
	require.NoError(t, err)
	defer release()

	_, err = uc.SubmitPending(context.Background(), "c-1")
	assert.ErrorIs(t, err, domain.ErrChainBusy)
}

func TestCancelInvoiceAnulaYEncadena(t *testing.T) {
	uc, invoices, chain, client := newSubmitFixture(acceptAll)
	client.cancelFn = func(requests []aeat.AnulacionRequest) (*aeat.CancelResponse, error) {
		return &aeat.CancelResponse{
			EstadoEnvio: "Correcto",
			CSV:         "CSV-BAJA",
			Lines: []aeat.LineResult{{
				SeriesNumber: requests[0].IDFactura.NumSerieFactura,
				State:        "Correcto",
			}},
		}, nil
	}
	inv := pendingInvoice("inv-1", "A-0001", 10)
	inv.State = domvf.StateAccepted
	inv.PendingSend = false
	invoices.add(inv)

	err := uc.CancelInvoice(context.Background(), "c-1", "inv-1")
	require.NoError(t, err)

	assert.Equal(t, domvf.StateCancelled, inv.State)
	require.Len(t, chain.links, 1)
	assert.Equal(t, domvf.StateCancelled, chain.links[0].State)
	assert.Equal(t, "CSV-BAJA", chain.links[0].CSV)
}

func TestCancelInvoiceRechazadaDevuelveError(t *testing.T) {
	uc, invoices, chain, client := newSubmitFixture(acceptAll)
	client.cancelFn = func(requests []aeat.AnulacionRequest) (*aeat.CancelResponse, error) {
		return &aeat.CancelResponse{
			EstadoEnvio: "Incorrecto",
			Lines: []aeat.LineResult{{
				SeriesNumber: requests[0].IDFactura.NumSerieFactura,
				State:        "Incorrecto",
				Code:         1100,
				Message:      "Registro de facturación no localizado",
			}},
		}, nil
	}
	inv := pendingInvoice("inv-1", "A-0001", 10)
	inv.State = domvf.StateAccepted
	inv.PendingSend = false
	invoices.add(inv)

	err := uc.CancelInvoice(context.Background(), "c-1", "inv-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rechazada")
	assert.Equal(t, domvf.StateAccepted, inv.State)
	assert.Empty(t, chain.links)
}

func TestCancelInvoiceExigeFacturaRegistrada(t *testing.T) {
	uc, invoices, _, _ := newSubmitFixture(acceptAll)
	invoices.add(pendingInvoice("inv-1", "A-0001", 10)) // aún pendiente

	err := uc.CancelInvoice(context.Background(), "c-1", "inv-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCancelInvoiceBajaYaTramitada(t *testing.T) {
	uc, invoices, _, client := newSubmitFixture(acceptAll)
	client.cancelFn = func(requests []aeat.AnulacionRequest) (*aeat.CancelResponse, error) {
		return &aeat.CancelResponse{
			EstadoEnvio: "Incorrecto",
			Lines: []aeat.LineResult{{
				SeriesNumber: requests[0].IDFactura.NumSerieFactura,
				State:        "Incorrecto",
				Code:         3001,
				Message:      "Registro de facturación ya anulado",
			}},
		}, nil
	}
	inv := pendingInvoice("inv-1", "A-0001", 10)
	inv.State = domvf.StateAccepted
	inv.PendingSend = false
	invoices.add(inv)

	err := uc.CancelInvoice(context.Background(), "c-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, domvf.StateCancelled, inv.State)
}
