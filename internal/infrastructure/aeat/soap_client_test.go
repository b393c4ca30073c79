package aeat

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const submitResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <tikR:RespuestaRegFactuSistemaFacturacion xmlns:tikR="https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/RespuestaSuministro.xsd">
      <tikR:CSV>CSV-TEST-123</tikR:CSV>
      <tikR:EstadoEnvio>ParcialmenteCorrecto</tikR:EstadoEnvio>
      <tikR:RespuestaLinea>
        <tikR:IDFactura>
          <tikR:NumSerieFactura>INV-2025-0001</tikR:NumSerieFactura>
          <tikR:FechaExpedicionFactura>15-01-2025</tikR:FechaExpedicionFactura>
        </tikR:IDFactura>
        <tikR:EstadoRegistro>Correcto</tikR:EstadoRegistro>
      </tikR:RespuestaLinea>
      <tikR:RespuestaLinea>
        <tikR:IDFactura>
          <tikR:NumSerieFactura>INV-2025-0002</tikR:NumSerieFactura>
          <tikR:FechaExpedicionFactura>16-01-2025</tikR:FechaExpedicionFactura>
        </tikR:IDFactura>
        <tikR:EstadoRegistro>Incorrecto</tikR:EstadoRegistro>
        <tikR:CodigoErrorRegistro>3000</tikR:CodigoErrorRegistro>
        <tikR:DescripcionErrorRegistro>Registro duplicado</tikR:DescripcionErrorRegistro>
      </tikR:RespuestaLinea>
    </tikR:RespuestaRegFactuSistemaFacturacion>
  </env:Body>
</env:Envelope>`

const consultaResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <con:RespuestaConsultaFactuSistemaFacturacion xmlns:con="https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/ConsultaLR.xsd">
      <con:IndicadorPaginacion>S</con:IndicadorPaginacion>
      <con:ClavePaginacion>PAGE-2</con:ClavePaginacion>
      <con:RegistroRespuestaConsultaFactuSistemaFacturacion>
        <con:IDFactura>
          <con:NumSerieFactura>INV-2025-0001</con:NumSerieFactura>
          <con:FechaExpedicionFactura>15-01-2025</con:FechaExpedicionFactura>
        </con:IDFactura>
        <con:DatosRegistroFacturacion>
          <con:Huella>9DBCE01A3C99D9C7366F73959A9D9707BCFE5D2E48480BC4A8262A2C60DF76E4</con:Huella>
        </con:DatosRegistroFacturacion>
        <con:EstadoRegistro>
          <con:TimestampUltimaModificacion>2025-01-15T10:30:00+01:00</con:TimestampUltimaModificacion>
          <con:EstadoRegistro>Correcta</con:EstadoRegistro>
        </con:EstadoRegistro>
      </con:RegistroRespuestaConsultaFactuSistemaFacturacion>
    </con:RespuestaConsultaFactuSistemaFacturacion>
  </env:Body>
</env:Envelope>`

const faultResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <env:Fault>
      <faultcode>env:Client</faultcode>
      <faultstring>Certificado no admitido</faultstring>
    </env:Fault>
  </env:Body>
</env:Envelope>`

func testCabecera() Cabecera {
	return Cabecera{
		IDVersion: IDVersion,
		ObligadoEmision: ObligadoEmision{
			NombreRazon: "Construcciones Perez SL",
			NIF:         "B65247983",
		},
	}
}

func testRecords(n int) []RegistroFactura {
	out := make([]RegistroFactura, n)
	for i := range out {
		out[i] = RegistroFactura{RegistroAlta: &RegistroAlta{
			IDVersion:   IDVersion,
			TipoFactura: "F1",
		}}
	}
	return out
}

func TestSubmitParseaRespuestaPorLinea(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(submitResponseXML))
	}))
	defer srv.Close()

	c := NewClient(false, 300).WithEndpoint(srv.URL)
	resp, err := c.Submit(context.Background(), tls.Certificate{}, testCabecera(), testRecords(2))
	require.NoError(t, err)

	assert.Equal(t, "ParcialmenteCorrecto", resp.EstadoEnvio)
	assert.Equal(t, "CSV-TEST-123", resp.CSV)
	require.Len(t, resp.Lines, 2)

	assert.Equal(t, "INV-2025-0001", resp.Lines[0].SeriesNumber)
	assert.Equal(t, "Correcto", resp.Lines[0].State)
	assert.Zero(t, resp.Lines[0].Code)

	assert.Equal(t, "INV-2025-0002", resp.Lines[1].SeriesNumber)
	assert.Equal(t, "Incorrecto", resp.Lines[1].State)
	assert.Equal(t, 3000, resp.Lines[1].Code)
	assert.Equal(t, "Registro duplicado", resp.Lines[1].Message)

	// El envelope enviado lleva la cabecera y los registros con sus prefijos.
	body := string(gotBody)
	assert.Contains(t, body, "sum:RegFactuSistemaFacturacion")
	assert.Contains(t, body, "<sum1:NIF>B65247983</sum1:NIF>")
	assert.Contains(t, body, "sum:RegistroFactura")
}

func TestSubmitRechazaLoteVacioOExcesivo(t *testing.T) {
	c := NewClient(false, 300)

	_, err := c.Submit(context.Background(), tls.Certificate{}, testCabecera(), nil)
	assert.Error(t, err)

	_, err = c.Submit(context.Background(), tls.Certificate{}, testCabecera(), testRecords(301))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "301")
}

func TestSubmitSOAPFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(faultResponseXML))
	}))
	defer srv.Close()

	c := NewClient(false, 300).WithEndpoint(srv.URL)
	_, err := c.Submit(context.Background(), tls.Certificate{}, testCabecera(), testRecords(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Certificado no admitido")
}

func TestSubmitErrorDeTransporte(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // el servidor ya no escucha: la llamada debe fallar entera

	c := NewClient(false, 300).WithEndpoint(srv.URL)
	_, err := c.Submit(context.Background(), tls.Certificate{}, testCabecera(), testRecords(1))
	assert.Error(t, err)
}

func TestQueryParseaPaginaYEstadoAnidado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(consultaResponseXML))
	}))
	defer srv.Close()

	c := NewClient(false, 300).WithEndpoint(srv.URL)
	resp, err := c.Query(context.Background(), tls.Certificate{}, testCabecera(), QueryFilter{
		PeriodoImputacion: PeriodoImputacion{Ejercicio: "2025", Periodo: "01"},
	})
	require.NoError(t, err)

	require.Len(t, resp.Entries, 1)
	e := resp.Entries[0]
	assert.Equal(t, "INV-2025-0001", e.SeriesNumber)
	assert.Equal(t, "15-01-2025", e.IssueDate)
	assert.Equal(t, "9DBCE01A3C99D9C7366F73959A9D9707BCFE5D2E48480BC4A8262A2C60DF76E4", e.Fingerprint)
	assert.Equal(t, "Correcta", e.State, "se toma el EstadoRegistro interior, no el bloque")

	assert.True(t, resp.HasMorePages)
	assert.Equal(t, "PAGE-2", resp.NextPageToken)
}

func TestCancelParseaAcuse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(submitResponseXML))
	}))
	defer srv.Close()

	c := NewClient(false, 300).WithEndpoint(srv.URL)
	resp, err := c.Cancel(context.Background(), tls.Certificate{}, testCabecera(), []AnulacionRequest{{
		PeriodoLiquidacion: PeriodoLiquidacion{Ejercicio: "2025", Periodo: "01"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "CSV-TEST-123", resp.CSV)
	require.Len(t, resp.Lines, 2)
}
