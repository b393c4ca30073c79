// Package aeat implementa el formato de hilo y el cliente SOAP del servicio
// de Suministro de Registros de Facturación VERI*FACTU de la AEAT.
package aeat

import "encoding/xml"

// Namespaces del esquema SuministroLR / SuministroInformacion de la AEAT.
const (
	nsSoapEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	nsSumLR   = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroLR.xsd"
	nsSumInfo = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroInformacion.xsd"
)

// IDVersion del esquema soportado.
const IDVersion = "1.0"

// TipoHuella: "01" = SHA-256, único algoritmo admitido.
const TipoHuella = "01"

// ── Bloques comunes ───────────────────────────────────────────────────────────

// ObligadoEmision identifica al emisor obligado en la cabecera.
type ObligadoEmision struct {
	NombreRazon string `xml:"sum1:NombreRazon"`
	NIF         string `xml:"sum1:NIF"`
}

// Cabecera es el bloque de cabecera común a todas las operaciones.
type Cabecera struct {
	IDVersion       string          `xml:"sum1:IDVersion"`
	ObligadoEmision ObligadoEmision `xml:"sum1:ObligadoEmision"`
}

// SistemaInformatico identifica al software productor ante la AEAT.
type SistemaInformatico struct {
	NombreRazon                 string `xml:"sum1:NombreRazon"`
	NIF                         string `xml:"sum1:NIF"`
	NombreSistemaInformatico    string `xml:"sum1:NombreSistemaInformatico"`
	IdSistemaInformatico        string `xml:"sum1:IdSistemaInformatico"`
	Version                     string `xml:"sum1:Version"`
	NumeroInstalacion           string `xml:"sum1:NumeroInstalacion"`
	TipoUsoPosibleSoloVerifactu string `xml:"sum1:TipoUsoPosibleSoloVerifactu"`
	TipoUsoPosibleMultiOT       string `xml:"sum1:TipoUsoPosibleMultiOT"`
	IndicadorMultiplesOT        string `xml:"sum1:IndicadorMultiplesOT"`
}

// IDFactura identifica una factura: emisor, serie y fecha de expedición.
type IDFactura struct {
	IDEmisorFactura        string `xml:"sum1:IDEmisorFactura"`
	NumSerieFactura        string `xml:"sum1:NumSerieFactura"`
	FechaExpedicionFactura string `xml:"sum1:FechaExpedicionFactura"` // DD-MM-YYYY
}

// IDOtro identifica a un destinatario sin NIF español.
type IDOtro struct {
	CodigoPais string `xml:"sum1:CodigoPais"`
	IDType     string `xml:"sum1:IDType"`
	ID         string `xml:"sum1:ID"`
}

// IDDestinatario es la identidad del destinatario de la factura.
type IDDestinatario struct {
	NombreRazon string  `xml:"sum1:NombreRazon"`
	NIF         string  `xml:"sum1:NIF,omitempty"`
	IDOtro      *IDOtro `xml:"sum1:IDOtro,omitempty"`
}

// Destinatarios envuelve los destinatarios del registro. Se omite por
// completo en facturas simplificadas.
type Destinatarios struct {
	IDDestinatario []IDDestinatario `xml:"sum1:IDDestinatario"`
}

// DetalleDesglose es una línea del desglose de impuestos.
// O bien CalificacionOperacion (+tipo y cuota) o bien OperacionExenta.
type DetalleDesglose struct {
	ClaveRegimen                  string `xml:"sum1:ClaveRegimen"`
	CalificacionOperacion         string `xml:"sum1:CalificacionOperacion,omitempty"`
	OperacionExenta               string `xml:"sum1:OperacionExenta,omitempty"`
	TipoImpositivo                string `xml:"sum1:TipoImpositivo,omitempty"`
	BaseImponibleOimporteNoSujeto string `xml:"sum1:BaseImponibleOimporteNoSujeto"`
	CuotaRepercutida              string `xml:"sum1:CuotaRepercutida,omitempty"`
	TipoRecargoEquivalencia       string `xml:"sum1:TipoRecargoEquivalencia,omitempty"`
	CuotaRecargoEquivalencia      string `xml:"sum1:CuotaRecargoEquivalencia,omitempty"`
}

// Desglose agrupa las líneas de desglose.
type Desglose struct {
	DetalleDesglose []DetalleDesglose `xml:"sum1:DetalleDesglose"`
}

// RegistroAnterior referencia el registro precedente de la cadena.
type RegistroAnterior struct {
	IDEmisorFactura        string `xml:"sum1:IDEmisorFactura"`
	NumSerieFactura        string `xml:"sum1:NumSerieFactura"`
	FechaExpedicionFactura string `xml:"sum1:FechaExpedicionFactura"`
	Huella                 string `xml:"sum1:Huella"`
}

// Encadenamiento enlaza el registro con su predecesor, o lo declara primero.
type Encadenamiento struct {
	PrimerRegistro   string            `xml:"sum1:PrimerRegistro,omitempty"` // "S"
	RegistroAnterior *RegistroAnterior `xml:"sum1:RegistroAnterior,omitempty"`
}

// FacturasRectificadas referencia las facturas sustituidas por una
// rectificativa.
type FacturasRectificadas struct {
	IDFacturaRectificada []IDFactura `xml:"sum1:IDFacturaRectificada"`
}

// RegistroAlta es el registro de facturación de alta que viaja a la AEAT.
type RegistroAlta struct {
	IDVersion                string                `xml:"sum1:IDVersion"`
	IDFactura                IDFactura             `xml:"sum1:IDFactura"`
	NombreRazonEmisor        string                `xml:"sum1:NombreRazonEmisor"`
	Subsanacion              string                `xml:"sum1:Subsanacion,omitempty"`   // "S" en reenvíos corregidos
	RechazoPrevio            string                `xml:"sum1:RechazoPrevio,omitempty"` // "S" si hubo rechazo previo
	TipoFactura              string                `xml:"sum1:TipoFactura"`
	TipoRectificativa        string                `xml:"sum1:TipoRectificativa,omitempty"` // solo "I" (sustitutiva)
	FacturasRectificadas     *FacturasRectificadas `xml:"sum1:FacturasRectificadas,omitempty"`
	DescripcionOperacion     string                `xml:"sum1:DescripcionOperacion"`
	Destinatarios            *Destinatarios        `xml:"sum1:Destinatarios,omitempty"`
	Desglose                 Desglose              `xml:"sum1:Desglose"`
	CuotaTotal               string                `xml:"sum1:CuotaTotal"`
	ImporteTotal             string                `xml:"sum1:ImporteTotal"`
	Encadenamiento           Encadenamiento        `xml:"sum1:Encadenamiento"`
	SistemaInformatico       SistemaInformatico    `xml:"sum1:SistemaInformatico"`
	FechaHoraHusoGenRegistro string                `xml:"sum1:FechaHoraHusoGenRegistro"`
	TipoHuella               string                `xml:"sum1:TipoHuella"`
	Huella                   string                `xml:"sum1:Huella"`
}

// RegistroFactura envuelve un alta dentro del cuerpo de RegFactu.
type RegistroFactura struct {
	RegistroAlta *RegistroAlta `xml:"sum:RegistroAlta,omitempty"`
}

// PeriodoLiquidacion identifica ejercicio y periodo de una baja.
type PeriodoLiquidacion struct {
	Ejercicio string `xml:"sum1:Ejercicio"`
	Periodo   string `xml:"sum1:Periodo"` // "01".."12"
}

// AnulacionRequest es una petición de baja de factura remitida.
type AnulacionRequest struct {
	PeriodoLiquidacion PeriodoLiquidacion `xml:"sum1:PeriodoLiquidacion"`
	IDFactura          IDFactura          `xml:"sum1:IDFactura"`
}

// PeriodoImputacion filtra la consulta por ejercicio y periodo.
type PeriodoImputacion struct {
	Ejercicio string `xml:"sum1:Ejercicio"`
	Periodo   string `xml:"sum1:Periodo"`
}

// QueryFilter es el filtro de ConsultaFactuSistemaFacturacion.
type QueryFilter struct {
	PeriodoImputacion  PeriodoImputacion  `xml:"sum1:PeriodoImputacion"`
	SistemaInformatico SistemaInformatico `xml:"sum1:SistemaInformatico"`
	ClavePaginacion    string             `xml:"sum1:ClavePaginacion,omitempty"`
}

// ── Cuerpos SOAP de cada operación ────────────────────────────────────────────

type regFactuBody struct {
	XMLName   xml.Name          `xml:"sum:RegFactuSistemaFacturacion"`
	XmlnsSum  string            `xml:"xmlns:sum,attr"`
	XmlnsSum1 string            `xml:"xmlns:sum1,attr"`
	Cabecera  Cabecera          `xml:"sum:Cabecera"`
	Registros []RegistroFactura `xml:"sum:RegistroFactura"`
}

type anulacionBody struct {
	XMLName     xml.Name           `xml:"sum:AnulacionLRFacturasEmitidas"`
	XmlnsSum    string             `xml:"xmlns:sum,attr"`
	XmlnsSum1   string             `xml:"xmlns:sum1,attr"`
	Cabecera    Cabecera           `xml:"sum:Cabecera"`
	Anulaciones []AnulacionRequest `xml:"sum:RegistroAnulacion"`
}

type consultaBody struct {
	XMLName   xml.Name    `xml:"sum:ConsultaFactuSistemaFacturacion"`
	XmlnsSum  string      `xml:"xmlns:sum,attr"`
	XmlnsSum1 string      `xml:"xmlns:sum1,attr"`
	Cabecera  Cabecera    `xml:"sum:Cabecera"`
	Filtro    QueryFilter `xml:"sum:FiltroConsulta"`
}

// ── Respuestas ya normalizadas ────────────────────────────────────────────────

// LineResult es el resultado por línea de un envío.
type LineResult struct {
	SeriesNumber string // NumSerieFactura del IDFactura devuelto
	IssueDate    string // FechaExpedicionFactura (DD-MM-YYYY)
	State        string // EstadoRegistro crudo (Correcto, Incorrecto, ...)
	Code         int    // CodigoErrorRegistro (0 si no viene)
	Message      string // DescripcionErrorRegistro
}

// SubmitResponse es la respuesta de RegFactuSistemaFacturacion.
type SubmitResponse struct {
	EstadoEnvio string // Correcto | ParcialmenteCorrecto | Incorrecto
	CSV         string
	Lines       []LineResult
}

// CancelResponse es el acuse de AnulacionLRFacturasEmitidas.
type CancelResponse struct {
	EstadoEnvio string
	CSV         string
	Lines       []LineResult
}

// QueryEntry es una entrada del libro remoto devuelta por la consulta.
type QueryEntry struct {
	SeriesNumber string // IDFactura.NumSerieFactura
	IssueDate    string // IDFactura.FechaExpedicionFactura (DD-MM-YYYY)
	Fingerprint  string // DatosRegistroFacturacion.Huella
	State        string // EstadoRegistro.EstadoRegistro
}

// QueryResponse es la página de resultados de la consulta.
type QueryResponse struct {
	Entries       []QueryEntry
	HasMorePages  bool   // IndicadorPaginacion == "S"
	NextPageToken string // ClavePaginacion para la página siguiente
}
