package aeat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// ── Endpoints AEAT ────────────────────────────────────────────────────────────

const (
	soapURLProd = "https://www1.agenciatributaria.gob.es/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"
	soapURLTest = "https://prewww1.aeat.es/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"
)

// ── Cliente SOAP ──────────────────────────────────────────────────────────────

// Client llama a los tres servicios SOAP del sistema VERI*FACTU de la AEAT.
// El certificado de cliente se recibe en cada llamada y nunca se retiene:
// cada empresa autentica con su propio certificado.
type Client struct {
	endpoint string
	timeout  time.Duration
	maxBatch int
}

// NewClient construye el cliente para el entorno indicado. El timeout es
// generoso (60 s): la AEAT puede tardar varios segundos con lotes grandes.
func NewClient(production bool, maxBatch int) *Client {
	endpoint := soapURLTest
	if production {
		endpoint = soapURLProd
	}
	return &Client{
		endpoint: endpoint,
		timeout:  60 * time.Second,
		maxBatch: maxBatch,
	}
}

// WithEndpoint sustituye el endpoint (tests contra servidores locales).
func (c *Client) WithEndpoint(url string) *Client {
	c.endpoint = url
	return c
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName      xml.Name   `xml:"soapenv:Envelope"`
	XmlnsSoapenv string     `xml:"xmlns:soapenv,attr"`
	Header       soapHeader `xml:"soapenv:Header"`
	Body         soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	e.EncodeToken(start)
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// ── Operaciones ───────────────────────────────────────────────────────────────

// Submit remite un lote de registros de alta (RegFactuSistemaFacturacion).
// Un fallo de transporte afecta al lote completo y es reintentable; los
// fallos por registro vienen dentro de la respuesta, línea a línea.
func (c *Client) Submit(ctx context.Context, cert tls.Certificate, cab Cabecera,
	records []RegistroFactura) (*SubmitResponse, error) {

	if len(records) == 0 {
		return nil, fmt.Errorf("aeat: lote de envío vacío")
	}
	if len(records) > c.maxBatch {
		return nil, fmt.Errorf("aeat: lote de %d registros supera el máximo de %d",
			len(records), c.maxBatch)
	}

	raw, err := c.call(ctx, cert, &regFactuBody{
		XmlnsSum:  nsSumLR,
		XmlnsSum1: nsSumInfo,
		Cabecera:  cab,
		Registros: records,
	})
	if err != nil {
		return nil, err
	}

	estado, csv, lines, err := parseEnvio(raw)
	if err != nil {
		return nil, err
	}
	return &SubmitResponse{EstadoEnvio: estado, CSV: csv, Lines: lines}, nil
}

// Cancel remite bajas de facturas ya registradas (AnulacionLRFacturasEmitidas).
func (c *Client) Cancel(ctx context.Context, cert tls.Certificate, cab Cabecera,
	requests []AnulacionRequest) (*CancelResponse, error) {

	if len(requests) == 0 {
		return nil, fmt.Errorf("aeat: lote de anulación vacío")
	}

	raw, err := c.call(ctx, cert, &anulacionBody{
		XmlnsSum:    nsSumLR,
		XmlnsSum1:   nsSumInfo,
		Cabecera:    cab,
		Anulaciones: requests,
	})
	if err != nil {
		return nil, err
	}

	estado, csv, lines, err := parseEnvio(raw)
	if err != nil {
		return nil, err
	}
	return &CancelResponse{EstadoEnvio: estado, CSV: csv, Lines: lines}, nil
}

// Query consulta los registros que la AEAT tiene anotados para el emisor en
// un periodo (ConsultaFactuSistemaFacturacion). Paginada: repetir con el
// NextPageToken devuelto mientras HasMorePages.
func (c *Client) Query(ctx context.Context, cert tls.Certificate, cab Cabecera,
	filter QueryFilter) (*QueryResponse, error) {

	raw, err := c.call(ctx, cert, &consultaBody{
		XmlnsSum:  nsSumLR,
		XmlnsSum1: nsSumInfo,
		Cabecera:  cab,
		Filtro:    filter,
	})
	if err != nil {
		return nil, err
	}
	return parseConsulta(raw)
}

// ── Transporte ────────────────────────────────────────────────────────────────

// call serializa el envelope y lo envía con TLS mutuo. El http.Client se
// construye por llamada para que el certificado no sobreviva al ciclo.
func (c *Client) call(ctx context.Context, cert tls.Certificate, body interface{}) ([]byte, error) {
	envelope := soapEnvelope{
		XmlnsSoapenv: nsSoapEnv,
		Body:         soapBody{Content: body},
	}

	payload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("aeat: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("aeat: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	httpClient := &http.Client{
		Timeout: c.timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			},
		},
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("aeat: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("aeat: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20)) // max 8 MB
	if err != nil {
		return nil, fmt.Errorf("aeat: leer respuesta: %w", err)
	}

	// La AEAT devuelve los SOAP Fault con 500; el cuerpo trae el detalle.
	if fault := parseFault(raw); fault != "" {
		return nil, fmt.Errorf("aeat: SOAP Fault: %s", fault)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aeat: HTTP %d: %s", resp.StatusCode, truncate(raw, 512))
	}
	return raw, nil
}

// ── Parseo de respuestas ──────────────────────────────────────────────────────
//
// Las respuestas llegan con prefijos de namespace variables según el entorno,
// así que se parsean con etree buscando por nombre local en lugar de fijar
// las rutas completas.

func parseFault(raw []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return ""
	}
	fault := findFirst(doc.Root(), "Fault")
	if fault == nil {
		return ""
	}
	code := textOf(findFirst(fault, "faultcode"))
	msg := textOf(findFirst(fault, "faultstring"))
	return strings.TrimSpace(code + " " + msg)
}

func parseEnvio(raw []byte) (estado, csv string, lines []LineResult, err error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return "", "", nil, fmt.Errorf("aeat: respuesta no es XML: %w", err)
	}
	root := doc.Root()

	estado = textOf(findFirst(root, "EstadoEnvio"))
	if estado == "" {
		return "", "", nil, fmt.Errorf("aeat: respuesta sin EstadoEnvio: %s", truncate(raw, 512))
	}
	csv = textOf(findFirst(root, "CSV"))

	for _, line := range findAll(root, "RespuestaLinea") {
		lr := LineResult{
			SeriesNumber: textOf(findFirst(line, "NumSerieFactura")),
			IssueDate:    textOf(findFirst(line, "FechaExpedicionFactura")),
			State:        textOf(findFirst(line, "EstadoRegistro")),
			Message:      textOf(findFirst(line, "DescripcionErrorRegistro")),
		}
		if s := textOf(findFirst(line, "CodigoErrorRegistro")); s != "" {
			lr.Code, _ = strconv.Atoi(s)
		}
		lines = append(lines, lr)
	}
	return estado, csv, lines, nil
}

func parseConsulta(raw []byte) (*QueryResponse, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("aeat: respuesta no es XML: %w", err)
	}
	root := doc.Root()

	out := &QueryResponse{}
	for _, entry := range findAll(root, "RegistroRespuestaConsultaFactuSistemaFacturacion") {
		qe := QueryEntry{
			SeriesNumber: textOf(findFirst(entry, "NumSerieFactura")),
			IssueDate:    textOf(findFirst(entry, "FechaExpedicionFactura")),
			Fingerprint:  textOf(findFirst(entry, "Huella")),
		}
		// EstadoRegistro es un bloque que contiene a su vez EstadoRegistro.
		if est := findFirst(entry, "EstadoRegistro"); est != nil {
			if nested := findFirst(est, "EstadoRegistro"); nested != nil {
				est = nested
			}
			qe.State = textOf(est)
		}
		out.Entries = append(out.Entries, qe)
	}

	out.HasMorePages = textOf(findFirst(root, "IndicadorPaginacion")) == "S"
	if out.HasMorePages {
		out.NextPageToken = textOf(findFirst(root, "ClavePaginacion"))
	}
	return out, nil
}

// findFirst busca en profundidad el primer descendiente con ese nombre local.
// No incluye el propio elemento.
func findFirst(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
		if found := findFirst(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// findAll recoge todos los descendientes con ese nombre local, en orden de
// documento, sin descender dentro de los encontrados.
func findAll(el *etree.Element, tag string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			out = append(out, child)
			continue
		}
		out = append(out, findAll(child, tag)...)
	}
	return out
}

func textOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
