package aeat

import (
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// URLs de cotejo del QR tributario (servicio ValidarQR de la AEAT).
const (
	qrURLProduction = "https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR"
	qrURLTest       = "https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR"
)

// QRURL construye la URL de validación que debe incorporarse al QR de la
// factura: NIF del emisor, número de serie, fecha de expedición e importe.
// Devuelve cadena vacía si falta algún dato obligatorio.
func QRURL(production bool, nif, seriesNumber string, issueDate time.Time, total decimal.Decimal) string {
	if nif == "" || seriesNumber == "" || issueDate.IsZero() {
		return ""
	}
	base := qrURLTest
	if production {
		base = qrURLProduction
	}
	params := url.Values{}
	params.Set("nif", nif)
	params.Set("numserie", seriesNumber)
	params.Set("fecha", issueDate.Format("02-01-2006"))
	params.Set("importe", total.Round(2).StringFixed(2))
	return base + "?" + params.Encode()
}
