package verifactu

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Formato de fecha de expedición exigido por la AEAT en la cadena de huella.
const dateFmt = "02-01-2006"

// TimestampFmt es el formato del FechaHoraHusoGenRegistro: ISO-8601 con
// offset y precisión de segundos, generado en zona Europe/Madrid.
const TimestampFmt = "2006-01-02T15:04:05-07:00"

// HuellaParams contiene los campos de la cadena de huella en el orden
// estricto de la Orden HAC/1177/2024.
type HuellaParams struct {
	IssuerTaxID  string          // NIF del obligado a expedir
	SeriesNumber string          // NumSerieFactura
	IssueDate    time.Time       // FechaExpedicionFactura (solo fecha)
	OperationKey OperationKey    // TipoFactura
	TotalTax     decimal.Decimal // CuotaTotal
	TotalAmount  decimal.Decimal // ImporteTotal
	Previous     string          // Huella del registro anterior; vacía si primer registro
	GeneratedAt  string          // FechaHoraHusoGenRegistro ya formateado (TimestampFmt)
}

// HuellaService calcula la huella SHA-256 del registro de facturación.
// Función pura: mismas entradas, misma salida, bit a bit.
type HuellaService struct{}

// NewHuellaService crea el servicio.
func NewHuellaService() *HuellaService {
	return &HuellaService{}
}

// Calculate genera la huella: cadena clave=valor unida por '&', UTF-8,
// SHA-256, hexadecimal en mayúsculas (64 caracteres).
func (s *HuellaService) Calculate(p *HuellaParams) (string, error) {
	chain, err := s.Chain(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(chain))
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

// Chain construye la cadena canónica sin hashear. Expuesta para poder
// verificar el orden de campos en tests y auditorías.
func (s *HuellaService) Chain(p *HuellaParams) (string, error) {
	if p == nil {
		return "", fmt.Errorf("verifactu: HuellaParams es obligatorio")
	}
	if p.IssuerTaxID == "" {
		return "", fmt.Errorf("verifactu: IDEmisorFactura es obligatorio para la huella")
	}
	if p.SeriesNumber == "" {
		return "", fmt.Errorf("verifactu: NumSerieFactura es obligatorio para la huella")
	}
	if p.IssueDate.IsZero() {
		return "", fmt.Errorf("verifactu: FechaExpedicionFactura es obligatoria para la huella")
	}
	if !p.OperationKey.Valid() {
		return "", fmt.Errorf("verifactu: TipoFactura %q fuera de la lista L2", p.OperationKey)
	}
	if p.GeneratedAt == "" {
		return "", fmt.Errorf("verifactu: FechaHoraHusoGenRegistro es obligatorio para la huella")
	}

	// Orden de campos fijado por reglamento; no reordenar.
	chain := "IDEmisorFactura=" + p.IssuerTaxID +
		"&NumSerieFactura=" + p.SeriesNumber +
		"&FechaExpedicionFactura=" + p.IssueDate.Format(dateFmt) +
		"&TipoFactura=" + string(p.OperationKey) +
		"&CuotaTotal=" + FormatAmount(p.TotalTax) +
		"&ImporteTotal=" + FormatAmount(p.TotalAmount) +
		"&Huella=" + p.Previous +
		"&FechaHoraHusoGenRegistro=" + p.GeneratedAt
	return chain, nil
}

// FormatAmount formatea un importe para la cadena y el registro: punto
// decimal, dos decimales, sin separador de miles (ej: 110.00).
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// FormatIssueDate formatea una fecha de expedición como DD-MM-YYYY.
func FormatIssueDate(t time.Time) string {
	return t.Format(dateFmt)
}

// MadridTimestamp formatea un instante en la zona Europe/Madrid con el
// formato exigido. El instante se captura una sola vez por registro y se
// reutiliza entre la huella y el registro emitido.
func MadridTimestamp(t time.Time) (string, error) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		return "", fmt.Errorf("verifactu: cargar zona Europe/Madrid: %w", err)
	}
	return t.In(loc).Truncate(time.Second).Format(TimestampFmt), nil
}
