package aeat

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturalia/verifactu-api/internal/domain/entity"
	"github.com/facturalia/verifactu-api/internal/domain/verifactu"
	pkgaeat "github.com/facturalia/verifactu-api/pkg/aeat"
)

// ValidationError marca un registro que la empresa nunca podrá enviar tal
// cual: datos de la factura incompatibles con el esquema. No es reintentable;
// el ciclo de envío lo excluye del lote sin abortar el resto.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "aeat: registro inválido: " + e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// BuiltRecord es el resultado de construir un registro de alta: el registro
// listo para serializar más los datos que persisten en el eslabón local.
type BuiltRecord struct {
	Registro    *RegistroAlta
	Fingerprint string
	GeneratedAt string // FechaHoraHusoGenRegistro emitido
	TotalTax    decimal.Decimal
	TotalAmount decimal.Decimal
}

// RecordBuilder convierte facturas del dominio en registros de alta.
// Función pura salvo por el instante de generación que recibe como argumento.
type RecordBuilder struct {
	huella  *verifactu.HuellaService
	sistema SistemaInformatico
}

// NewRecordBuilder crea el builder con el bloque SistemaInformatico fijo
// que acompaña a todos los registros del software.
func NewRecordBuilder(sistema SistemaInformatico) *RecordBuilder {
	return &RecordBuilder{
		huella:  verifactu.NewHuellaService(),
		sistema: sistema,
	}
}

// Sistema devuelve el bloque SistemaInformatico configurado.
func (b *RecordBuilder) Sistema() SistemaInformatico {
	return b.sistema
}

// BuildAlta construye el registro de alta de una factura: desglose, totales,
// destinatarios, encadenamiento con el eslabón anterior y huella. rectified
// es la factura rectificada (solo claves R) y prev el eslabón predecesor de
// la cadena (nil en el primer registro de la empresa).
func (b *RecordBuilder) BuildAlta(company *entity.Company, invoice *entity.Invoice,
	rectified *entity.InvoiceRef, prev *entity.ChainLink, now time.Time) (*BuiltRecord, error) {

	if !invoice.OperationKey.Valid() {
		return nil, validationErrorf("TipoFactura %q fuera de la lista L2", invoice.OperationKey)
	}
	if !invoice.CheckSubjectionCompatibility() {
		return nil, validationErrorf(
			"inversión del sujeto pasivo (S2) incompatible con TipoFactura %s", invoice.OperationKey)
	}
	if len(invoice.TaxLines) == 0 {
		return nil, validationErrorf("factura %s sin líneas de impuestos", invoice.SeriesNumber)
	}

	lines, err := foldSurcharges(invoice.TaxLines)
	if err != nil {
		return nil, err
	}

	desglose, err := buildDesglose(lines)
	if err != nil {
		return nil, err
	}
	cuotaTotal, importeTotal := ComputeTotals(lines)

	destinatarios, err := buildDestinatarios(invoice, lines)
	if err != nil {
		return nil, err
	}

	generatedAt, err := verifactu.MadridTimestamp(now)
	if err != nil {
		return nil, err
	}

	prevHuella := ""
	encadenamiento := Encadenamiento{PrimerRegistro: "S"}
	if prev != nil {
		prevHuella = prev.Fingerprint
		encadenamiento = Encadenamiento{RegistroAnterior: &RegistroAnterior{
			IDEmisorFactura:        prev.IssuerTaxID,
			NumSerieFactura:        prev.SeriesNumber,
			FechaExpedicionFactura: verifactu.FormatIssueDate(prev.IssueDate),
			Huella:                 prev.Fingerprint,
		}}
	}

	huella, err := b.huella.Calculate(&verifactu.HuellaParams{
		IssuerTaxID:  company.NIF,
		SeriesNumber: invoice.SeriesNumber,
		IssueDate:    invoice.IssueDate,
		OperationKey: invoice.OperationKey,
		TotalTax:     cuotaTotal,
		TotalAmount:  importeTotal,
		Previous:     prevHuella,
		GeneratedAt:  generatedAt,
	})
	if err != nil {
		return nil, err
	}

	reg := &RegistroAlta{
		IDVersion: IDVersion,
		IDFactura: IDFactura{
			IDEmisorFactura:        company.NIF,
			NumSerieFactura:        invoice.SeriesNumber,
			FechaExpedicionFactura: verifactu.FormatIssueDate(invoice.IssueDate),
		},
		NombreRazonEmisor:        pkgaeat.Unaccent(company.Name),
		TipoFactura:              string(invoice.OperationKey),
		DescripcionOperacion:     pkgaeat.Unaccent(invoice.Description),
		Destinatarios:            destinatarios,
		Desglose:                 Desglose{DetalleDesglose: desglose},
		CuotaTotal:               verifactu.FormatAmount(cuotaTotal),
		ImporteTotal:             verifactu.FormatAmount(importeTotal),
		Encadenamiento:           encadenamiento,
		SistemaInformatico:       b.sistema,
		FechaHoraHusoGenRegistro: generatedAt,
		TipoHuella:               TipoHuella,
		Huella:                   huella,
	}

	if invoice.PreviousRejected {
		reg.Subsanacion = "S"
		reg.RechazoPrevio = "S"
	}

	if invoice.OperationKey.IsRectifying() {
		// Solo rectificación por sustitución; la diferencial no se emite.
		reg.TipoRectificativa = "I"
		if rectified != nil {
			reg.FacturasRectificadas = &FacturasRectificadas{
				IDFacturaRectificada: []IDFactura{{
					IDEmisorFactura:        company.NIF,
					NumSerieFactura:        rectified.SeriesNumber,
					FechaExpedicionFactura: verifactu.FormatIssueDate(rectified.IssueDate),
				}},
			}
		}
	}

	return &BuiltRecord{
		Registro:    reg,
		Fingerprint: huella,
		GeneratedAt: generatedAt,
		TotalTax:    cuotaTotal,
		TotalAmount: importeTotal,
	}, nil
}

// BuildCancel construye la petición de baja de una factura ya remitida.
func (b *RecordBuilder) BuildCancel(company *entity.Company, invoice *entity.Invoice) AnulacionRequest {
	return AnulacionRequest{
		PeriodoLiquidacion: PeriodoLiquidacion{
			Ejercicio: fmt.Sprintf("%d", invoice.IssueDate.Year()),
			Periodo:   pkgaeat.FormatPeriod(int(invoice.IssueDate.Month())),
		},
		IDFactura: IDFactura{
			IDEmisorFactura:        company.NIF,
			NumSerieFactura:        invoice.SeriesNumber,
			FechaExpedicionFactura: verifactu.FormatIssueDate(invoice.IssueDate),
		},
	}
}

// foldSurcharges pliega las líneas de recargo de equivalencia dentro de su
// línea de IVA acompañante (misma base imponible). Tras el plegado no queda
// ninguna línea IsSurcharge suelta.
func foldSurcharges(lines []entity.TaxLine) ([]entity.TaxLine, error) {
	out := make([]entity.TaxLine, 0, len(lines))
	for _, l := range lines {
		if !l.IsSurcharge {
			out = append(out, l)
		}
	}
	for _, s := range lines {
		if !s.IsSurcharge {
			continue
		}
		matched := false
		for i := range out {
			if out[i].HasSurcharge || !out[i].Base.Equal(s.Base) {
				continue
			}
			out[i].SurchargeRate = s.Rate
			out[i].SurchargeAmount = s.Amount
			out[i].HasSurcharge = true
			matched = true
			break
		}
		if !matched {
			return nil, validationErrorf(
				"recargo de equivalencia sin línea de IVA con base %s", verifactu.FormatAmount(s.Base))
		}
	}
	return out, nil
}

// buildDesglose convierte las líneas ya plegadas en DetalleDesglose.
func buildDesglose(lines []entity.TaxLine) ([]DetalleDesglose, error) {
	out := make([]DetalleDesglose, 0, len(lines))
	for _, l := range lines {
		d := DetalleDesglose{
			ClaveRegimen:                  string(l.RegimeKey),
			BaseImponibleOimporteNoSujeto: verifactu.FormatAmount(l.Base),
		}
		if l.RegimeKey == "" {
			d.ClaveRegimen = string(verifactu.RegimeGeneral)
		}

		switch {
		case l.ExemptionCause == verifactu.NotSubject:
			d.CalificacionOperacion = string(verifactu.SubN1)
		case l.ExemptionCause != "":
			if !l.ExemptionCause.Valid() {
				return nil, validationErrorf("causa de exención %q fuera de la lista L10", l.ExemptionCause)
			}
			d.OperacionExenta = string(l.ExemptionCause)
		default:
			key := l.SubjectionKey
			if key == "" {
				key = verifactu.SubS1
			}
			if !key.Valid() {
				return nil, validationErrorf("calificación %q fuera de la lista L9", key)
			}
			d.CalificacionOperacion = string(key)
			if key == verifactu.SubS1 || key == verifactu.SubS2 {
				d.TipoImpositivo = pkgaeat.RateToPercent(l.Rate).StringFixed(2)
				d.CuotaRepercutida = verifactu.FormatAmount(l.Amount)
			}
		}

		if l.HasSurcharge {
			// El recargo fuerza la clave de régimen por encima de la configurada.
			d.ClaveRegimen = string(verifactu.RegimeSurcharge)
			d.TipoRecargoEquivalencia = pkgaeat.RateToPercent(l.SurchargeRate).StringFixed(2)
			d.CuotaRecargoEquivalencia = verifactu.FormatAmount(l.SurchargeAmount)
		}
		out = append(out, d)
	}
	return out, nil
}

// ComputeTotals calcula CuotaTotal e ImporteTotal de líneas ya plegadas.
// La base de un mismo impuesto padre repetida en varias líneas cuenta una
// sola vez en el importe total; las cuotas se suman siempre. El recargo de
// equivalencia entra en el importe pero nunca en la cuota: CuotaTotal es
// solo la suma de cuotas de IVA.
func ComputeTotals(lines []entity.TaxLine) (cuota, importe decimal.Decimal) {
	type baseKey struct {
		parent string
		base   string
	}
	seen := make(map[baseKey]bool)

	var recargo decimal.Decimal
	for _, l := range lines {
		cuota = cuota.Add(l.Amount)
		if l.HasSurcharge {
			recargo = recargo.Add(l.SurchargeAmount)
		}
		k := baseKey{parent: l.ParentTaxID, base: l.Base.String()}
		if !seen[k] {
			seen[k] = true
			importe = importe.Add(l.Base)
		}
	}
	importe = importe.Add(cuota).Add(recargo)
	return cuota.Round(2), importe.Round(2)
}

// buildDestinatarios construye el bloque de destinatarios. Las facturas
// simplificadas (F2, F3, R5) no identifican al receptor y el bloque se omite
// por completo.
func buildDestinatarios(invoice *entity.Invoice, lines []entity.TaxLine) (*Destinatarios, error) {
	if invoice.OperationKey.IsSimplified() {
		return nil, nil
	}
	cp := invoice.Counterpart
	if cp == nil {
		return nil, validationErrorf("factura %s de tipo %s sin destinatario",
			invoice.SeriesNumber, invoice.OperationKey)
	}
	if cp.IdentifierType == verifactu.IDTypeSimplified {
		return nil, nil
	}

	// Las entregas intracomunitarias exentas (E5) exigen NIF-IVA del receptor.
	for _, l := range lines {
		if l.ExemptionCause == verifactu.ExemptE5 && cp.IdentifierType != verifactu.IDTypeIntraVAT {
			return nil, validationErrorf(
				"exención E5 exige destinatario con NIF-IVA intracomunitario (IDType 02)")
		}
	}

	dest := IDDestinatario{NombreRazon: pkgaeat.Unaccent(cp.Name)}
	switch {
	case cp.IdentifierType.IsOther():
		country := cp.Country
		if country == "" {
			return nil, validationErrorf("destinatario con IDOtro sin código de país")
		}
		taxID := cp.TaxID
		if cp.IdentifierType == verifactu.IDTypeIntraVAT {
			taxID = pkgaeat.StripESPrefix(taxID)
		}
		dest.IDOtro = &IDOtro{
			CodigoPais: country,
			IDType:     string(cp.IdentifierType),
			ID:         taxID,
		}
	default:
		nif := pkgaeat.StripESPrefix(cp.TaxID)
		if err := pkgaeat.ValidateNIF(nif); err != nil {
			return nil, validationErrorf("NIF del destinatario inválido: %v", err)
		}
		dest.NIF = nif
	}

	return &Destinatarios{IDDestinatario: []IDDestinatario{dest}}, nil
}
