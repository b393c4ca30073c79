package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturalia/verifactu-api/internal/domain/verifactu"
)

// Invoice es la proyección de una factura emitida con los campos que
// necesita el registro de facturación. La contabilidad general (asientos,
// vencimientos, cobros) vive fuera de este servicio.
type Invoice struct {
	ID           string
	CompanyID    string
	SeriesNumber string    // número completo de la serie (NumSerieFactura)
	IssueDate    time.Time // fecha de expedición
	Description  string    // DescripcionOperacion

	OperationKey verifactu.OperationKey // TipoFactura; inmutable una vez contabilizada
	CorrectionOf string                 // ID de la factura rectificada (R1..R5)

	// Hechos de origen para derivar la clave cuando el ERP no la fijó.
	Simplified    bool // expedida sin identificar al destinatario (ticket)
	ReplacesRange bool // sustituye facturas simplificadas previas (F3)

	Counterpart *Counterpart // nil en simplificadas

	TaxLines []TaxLine

	TotalAmount decimal.Decimal // ImporteTotal
	TotalTax    decimal.Decimal // CuotaTotal

	// Estado frente a la AEAT.
	State            verifactu.RecordState
	PendingSend      bool
	PreviousRejected bool // hubo un rechazo previo: el reenvío lleva Subsanacion

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Counterpart es el destinatario de la factura.
type Counterpart struct {
	Name           string
	TaxID          string
	IdentifierType verifactu.IdentifierType // vacía = NIF español
	Country        string                   // código ISO-3166 alpha-2
}

// TaxLine es una línea de desglose de impuestos de la factura.
type TaxLine struct {
	ParentTaxID     string // impuesto padre; las bases repetidas del mismo padre cuentan una vez
	RegimeKey       verifactu.RegimeKey
	SubjectionKey   verifactu.SubjectionKey  // vacía si la operación está exenta
	ExemptionCause  verifactu.ExemptionCause // vacía si la operación está sujeta
	Rate            decimal.Decimal          // tipo impositivo (fracción, ej. 0.21)
	Base            decimal.Decimal
	Amount          decimal.Decimal
	SurchargeRate   decimal.Decimal // recargo de equivalencia asociado, si lo hay
	SurchargeAmount decimal.Decimal
	HasSurcharge    bool // la línea lleva recargo: fuerza ClaveRegimen 18
	IsSurcharge     bool // la línea ES el recargo acompañante: sin desglose propio
	IsService       bool
}

// InvoiceRef identifica una factura dentro de la cadena: serie y fecha.
type InvoiceRef struct {
	SeriesNumber string
	IssueDate    time.Time
}

// DeriveOperationKey deduce la clave de operación cuando no está fijada:
// simplificada negativa → R5, simplificada que sustituye un rango → F3,
// simplificada → F2, ordinaria negativa → R1, ordinaria → F1.
func DeriveOperationKey(simplified, replacesRange bool, total decimal.Decimal) verifactu.OperationKey {
	if simplified {
		if total.IsNegative() {
			return verifactu.OpR5
		}
		if replacesRange {
			return verifactu.OpF3
		}
		return verifactu.OpF2
	}
	if total.IsNegative() {
		return verifactu.OpR1
	}
	return verifactu.OpF1
}

// CheckSubjectionCompatibility valida que la inversión del sujeto pasivo (S2)
// solo aparezca en claves de operación completas (F1, R1..R4).
func (i *Invoice) CheckSubjectionCompatibility() bool {
	for _, line := range i.TaxLines {
		if line.SubjectionKey != verifactu.SubS2 {
			continue
		}
		switch i.OperationKey {
		case verifactu.OpF1, verifactu.OpR1, verifactu.OpR2, verifactu.OpR3, verifactu.OpR4:
		default:
			return false
		}
	}
	return true
}
