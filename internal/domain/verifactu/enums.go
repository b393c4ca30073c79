// Package verifactu: tipos cerrados y cálculo de huella del registro de
// facturación según la Orden HAC/1177/2024 (sistema VERI*FACTU de la AEAT).
package verifactu

// OperationKey es el TipoFactura (lista L2) del registro de facturación.
type OperationKey string

const (
	// OpF1 factura completa (Art 6.7.3 y 7.3 del RD 1619/2012).
	OpF1 OperationKey = "F1"
	// OpF2 factura simplificada sin identificación del destinatario (Art 6.1.d).
	OpF2 OperationKey = "F2"
	// OpF3 factura emitida en sustitución de simplificadas.
	OpF3 OperationKey = "F3"
	// OpR1 rectificativa por error fundado en derecho (Art 80.1, 80.2 y 80.6 LIVA).
	OpR1 OperationKey = "R1"
	// OpR2 rectificativa por concurso de acreedores (Art 80.3).
	OpR2 OperationKey = "R2"
	// OpR3 rectificativa por créditos incobrables (Art 80.4).
	OpR3 OperationKey = "R3"
	// OpR4 rectificativa por el resto de causas.
	OpR4 OperationKey = "R4"
	// OpR5 rectificativa sobre facturas simplificadas.
	OpR5 OperationKey = "R5"
)

// Valid indica si la clave pertenece a la lista L2.
func (k OperationKey) Valid() bool {
	switch k {
	case OpF1, OpF2, OpF3, OpR1, OpR2, OpR3, OpR4, OpR5:
		return true
	}
	return false
}

// IsRectifying indica si la clave es una rectificativa (R1..R5).
func (k OperationKey) IsRectifying() bool {
	switch k {
	case OpR1, OpR2, OpR3, OpR4, OpR5:
		return true
	}
	return false
}

// IsSimplified indica si la factura no lleva bloque de destinatario.
// Regla reglamentaria: las simplificadas no identifican al receptor.
func (k OperationKey) IsSimplified() bool {
	switch k {
	case OpF2, OpF3, OpR5:
		return true
	}
	return false
}

// SubjectionKey es la CalificacionOperacion (lista L9).
type SubjectionKey string

const (
	// SubS1 sujeta y no exenta, sin inversión del sujeto pasivo.
	SubS1 SubjectionKey = "S1"
	// SubS2 sujeta y no exenta, con inversión del sujeto pasivo.
	SubS2 SubjectionKey = "S2"
	// SubN1 no sujeta por los artículos 7, 14 y otros.
	SubN1 SubjectionKey = "N1"
	// SubN2 no sujeta por reglas de localización.
	SubN2 SubjectionKey = "N2"
)

// Valid indica si la clave pertenece a la lista L9.
func (k SubjectionKey) Valid() bool {
	switch k {
	case SubS1, SubS2, SubN1, SubN2:
		return true
	}
	return false
}

// ExemptionCause es la OperacionExenta (lista L10).
type ExemptionCause string

const (
	ExemptE1   ExemptionCause = "E1" // Art 20
	ExemptE2   ExemptionCause = "E2" // Art 21
	ExemptE3   ExemptionCause = "E3" // Art 22
	ExemptE4   ExemptionCause = "E4" // Art 23 y 24
	ExemptE5   ExemptionCause = "E5" // Art 25 (entregas intracomunitarias)
	ExemptE6   ExemptionCause = "E6" // Otras causas
	NotSubject ExemptionCause = "NotSubject"
)

// Valid indica si la causa pertenece a la lista L10.
func (c ExemptionCause) Valid() bool {
	switch c {
	case ExemptE1, ExemptE2, ExemptE3, ExemptE4, ExemptE5, ExemptE6, NotSubject:
		return true
	}
	return false
}

// IdentifierType es el IDType del destinatario.
// Vacío significa NIF español (operador nacional).
type IdentifierType string

const (
	// IDTypeIntraVAT NIF-IVA intracomunitario.
	IDTypeIntraVAT IdentifierType = "02"
	// IDTypePassport pasaporte.
	IDTypePassport IdentifierType = "03"
	// IDTypeResidenceDoc documento oficial del país de residencia.
	IDTypeResidenceDoc IdentifierType = "04"
	// IDTypeResidenceCert certificado de residencia.
	IDTypeResidenceCert IdentifierType = "05"
	// IDTypeOtherDoc otro documento probatorio.
	IDTypeOtherDoc IdentifierType = "06"
	// IDTypeNotRegistered no censado (solo IVA español no registrado).
	IDTypeNotRegistered IdentifierType = "07"
	// IDTypeSimplified marca interna para simplificadas; nunca viaja a la AEAT.
	IDTypeSimplified IdentifierType = "SI"
)

// IsOther indica si el identificador se emite como bloque IDOtro
// en lugar de NIF plano.
func (t IdentifierType) IsOther() bool {
	switch t {
	case IDTypeIntraVAT, IDTypePassport, IDTypeResidenceDoc,
		IDTypeResidenceCert, IDTypeOtherDoc, IDTypeNotRegistered:
		return true
	}
	return false
}

// RegimeKey es la ClaveRegimen (lista L8.A).
type RegimeKey string

const (
	// RegimeGeneral régimen general.
	RegimeGeneral RegimeKey = "01"
	// RegimeExport exportación.
	RegimeExport RegimeKey = "02"
	// RegimeSurcharge recargo de equivalencia. Se fuerza cuando la línea
	// tiene un recargo asociado, por encima de la clave configurada.
	RegimeSurcharge RegimeKey = "18"
	// RegimeSimplified régimen simplificado.
	RegimeSimplified RegimeKey = "20"
)

// RecordState es el estado de un registro frente a la AEAT.
// Incluye los estados locales previos al envío.
type RecordState string

const (
	// StateAccepted registro aceptado (la AEAT responde Correcto o Correcta).
	StateAccepted RecordState = "Correcto"
	// StateAcceptedWithErrors aceptado con errores (AceptadoConErrores/AceptadaConErrores).
	StateAcceptedWithErrors RecordState = "AceptadoConErrores"
	// StateRejected rechazado (Incorrecto).
	StateRejected RecordState = "Incorrecto"
	// StateCancelled anulado (Anulada).
	StateCancelled RecordState = "Anulada"
	// StateDuplicated duplicado o baja ya tramitada (códigos 3000/3001):
	// no queda pendiente porque reenviar solo duplicaría.
	StateDuplicated RecordState = "DuplicadoBaja"
	// StatePendingSend pendiente de primer envío.
	StatePendingSend RecordState = "PendienteEnvio"
	// StatePendingFix pendiente de reenvío con subsanación tras un rechazo.
	StatePendingFix RecordState = "PendienteEnvioSubsanacion"
)

// IsTerminalAccepted indica si el estado cierra el registro como aceptado.
func (s RecordState) IsTerminalAccepted() bool {
	return s == StateAccepted || s == StateAcceptedWithErrors
}

// IsPending indica si la factura sigue pendiente de envío o reenvío.
func (s RecordState) IsPending() bool {
	return s == StatePendingSend || s == StatePendingFix || s == StateRejected
}

// StateFromAEAT normaliza el EstadoRegistro devuelto por la AEAT.
// La AEAT mezcla masculino y femenino en el mismo campo.
func StateFromAEAT(raw string) RecordState {
	switch raw {
	case "Correcto", "Correcta":
		return StateAccepted
	case "AceptadoConErrores", "AceptadaConErrores":
		return StateAcceptedWithErrors
	case "Incorrecto", "Incorrecta":
		return StateRejected
	case "Anulada":
		return StateCancelled
	}
	return RecordState(raw)
}

// DuplicateCodes son los códigos de comunicación que marcan un registro
// como duplicado o dado de baja (no reencolable).
var DuplicateCodes = map[int]bool{3000: true, 3001: true}
