// Package aeat contiene catálogos, validaciones y utilidades de formato
// alineados a la Orden HAC/1177/2024 (VERI*FACTU) y sus listas L.
package aeat

// =============================================================================
// Lista L8.A - ClaveRegimen del desglose (régimen especial o trascendencia)
// =============================================================================

// RegimeKeyDescriptions descripciones de las claves de régimen emitidas.
var RegimeKeyDescriptions = map[string]string{
	"01": "Operación de régimen general",
	"02": "Exportación",
	"03": "Régimen especial de bienes usados, objetos de arte, antigüedades y objetos de colección",
	"04": "Régimen especial del oro de inversión",
	"05": "Régimen especial de las agencias de viajes",
	"06": "Régimen especial grupo de entidades en IVA (Nivel Avanzado)",
	"07": "Régimen especial del criterio de caja",
	"08": "Operaciones sujetas al IPSI/IGIC",
	"09": "Facturación de agencias de viajes que actúan como mediadoras en nombre y por cuenta ajena",
	"10": "Cobros por cuenta de terceros de honorarios profesionales o de derechos de propiedad industrial",
	"11": "Operaciones de arrendamiento de local de negocio sujetas a retención",
	"14": "Factura con IVA pendiente de devengo en certificaciones de obra (destinatario Administración Pública)",
	"15": "Factura con IVA pendiente de devengo en operaciones de tracto sucesivo",
	"17": "Operación acogida a alguno de los regímenes previstos en el Capítulo XI del Título IX (OSS e IOSS)",
	"18": "Recargo de equivalencia",
	"19": "Operaciones de actividades incluidas en el REAGYP",
	"20": "Régimen simplificado",
}

// ValidRegimeKeys claves de régimen admitidas en el envío.
var ValidRegimeKeys = func() map[string]bool {
	m := make(map[string]bool, len(RegimeKeyDescriptions))
	for k := range RegimeKeyDescriptions {
		m[k] = true
	}
	return m
}()

// =============================================================================
// Lista L2 - TipoFactura
// =============================================================================

// OperationKeyDescriptions descripciones de las claves de operación.
var OperationKeyDescriptions = map[string]string{
	"F1": "Factura (Art 6.7.3 y 7.3 del RD 1619/2012)",
	"F2": "Factura simplificada y facturas sin identificación del destinatario (Art 6.1.d del RD 1619/2012)",
	"F3": "Factura emitida en sustitución de facturas simplificadas facturadas y declaradas",
	"R1": "Factura rectificativa (Art 80.1, 80.2 y 80.6 y error fundado en derecho)",
	"R2": "Factura rectificativa (Art 80.3)",
	"R3": "Factura rectificativa (Art 80.4)",
	"R4": "Factura rectificativa (resto)",
	"R5": "Factura rectificativa en facturas simplificadas",
}

// =============================================================================
// IDType del destinatario
// =============================================================================

// IdentifierTypeDescriptions descripciones de los tipos de identificador.
var IdentifierTypeDescriptions = map[string]string{
	"02": "NIF-IVA (solo operadores intracomunitarios)",
	"03": "Pasaporte",
	"04": "Documento oficial de identificación expedido por el país o territorio de residencia",
	"05": "Certificado de residencia",
	"06": "Otro documento probatorio",
	"07": "No censado (solo IVA español no registrado)",
}

// =============================================================================
// Códigos de error de comunicación con tratamiento especial
// =============================================================================

const (
	// CodeDuplicateRecord el registro ya consta remitido.
	CodeDuplicateRecord = 3000
	// CodeUnsubscribedRecord el registro consta dado de baja.
	CodeUnsubscribedRecord = 3001
)
