package entity

import "time"

// Company representa un obligado a expedir factura (emisor). Las cadenas de
// huellas VERI*FACTU son por empresa y nunca se cruzan entre empresas.
type Company struct {
	ID        string
	Name      string // NombreRazon del ObligadoEmision
	NIF       string // NIF español del emisor
	Address   string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Configuración VERI*FACTU por empresa.
	VerifactuEnabled   bool
	VerifactuStartDate *time.Time // nil = sin fecha de alta; requisito previo al envío
	CertPath           string     // certificado de cliente (.pem o .p12)
	CertKeyPath        string     // llave privada (.pem); vacío si va en CertPath
	CertPassword       string     // contraseña del .p12
}

// CanSubmit indica si la empresa cumple los requisitos previos para enviar
// registros: habilitada, con fecha de alta y certificado configurado.
func (c *Company) CanSubmit(at time.Time) bool {
	if !c.VerifactuEnabled || c.VerifactuStartDate == nil || c.CertPath == "" {
		return false
	}
	return !at.Before(*c.VerifactuStartDate)
}
