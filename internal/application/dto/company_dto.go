package dto

import "time"

// CreateCompanyRequest datos para dar de alta un obligado emisor.
type CreateCompanyRequest struct {
	Name    string `json:"name"`
	NIF     string `json:"nif"`
	Address string `json:"address"`
	Email   string `json:"email"`
}

// UpdateVerifactuConfigRequest configura el envío VERI*FACTU de la empresa.
// StartDate en formato YYYY-MM-DD; CertPassword solo para certificados .p12.
type UpdateVerifactuConfigRequest struct {
	Enabled      bool   `json:"enabled"`
	StartDate    string `json:"start_date"`
	CertPath     string `json:"cert_path"`
	CertKeyPath  string `json:"cert_key_path"`
	CertPassword string `json:"cert_password"`
}

// CompanyResponse representación pública de la empresa. No expone rutas de
// certificado ni contraseñas.
type CompanyResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	NIF                string     `json:"nif"`
	Address            string     `json:"address,omitempty"`
	Email              string     `json:"email,omitempty"`
	VerifactuEnabled   bool       `json:"verifactu_enabled"`
	VerifactuStartDate *time.Time `json:"verifactu_start_date,omitempty"`
	CertConfigured     bool       `json:"cert_configured"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
