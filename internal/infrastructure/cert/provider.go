// Package cert carga los certificados de cliente con los que cada empresa
// autentica ante la AEAT. Los certificados se leen en el momento del envío y
// viven solo durante el ciclo: nunca se cachean en memoria compartida.
package cert

import (
	"crypto/tls"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"

	"github.com/facturalia/verifactu-api/internal/domain"
	"github.com/facturalia/verifactu-api/internal/domain/entity"
)

// Provider carga certificados desde el sistema de archivos.
type Provider struct{}

// NewProvider crea el proveedor.
func NewProvider() *Provider {
	return &Provider{}
}

// Load devuelve el certificado de cliente de la empresa. Admite pares PEM
// (certificado + llave, juntos o separados) y contenedores PKCS#12 (.p12/.pfx)
// protegidos con contraseña.
func (p *Provider) Load(company *entity.Company) (tls.Certificate, error) {
	if company.CertPath == "" {
		return tls.Certificate{}, domain.ErrMissingCertificate
	}

	ext := strings.ToLower(filepath.Ext(company.CertPath))
	if ext == ".p12" || ext == ".pfx" {
		return loadPKCS12(company.CertPath, company.CertPassword)
	}

	keyPath := company.CertKeyPath
	if keyPath == "" {
		keyPath = company.CertPath // certificado y llave en el mismo PEM
	}
	cert, err := tls.LoadX509KeyPair(company.CertPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cert: cargar par PEM de %s: %w", company.CertPath, err)
	}
	return cert, nil
}

// loadPKCS12 desempaqueta un contenedor .p12 a PEM y monta el par TLS.
func loadPKCS12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cert: leer %s: %w", path, err)
	}

	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cert: descifrar PKCS#12 %s: %w", path, err)
	}

	var certPEM, keyPEM []byte
	for _, b := range blocks {
		encoded := pem.EncodeToMemory(b)
		switch b.Type {
		case "CERTIFICATE":
			certPEM = append(certPEM, encoded...)
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			keyPEM = append(keyPEM, encoded...)
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cert: montar par TLS de %s: %w", path, err)
	}
	return cert, nil
}
