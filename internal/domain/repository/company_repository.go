package repository

import "github.com/facturalia/verifactu-api/internal/domain/entity"

// CompanyRepository define el puerto de persistencia para Company (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	Create(company *entity.Company) error
	GetByID(id string) (*entity.Company, error)
	GetByNIF(nif string) (*entity.Company, error)
	Update(company *entity.Company) error
	// ListVerifactuEnabled devuelve las empresas con VERI*FACTU habilitado
	// (las que recorre el ciclo de envío periódico).
	ListVerifactuEnabled() ([]*entity.Company, error)
}
