package company

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facturalia/verifactu-api/internal/application/dto"
	"github.com/facturalia/verifactu-api/internal/domain"
	"github.com/facturalia/verifactu-api/internal/domain/entity"
	"github.com/facturalia/verifactu-api/internal/domain/repository"
	pkgaeat "github.com/facturalia/verifactu-api/pkg/aeat"
)

// UseCase altas y configuración VERI*FACTU de los obligados emisores.
type UseCase struct {
	repo repository.CompanyRepository
}

// NewUseCase construye el caso de uso con el puerto de persistencia.
func NewUseCase(repo repository.CompanyRepository) *UseCase {
	return &UseCase{repo: repo}
}

// Create da de alta una empresa. El NIF se valida con el dígito de control de
// la AEAT; devuelve domain.ErrDuplicate si ya existe.
func (uc *UseCase) Create(in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if err := pkgaeat.ValidateNIF(in.NIF); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	existing, _ := uc.repo.GetByNIF(in.NIF)
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now()
	company := &entity.Company{
		ID:        uuid.New().String(),
		Name:      in.Name,
		NIF:       in.NIF,
		Address:   in.Address,
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(company); err != nil {
		return nil, err
	}
	return toResponse(company), nil
}

// GetByID obtiene una empresa por ID. Devuelve nil si no existe.
func (uc *UseCase) GetByID(id string) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, nil
	}
	return toResponse(company), nil
}

// ConfigureVerifactu activa (o desactiva) el envío VERI*FACTU de la empresa.
// Habilitar exige fecha de alta y certificado; la cadena de huellas arranca
// en el primer ciclo de envío posterior.
func (uc *UseCase) ConfigureVerifactu(id string, in dto.UpdateVerifactuConfigRequest) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}

	company.VerifactuEnabled = in.Enabled
	company.CertPath = in.CertPath
	company.CertKeyPath = in.CertKeyPath
	company.CertPassword = in.CertPassword
	company.VerifactuStartDate = nil
	if in.StartDate != "" {
		start, err := time.Parse("2006-01-02", in.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date debe ser YYYY-MM-DD", domain.ErrInvalidInput)
		}
		company.VerifactuStartDate = &start
	}
	if in.Enabled {
		if company.VerifactuStartDate == nil {
			return nil, fmt.Errorf("%w: start_date es requerido para habilitar", domain.ErrInvalidInput)
		}
		if company.CertPath == "" {
			return nil, domain.ErrMissingCertificate
		}
	}
	company.UpdatedAt = time.Now()

	if err := uc.repo.Update(company); err != nil {
		return nil, err
	}
	return toResponse(company), nil
}

func toResponse(c *entity.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:                 c.ID,
		Name:               c.Name,
		NIF:                c.NIF,
		Address:            c.Address,
		Email:              c.Email,
		VerifactuEnabled:   c.VerifactuEnabled,
		VerifactuStartDate: c.VerifactuStartDate,
		CertConfigured:     c.CertPath != "",
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
