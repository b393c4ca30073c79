package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturalia/verifactu-api/internal/domain"
	"github.com/facturalia/verifactu-api/internal/domain/entity"
	"github.com/facturalia/verifactu-api/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepo {
	return &CompanyRepo{pool: pool}
}

const companyColumns = `id, name, nif, address, email,
	       verifactu_enabled, verifactu_start_date,
	       cert_path, cert_key_path, cert_password,
	       created_at, updated_at`

// Create persiste una nueva empresa.
func (r *CompanyRepo) Create(company *entity.Company) error {
	if company.ID == "" {
		company.ID = uuid.New().String()
	}
	now := time.Now()
	company.CreatedAt = now
	company.UpdatedAt = now

	query := `
		INSERT INTO companies (id, name, nif, address, email,
			verifactu_enabled, verifactu_start_date,
			cert_path, cert_key_path, cert_password,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.pool.Exec(context.Background(), query,
		company.ID, company.Name, company.NIF, company.Address, company.Email,
		company.VerifactuEnabled, company.VerifactuStartDate,
		nullIfEmpty(company.CertPath), nullIfEmpty(company.CertKeyPath), nullIfEmpty(company.CertPassword),
		company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// GetByID obtiene una empresa por ID.
func (r *CompanyRepo) GetByID(id string) (*entity.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	return r.scanOne(query, id)
}

// GetByNIF obtiene una empresa por su NIF.
func (r *CompanyRepo) GetByNIF(nif string) (*entity.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE nif = $1`
	return r.scanOne(query, nif)
}

// Update actualiza los datos y la configuración VERI*FACTU de la empresa.
func (r *CompanyRepo) Update(company *entity.Company) error {
	company.UpdatedAt = time.Now()
	query := `
		UPDATE companies
		SET name                 = $2,
		    nif                  = $3,
		    address              = $4,
		    email                = $5,
		    verifactu_enabled    = $6,
		    verifactu_start_date = $7,
		    cert_path            = $8,
		    cert_key_path        = $9,
		    cert_password        = $10,
		    updated_at           = $11
		WHERE id = $1`
	tag, err := r.pool.Exec(context.Background(), query,
		company.ID, company.Name, company.NIF, company.Address, company.Email,
		company.VerifactuEnabled, company.VerifactuStartDate,
		nullIfEmpty(company.CertPath), nullIfEmpty(company.CertKeyPath), nullIfEmpty(company.CertPassword),
		company.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListVerifactuEnabled devuelve las empresas con VERI*FACTU habilitado,
// en orden estable para que el ciclo periódico las recorra siempre igual.
func (r *CompanyRepo) ListVerifactuEnabled() ([]*entity.Company, error) {
	query := `SELECT ` + companyColumns + `
		FROM companies WHERE verifactu_enabled ORDER BY created_at, id`
	rows, err := r.pool.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var list []*entity.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *CompanyRepo) scanOne(query string, arg any) (*entity.Company, error) {
	c, err := scanCompany(r.pool.QueryRow(context.Background(), query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func scanCompany(row pgxScanner) (*entity.Company, error) {
	var c entity.Company
	var certPath, certKeyPath, certPassword *string
	err := row.Scan(
		&c.ID, &c.Name, &c.NIF, &c.Address, &c.Email,
		&c.VerifactuEnabled, &c.VerifactuStartDate,
		&certPath, &certKeyPath, &certPassword,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CertPath = derefStr(certPath)
	c.CertKeyPath = derefStr(certKeyPath)
	c.CertPassword = derefStr(certPassword)
	return &c, nil
}

// pgxScanner abstrae pgx.Row y pgx.Rows para reutilizar los scan.
type pgxScanner interface {
	Scan(dest ...any) error
}
