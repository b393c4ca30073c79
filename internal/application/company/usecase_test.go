package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturalia/verifactu-api/internal/application/dto"
	"github.com/facturalia/verifactu-api/internal/domain"
	"github.com/facturalia/verifactu-api/internal/domain/entity"
)

type fakeRepo struct {
	byID  map[string]*entity.Company
	byNIF map[string]*entity.Company
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*entity.Company{}, byNIF: map[string]*entity.Company{}}
}

func (r *fakeRepo) Create(c *entity.Company) error {
	r.byID[c.ID] = c
	r.byNIF[c.NIF] = c
	return nil
}
func (r *fakeRepo) Update(c *entity.Company) error {
	r.byID[c.ID] = c
	return nil
}
func (r *fakeRepo) GetByID(id string) (*entity.Company, error)   { return r.byID[id], nil }
func (r *fakeRepo) GetByNIF(nif string) (*entity.Company, error) { return r.byNIF[nif], nil }
func (r *fakeRepo) ListVerifactuEnabled() ([]*entity.Company, error) {
	return nil, nil
}

func TestCreateValidaNIF(t *testing.T) {
	uc := NewUseCase(newFakeRepo())

	_, err := uc.Create(dto.CreateCompanyRequest{Name: "Juan Pérez", NIF: "12345678A"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "NIF con letra de control incorrecta debe rechazarse")

	out, err := uc.Create(dto.CreateCompanyRequest{Name: "Pérez SL", NIF: "B65247983"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.False(t, out.VerifactuEnabled)
}

func TestCreateNIFDuplicado(t *testing.T) {
	uc := NewUseCase(newFakeRepo())

	_, err := uc.Create(dto.CreateCompanyRequest{Name: "Pérez SL", NIF: "B65247983"})
	require.NoError(t, err)

	_, err = uc.Create(dto.CreateCompanyRequest{Name: "Otra SL", NIF: "B65247983"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestConfigureVerifactuExigeFechaYCertificado(t *testing.T) {
	repo := newFakeRepo()
	uc := NewUseCase(repo)
	created, err := uc.Create(dto.CreateCompanyRequest{Name: "Pérez SL", NIF: "B65247983"})
	require.NoError(t, err)

	_, err = uc.ConfigureVerifactu(created.ID, dto.UpdateVerifactuConfigRequest{Enabled: true})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "habilitar sin start_date debe fallar")

	_, err = uc.ConfigureVerifactu(created.ID, dto.UpdateVerifactuConfigRequest{
		Enabled:   true,
		StartDate: "2025-01-01",
	})
	assert.ErrorIs(t, err, domain.ErrMissingCertificate)

	out, err := uc.ConfigureVerifactu(created.ID, dto.UpdateVerifactuConfigRequest{
		Enabled:   true,
		StartDate: "2025-01-01",
		CertPath:  "/etc/certs/perez.p12",
	})
	require.NoError(t, err)
	assert.True(t, out.VerifactuEnabled)
	assert.True(t, out.CertConfigured)
	require.NotNil(t, out.VerifactuStartDate)
	assert.Equal(t, 2025, out.VerifactuStartDate.Year())

	stored := repo.byID[created.ID]
	assert.True(t, stored.CanSubmit(stored.UpdatedAt))
}

func TestConfigureVerifactuDeshabilita(t *testing.T) {
	repo := newFakeRepo()
	uc := NewUseCase(repo)
	created, err := uc.Create(dto.CreateCompanyRequest{Name: "Pérez SL", NIF: "B65247983"})
	require.NoError(t, err)
	_, err = uc.ConfigureVerifactu(created.ID, dto.UpdateVerifactuConfigRequest{
		Enabled:   true,
		StartDate: "2025-01-01",
		CertPath:  "/etc/certs/perez.p12",
	})
	require.NoError(t, err)

	out, err := uc.ConfigureVerifactu(created.ID, dto.UpdateVerifactuConfigRequest{Enabled: false})
	require.NoError(t, err)
	assert.False(t, out.VerifactuEnabled)
	assert.False(t, out.CertConfigured)
}
