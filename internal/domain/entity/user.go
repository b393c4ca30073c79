package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator" // operador que lanza envíos y reconciliaciones
	RoleAuditor  = "auditor"  // solo lectura de registros y cadena
)

// User representa un usuario del servicio (pertenece a una Company).
type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // admin, operator, auditor
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
