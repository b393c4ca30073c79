package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facturalia/verifactu-api/internal/application/auth"
	"github.com/facturalia/verifactu-api/internal/application/company"
	"github.com/facturalia/verifactu-api/internal/application/verifactu"
	"github.com/facturalia/verifactu-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CompanyUC   *company.UseCase
	SubmitUC    *verifactu.SubmitUseCase
	ReconcileUC *verifactu.ReconcileUseCase
	RecordUC    *verifactu.RecordUseCase
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Companies: altas y configuración solo admin; lectura cualquier rol.
	companies := protected.Group("/companies")
	companyHandler := NewCompanyHandler(deps.CompanyUC)
	companies.Post("/", RequireRole(entity.RoleAdmin), companyHandler.Create)
	companies.Get("/:id", companyHandler.GetByID)
	companies.Put("/:id/verifactu", RequireRole(entity.RoleAdmin), companyHandler.ConfigureVerifactu)

	// VERI*FACTU: los ciclos que hablan con la AEAT exigen admin u operator;
	// las lecturas del registro admiten también auditor.
	vf := protected.Group("/verifactu")
	vfHandler := NewVerifactuHandler(deps.SubmitUC, deps.ReconcileUC, deps.RecordUC)
	vf.Post("/companies/:id/submit", RequireRole(entity.RoleAdmin, entity.RoleOperator), vfHandler.SubmitPending)
	vf.Post("/companies/:id/reconcile", RequireRole(entity.RoleAdmin, entity.RoleOperator), vfHandler.Reconcile)
	vf.Post("/invoices/:id/cancel", RequireRole(entity.RoleAdmin, entity.RoleOperator), vfHandler.CancelInvoice)
	vf.Get("/invoices/:id/record", vfHandler.GetRecord)
	vf.Get("/invoices/:id/qr", vfHandler.GetQR)
}
