package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/facturalia/verifactu-api/internal/application/auth"
	"github.com/facturalia/verifactu-api/internal/application/company"
	appvf "github.com/facturalia/verifactu-api/internal/application/verifactu"
	"github.com/facturalia/verifactu-api/internal/infrastructure/aeat"
	"github.com/facturalia/verifactu-api/internal/infrastructure/cert"
	"github.com/facturalia/verifactu-api/internal/infrastructure/postgres"
	httpRouter "github.com/facturalia/verifactu-api/internal/interfaces/http"
	"github.com/facturalia/verifactu-api/pkg/config"
	"github.com/facturalia/verifactu-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Bool("aeat_production", cfg.AEAT.Production).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	chainRepo := postgres.NewChainLinkRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	sistema := aeat.SistemaFromConfig(cfg.AEAT)
	builder := aeat.NewRecordBuilder(sistema)
	soapClient := aeat.NewClient(cfg.AEAT.Production, cfg.AEAT.MaxBatchSize)
	certs := cert.NewProvider()
	tracker := appvf.NewChainTracker()

	submitUC := appvf.NewSubmitUseCase(companyRepo, txRunner, certs, soapClient,
		builder, tracker, appvf.SubmitConfig{MaxBatchSize: cfg.AEAT.MaxBatchSize}, log)
	reconcileUC := appvf.NewReconcileUseCase(companyRepo, txRunner, certs, soapClient,
		sistema, tracker, appvf.ReconcileConfig{LookbackMonths: cfg.AEAT.LookbackMonths}, log)
	recordUC := appvf.NewRecordUseCase(companyRepo, invoiceRepo, chainRepo, cfg.AEAT.Production)
	companyUC := company.NewUseCase(companyRepo)
	authUC := auth.NewAuthUseCase(userRepo, companyRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 75, // los ciclos de envío esperan a la AEAT
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "VERI*FACTU API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CompanyUC:   companyUC,
		SubmitUC:    submitUC,
		ReconcileUC: reconcileUC,
		RecordUC:    recordUC,
		AuthUC:      authUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
