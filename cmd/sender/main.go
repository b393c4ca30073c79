package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/facturalia/verifactu-api/internal/application/verifactu"
	"github.com/facturalia/verifactu-api/internal/domain"
	"github.com/facturalia/verifactu-api/internal/infrastructure/aeat"
	"github.com/facturalia/verifactu-api/internal/infrastructure/cert"
	"github.com/facturalia/verifactu-api/internal/infrastructure/postgres"
	"github.com/facturalia/verifactu-api/pkg/config"
	"github.com/facturalia/verifactu-api/pkg/logger"
)

// Remitente por lotes: pensado para cron. Recorre las empresas con
// VERI*FACTU habilitado y ejecuta el ciclo de envío de cada una. Los fallos
// se aíslan por empresa: una divergencia o un error de transporte detienen
// esa cadena y el resto sigue.
func main() {
	companyID := flag.String("company", "", "enviar solo esta empresa (por defecto todas)")
	timeout := flag.Duration("timeout", 10*time.Minute, "tiempo máximo por empresa")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "info"})
	log.Info().Bool("aeat_production", cfg.AEAT.Production).Msg("iniciando remitente por lotes")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	sistema := aeat.SistemaFromConfig(cfg.AEAT)
	submitUC := verifactu.NewSubmitUseCase(
		companyRepo, txRunner, cert.NewProvider(),
		aeat.NewClient(cfg.AEAT.Production, cfg.AEAT.MaxBatchSize),
		aeat.NewRecordBuilder(sistema), verifactu.NewChainTracker(),
		verifactu.SubmitConfig{MaxBatchSize: cfg.AEAT.MaxBatchSize}, log,
	)

	companies, err := companyRepo.ListVerifactuEnabled()
	if err != nil {
		log.Fatal().Err(err).Msg("listar empresas habilitadas")
	}

	var failed int
	for _, company := range companies {
		if *companyID != "" && company.ID != *companyID {
			continue
		}

		cycleCtx, cancel := context.WithTimeout(ctx, *timeout)
		report, err := submitUC.SubmitPending(cycleCtx, company.ID)
		cancel()
		if err != nil {
			failed++
			ev := log.Error()
			if errors.Is(err, domain.ErrChainDivergence) {
				// Cadena detenida hasta intervención manual (reconciliación).
				ev = ev.Bool("divergence", true)
			}
			ev.Err(err).
				Str("company_id", company.ID).
				Str("nif", company.NIF).
				Msg("ciclo de envío fallido")
			continue
		}

		log.Info().
			Str("company_id", company.ID).
			Str("nif", company.NIF).
			Int("pending", report.Pending).
			Int("accepted", report.Accepted).
			Int("rejected", report.Rejected).
			Int("validation_failed", report.ValidationFailed).
			Msg("ciclo de envío completado")
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("remitente finalizado con errores")
		os.Exit(1)
	}
	log.Info().Int("companies", len(companies)).Msg("remitente finalizado")
}
