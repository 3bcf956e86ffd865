package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/logistica-api/internal/application/fiscal"
	"github.com/jhoicas/logistica-api/internal/application/inventory"
	"github.com/jhoicas/logistica-api/internal/application/reconciliation"
	"github.com/jhoicas/logistica-api/internal/infrastructure/postgres"
	"github.com/jhoicas/logistica-api/internal/infrastructure/redislease"
	"github.com/jhoicas/logistica-api/internal/infrastructure/sqlite"
	httpRouter "github.com/jhoicas/logistica-api/internal/interfaces/http"
	"github.com/jhoicas/logistica-api/pkg/config"
	"github.com/jhoicas/logistica-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		Name:  cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Almacenamiento: PostgreSQL en producción, SQLite para despliegues de un solo nodo
	var (
		txRunner inventory.TxRunner
		repos    inventory.Repos
		pool     *pgxpool.Pool
		sqlDB    *sql.DB
	)
	switch cfg.DB.Driver {
	case config.DriverSQLite:
		sqlDB, err = sqlite.Open(ctx, cfg.DB.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("apertura de SQLite")
		}
		defer sqlDB.Close()
		txRunner = sqlite.NewTxRunner(sqlDB)
		repos = sqlite.NewRepos(sqlDB)
	default:
		pool, err = postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		txRunner = postgres.NewTxRunner(pool)
		repos = postgres.NewRepos(pool)
	}

	ledger := inventory.NewStockLedger(log.Component("ledger"))
	orchestrator := reconciliation.NewOrchestrator(
		txRunner,
		reconciliation.NewGuard(txRunner),
		inventory.NewProductResolver(),
		ledger,
		log.Component("reconciliation"),
	)
	statusUC := fiscal.NewStatusUseCase(txRunner, orchestrator, log.Component("fiscal"))
	statusQuery := reconciliation.NewStatusQuery(repos)
	catalogUC := inventory.NewCatalogUseCase(repos)
	verifyUC := inventory.NewVerifyStockUseCase(txRunner)
	replenishmentUC := inventory.NewReplenishmentUseCase(repos)
	registerMovementUC := inventory.NewRegisterMovementUseCase(txRunner, ledger)

	// Lease distribuido opcional: sin Redis se asume una sola réplica del worker
	var locker reconciliation.Locker
	if cfg.Redis.Addr != "" {
		l, rdb, err := redislease.New(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = l
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Logística API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "driver": cfg.DB.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		NoteStatus:       statusUC,
		Reconciler:       orchestrator,
		ReconcileStatus:  statusQuery,
		Catalog:          catalogUC,
		VerifyStock:      verifyUC,
		Replenishment:    replenishmentUC,
		RegisterMovement: registerMovementUC,
		JWTSecret:        cfg.JWT.Secret,
		JWTIssuer:        cfg.JWT.Issuer,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			return err
		}
		return nil
	})

	if cfg.Worker.Enabled {
		worker := reconciliation.NewWorker(orchestrator, repos.Notes, locker, log.Component("worker"), reconciliation.WorkerConfig{
			Interval:    cfg.Worker.Interval,
			BatchSize:   cfg.Worker.BatchSize,
			MaxAttempts: cfg.Worker.MaxAttempts,
			Actor:       cfg.App.SystemActor,
		})
		g.Go(func() error {
			return worker.Run(gctx)
		})
		if pool != nil {
			listener := postgres.NewNotifyListener(pool, log.Component("notify"))
			g.Go(func() error {
				return listener.Run(gctx, worker.Notify)
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("aplicación finalizada con error")
		os.Exit(1)
	}
	log.Info().Msg("aplicación detenida")
}
