package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cabin-manager/core/loader"
	"cabin-manager/core/logger"
	"cabin-manager/core/metrics"
	"cabin-manager/core/middleware/auth"
	"cabin-manager/core/middleware/rayid"
	"cabin-manager/core/reconcile"
	"cabin-manager/core/scheduler"
	"cabin-manager/feature/calendar"
	"cabin-manager/feature/integrity"
	"cabin-manager/feature/reservation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var noScheduler bool

// @title Cabin Manager API
// @version 1.0
// @description Reservations, feed sync and calendar export for rental cabins.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP server and the sync scheduler",
	Long:  `Starts the HTTP server, initializes all enabled features and runs scheduled sync passes.`,
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Do not run scheduled sync passes")
	RootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close()
	logg := app.logger
	zap.ReplaceGlobals(logg)

	server := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           app.cfg.Server.ReadTimeout(),
	})

	mgr := loader.NewManager()
	mgr.Register(reservation.NewFeature(app.reservations, logg))
	mgr.Register(calendar.NewFeature(app.calendar, logg))
	mgr.Register(integrity.NewFeature(app.store, app.spec, app.integrityOptions(), logg))

	// RayID first so every log line below carries it
	server.Use(rayid.New())
	server.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		start := time.Now()
		err := c.Next()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			l.Error("Request error", append(fields, zap.Error(err))...)
			return err
		}
		l.Info("Request handled", fields...)
		return nil
	})

	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	server.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(metrics.NewRegistry())))

	// Calendar clients cannot send headers, so the feed stays public
	server.Use(auth.New(auth.Config{
		ApiKey: app.cfg.Server.ApiKey,
		Public: []string{"/calendar.ics", "/health", "/metrics"},
	}))

	if err := mgr.LoadAll(server); err != nil {
		return fmt.Errorf("failed to load features: %w", err)
	}

	var sched *scheduler.Scheduler
	if !noScheduler {
		loc, err := app.cfg.Server.Location()
		if err != nil {
			return err
		}
		sched = scheduler.New(loc, logg)
		err = sched.Add(app.cfg.Sync.Cron, "sync", func(ctx context.Context) error {
			_, err := app.reservations.Sync(ctx, reconcile.ReconcileOptions{})
			return err
		})
		if err != nil {
			return err
		}
		sched.Start()
		logg.Info("Scheduler started", zap.String("cron", app.cfg.Sync.Cron))
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("Starting server",
			zap.String("port", app.cfg.Server.Port),
			zap.Strings("cabins", app.spec.CabinNames()),
		)
		errCh <- server.Listen(":" + app.cfg.Server.Port)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-sig:
	}

	logg.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logg.Warn("Scheduler did not stop in time", zap.Error(err))
		}
	}
	return server.ShutdownWithContext(shutdownCtx)
}
