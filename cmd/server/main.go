package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/ledgerly/backend"
	"github.com/ledgerly/backend/config"
	"github.com/ledgerly/backend/mailer"
)

func main() {
	cfg := config.MustLoad()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer sqldb.Close()

	db := bun.NewDB(sqldb, sqlitedialect.New())
	auth.RegisterModels(db)

	ctx := context.Background()
	if err := auth.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	if err := auth.SeedDefaults(ctx, db); err != nil {
		log.Fatalf("seed defaults: %v", err)
	}

	var logger auth.Logger

	repo := auth.NewRepositoryManager(db)
	codec := auth.NewTokenCodec(cfg.JWT, logger)

	var sender auth.EmailSender = auth.NoopEmailSender()
	if cfg.App.IsProduction() {
		sender = mailer.New(cfg.SMTP, cfg.App.FrontendURL)
	}

	sessions := auth.NewSessionManager(repo, codec, sender, cfg, logger)
	resolver := auth.NewGrantResolver(repo, logger)
	guard := auth.NewAccessGuard(sessions, repo, codec, cfg, logger)
	controller := auth.NewAuthController(sessions, resolver, guard, cfg, logger)
	health := auth.NewHealthController(db, logger)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: auth.HTTPErrorHandler(logger),
	})

	api := app.Group(cfg.App.APIPrefix)
	controller.RegisterAuthRoutes(api)
	health.RegisterHealthRoutes(api)

	go func() {
		if err := app.Listen(cfg.Server.Address); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
