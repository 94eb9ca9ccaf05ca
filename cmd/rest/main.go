package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chatproxy-be/internal/bootstrap"
	"chatproxy-be/internal/config"
	"chatproxy-be/internal/model"
	"chatproxy-be/internal/server"
	"chatproxy-be/internal/tracer"
	"chatproxy-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDB(database.GormConfig{Driver: cfg.Database.Driver, DSN: cfg.Database.Connection})
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	if err := database.EnsureSchema(gormDB, model.All(), model.Indexes()); err != nil {
		log.Panicf("Unable to prepare schema: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	shutdownTracer := tracer.InitTracer(cfg.Tracing, container.Logger)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	if err := container.Start(ctx); err != nil {
		log.Panicf("Unable to start background services: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown()
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
