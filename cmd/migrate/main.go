package main

import (
	"log"

	"chatproxy-be/internal/config"
	"chatproxy-be/internal/model"
	"chatproxy-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDB(database.GormConfig{Driver: cfg.Database.Driver, DSN: cfg.Database.Connection})
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Printf("Migrating %d tables and %d indexes (%s)...", len(model.All()), len(model.Indexes()), cfg.Database.Driver)

	if err := database.EnsureSchema(db, model.All(), model.Indexes()); err != nil {
		log.Fatalf("Error: migration failed: %v", err)
	}

	log.Println("✅ Success: Database migration completed.")
}
