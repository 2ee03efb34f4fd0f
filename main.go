package main

import (
	"github.com/joho/godotenv"

	"github.com/wfunc/andarbahar/api"
	"github.com/wfunc/andarbahar/config"
	"github.com/wfunc/andarbahar/logger"
	"github.com/wfunc/andarbahar/persistence"
	"github.com/wfunc/andarbahar/server"
	"github.com/wfunc/andarbahar/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger.Init()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := persistence.NewGormPostgreSQL(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	st, err := store.New(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize state store: %v", err)
	}
	defer st.Close()

	gameServer := server.NewGameServer(cfg, db, st)

	betting, dealing := gameServer.Engines()
	restAPI := api.New(betting, dealing)
	restAPI.Start(cfg.Server.APIAddress)
	logger.Log.Infof("REST API listening on %s", cfg.Server.APIAddress)

	logger.Log.Infof("Starting game server on %s", cfg.Server.WSAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
