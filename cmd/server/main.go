package main

import (
	"database/sql"
	"net/http"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hudsonargollo/isotec-screening/internal/api"
	"github.com/hudsonargollo/isotec-screening/internal/db"
	"github.com/hudsonargollo/isotec-screening/internal/utils"
)

func main() {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	addr := utils.SafeEnv("SCREENING_ADDR", ":8080")
	dbPath := utils.SafeEnv("SCREENING_DB_PATH", "screening.db")
	migrationsDir := utils.SafeEnv("SCREENING_MIGRATIONS_DIR", "")

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		logger.Fatal("open database", zap.String("path", dbPath), zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(conn, migrationsDir); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	store, err := db.NewStore(conn)
	if err != nil {
		logger.Fatal("init store", zap.Error(err))
	}

	handler := api.NewRouter(store, logger).Handler()

	logger.Info("server listening", zap.String("addr", addr), zap.String("db", dbPath))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	var cfg zap.Config
	if utils.SafeEnv("SCREENING_ENV", "development") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	return logger
}
