package main

import (
	"context"
	"fmt"
	"os"

	"github.com/agenthands/ambridge/internal/config"
	"github.com/agenthands/ambridge/internal/driver"
	"github.com/agenthands/ambridge/internal/logger"
	"github.com/agenthands/ambridge/internal/server"
	"github.com/agenthands/ambridge/internal/store"
)

func main() {
	cfg, err := config.LoadEnv("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	d, err := driver.NewNeo4jDriver(cfg.Graph, log)
	if err != nil {
		log.Error("failed to connect to graph store", "error", err)
		os.Exit(1)
	}
	s := store.NewCypherStore(d)
	defer s.Close(context.Background())

	srv := server.NewServer(s, log)
	r := srv.SetupRouter()

	log.Info("starting server", "port", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Error("server stopped", "error", err)
	}
}
