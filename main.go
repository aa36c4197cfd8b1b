package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wfunc/broinkroyale/broadcast"
	"github.com/wfunc/broinkroyale/config"
	"github.com/wfunc/broinkroyale/lobby"
	"github.com/wfunc/broinkroyale/logger"
	"github.com/wfunc/broinkroyale/monitor"
	"github.com/wfunc/broinkroyale/persistence"
	"github.com/wfunc/broinkroyale/rpc"
	"github.com/wfunc/broinkroyale/scheduler"
	"github.com/wfunc/broinkroyale/server"
	"github.com/wfunc/broinkroyale/services"
	"github.com/wfunc/broinkroyale/session"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// Initialize logger
	if err := logger.Init(logger.Options{Level: "info"}); err != nil {
		panic(err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Init(cfg.Log.LoggerOptions()); err != nil {
		logger.Log.Fatalf("Failed to configure logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	db := openDatabase(cfg.Database)
	matches := services.NewMatchService(db, 64)

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mon := monitor.NewMonitor("broink", promRegistry)

	// Lobbies
	sessions := session.NewManager()
	broadcaster := broadcast.NewRoomBroadcaster(sessions)
	rules := cfg.Game.Rules()
	registry := lobby.NewRegistry(rules, broadcaster,
		lobby.WithObserver(lobby.Observers{mon, matches}),
	)
	ticker := scheduler.New(registry, rules.TickInterval(), mon)

	// Admin RPC
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewAdmin(registry, matches))
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(server.Options{
		Addr:           cfg.Server.ListenAddress(),
		Heartbeat:      cfg.Server.HeartbeatInterval(),
		IdleTimeout:    3 * cfg.Server.HeartbeatInterval(),
		Registry:       registry,
		SessionManager: sessions,
		Monitor:        mon,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go ticker.Run(ctx)
	go rpcServer.Start()
	go func() {
		if err := gameServer.Start(); err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("HTTP shutdown: %v", err)
	}
	rpcServer.Stop()
	registry.Close()
	if err := matches.Close(shutdownCtx); err != nil {
		logger.Log.Warnf("Match export did not drain: %v", err)
	}
	if err := db.Close(); err != nil {
		logger.Log.Warnf("Close database: %v", err)
	}
}

// openDatabase connects to postgres when a host is configured and falls back
// to an in-memory store otherwise.
func openDatabase(cfg config.DatabaseConfig) persistence.Database {
	pg := cfg.Postgres
	if pg.Host == "" {
		logger.Log.Info("No database configured, keeping match records in memory.")
		return persistence.NewMemoryStore(persistence.DefaultMemoryCapacity)
	}
	db, err := persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")
	return db
}
