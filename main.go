package main

import (
	"context"
	"net/rpc"
	"time"

	"github.com/parlorgames/roomsync/config"
	"github.com/parlorgames/roomsync/logger"
	"github.com/parlorgames/roomsync/monitor"
	"github.com/parlorgames/roomsync/persistence"
	"github.com/parlorgames/roomsync/room"
	roomsync_rpc "github.com/parlorgames/roomsync/rpc"
	"github.com/parlorgames/roomsync/server"
	"github.com/parlorgames/roomsync/services"
	"github.com/parlorgames/roomsync/timer"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize session store
	store, err := newStore(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer store.Close()
	logger.Log.Infof("Session store ready (driver: %s)", cfg.Store.Driver)

	registry := room.NewRegistry(store)

	// Metrics endpoint plus periodic open-room gauge refresh
	mon := monitor.NewMonitor("roomsync")
	mon.StartServer(cfg.Server.MetricsAddress)

	tasks := timer.NewManager()
	defer tasks.Stop()
	tasks.AddTask(0, 15*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		count, err := store.CountRooms(ctx)
		if err != nil {
			logger.Log.Warnf("Failed to count rooms: %v", err)
			return
		}
		mon.SetOpenRooms(count)
	})

	// Admin RPC rides on the GORM store; other drivers run without it.
	if gormStore, ok := store.(*persistence.GormStore); ok {
		rpcServer, err := roomsync_rpc.NewServer(cfg.Server.RPCAddress)
		if err != nil {
			logger.Log.Fatalf("Failed to create RPC server: %v", err)
		}
		admin := roomsync_rpc.NewRoomAdmin(services.NewRoomStatsService(gormStore))
		rpc.Register(admin)
		go rpcServer.Start()
		defer rpcServer.Stop()
	}

	// Start HTTP server
	srv := server.NewServer(cfg.Server.HTTPAddress, registry, mon)
	if err := srv.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

func newStore(cfg *config.Config) (persistence.Store, error) {
	pg := cfg.Store.Postgres
	switch cfg.Store.Driver {
	case "postgres":
		return persistence.NewPostgresStore(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "gorm":
		return persistence.NewGormStore(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return persistence.NewMemoryStore(), nil
	}
}
