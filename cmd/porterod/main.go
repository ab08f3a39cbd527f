// Portero Core - Building Access Gateway
//
// This is the main entry point for the Portero Core daemon. Portero
// accepts visitor and alert notifications from door stations, stores
// them durably, streams them live to subscribed clients, and forwards
// relay actuation commands to remote door controllers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/controlportero/portero-core/migrations"

	"github.com/controlportero/portero-core/internal/api"
	"github.com/controlportero/portero-core/internal/audit"
	"github.com/controlportero/portero-core/internal/auth"
	"github.com/controlportero/portero-core/internal/bridges/doorbell"
	"github.com/controlportero/portero-core/internal/camera"
	"github.com/controlportero/portero-core/internal/infrastructure/config"
	"github.com/controlportero/portero-core/internal/infrastructure/database"
	"github.com/controlportero/portero-core/internal/infrastructure/influxdb"
	"github.com/controlportero/portero-core/internal/infrastructure/logging"
	"github.com/controlportero/portero-core/internal/infrastructure/mqtt"
	"github.com/controlportero/portero-core/internal/notification"
	"github.com/controlportero/portero-core/internal/relay"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Deferred Close calls unwind in reverse start order on
// shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Portero Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	// Database holds user accounts and the audit log.
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	userRepo := auth.NewUserRepository(db.DB)
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Notification store: append-only JSON document plus attachment dir.
	store, err := notification.Open(cfg.Storage.NotificationsFile)
	if err != nil {
		return fmt.Errorf("opening notification store: %w", err)
	}
	defer func() {
		log.Info("closing notification store")
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing notification store", "error", closeErr)
		}
	}()
	store.SetLogger(log)
	log.Info("notification store opened",
		"path", cfg.Storage.NotificationsFile,
		"records", store.Len(),
	)

	ingestor, err := notification.NewService(store, cfg.Storage.UploadDir)
	if err != nil {
		return fmt.Errorf("creating ingestion service: %w", err)
	}
	ingestor.SetLogger(log)

	distributor := notification.NewDistributor(store,
		time.Duration(cfg.Stream.PollInterval)*time.Second,
		cfg.Stream.BufferSize,
	)
	distributor.SetLogger(log)

	relayGateway := relay.NewGateway(cfg.Relay.Port, time.Duration(cfg.Relay.Timeout)*time.Second)
	relayGateway.SetLogger(log)

	cameraRepo := camera.NewRepository(cfg.Storage.CamerasFile)
	cameraRepo.SetLogger(log)
	log.Info("camera repository loaded", "cameras", len(cameraRepo.List()))

	// Audit recorder buffers entries and flushes them in the background.
	auditRepo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(auditRepo, time.Duration(cfg.Audit.FlushInterval)*time.Second)
	recorder.SetLogger(log)
	recorder.Start(ctx)
	defer func() {
		log.Info("flushing audit recorder")
		if closeErr := recorder.Close(); closeErr != nil {
			log.Error("error closing audit recorder", "error", closeErr)
		}
	}()

	// MQTT broker is optional: without it, door stations use HTTP only.
	var mqttClient *mqtt.Client
	var bridge *doorbell.Bridge
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge = doorbell.New(mqttClient, ingestor)
		bridge.SetLogger(log)
		if startErr := bridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting doorbell bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping doorbell bridge")
			bridge.Stop()
		}()
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry is optional.
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	server, err := api.New(api.Deps{
		Config:      cfg,
		Logger:      log,
		Store:       store,
		Ingestor:    ingestor,
		Distributor: distributor,
		Relay:       relayGateway,
		Cameras:     cameraRepo,
		Users:       userRepo,
		Recorder:    recorder,
		AuditRepo:   auditRepo,
		MQTT:        mqttClient,
		Influx:      influxClient,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
	}

	log.Info("Portero Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PORTERO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PORTERO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
