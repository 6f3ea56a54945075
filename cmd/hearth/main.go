// Hearth - household dashboard automation engine.
//
// This is the main entry point for the Hearth service. It runs the
// background scheduler that fires device timers, calendar automations and
// alerts, and serves the dashboard REST/WebSocket API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/hearth/internal/api"
	"github.com/nerrad567/hearth/internal/audit"
	"github.com/nerrad567/hearth/internal/automation"
	"github.com/nerrad567/hearth/internal/infrastructure/config"
	"github.com/nerrad567/hearth/internal/infrastructure/database"
	"github.com/nerrad567/hearth/internal/infrastructure/influxdb"
	"github.com/nerrad567/hearth/internal/infrastructure/logging"
	"github.com/nerrad567/hearth/internal/infrastructure/mqtt"
	"github.com/nerrad567/hearth/internal/notify"
	"github.com/nerrad567/hearth/internal/store"
	"github.com/nerrad567/hearth/migrations"
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
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
// Components are torn down in reverse start order by the deferred calls:
// API, scheduler, notification queue, exporters, database.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Hearth",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"household", cfg.Household.ID,
		"level", cfg.Logging.Level,
	)

	db, err := database.Open(database.Config{
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
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	health := map[string]api.HealthChecker{"database": db}

	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		health["mqtt"] = mqttClient
	}

	influxClient, err := connectInflux(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		health["influxdb"] = influxClient
	}

	g, gctx := errgroup.WithContext(ctx)

	hub := api.NewHub(cfg.WebSocket, log)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	sinks := []notify.Sink{notify.NewLogSink(log), notify.NewHubSink(hub)}
	publishers := automation.StatePublishers{hub}
	if mqttClient != nil {
		sinks = append(sinks, notify.NewMQTTSink(mqttClient, log))
		publishers = append(publishers, mqttClient)
	}
	dispatcher := notify.NewDispatcher(cfg.Scheduler.NotifyBuffer, log, sinks...)
	defer func() {
		log.Info("draining notification queue")
		dispatcher.Close()
	}()

	deps := automation.Deps{
		Store:    store.NewSQLiteGateway(db.DB),
		Notifier: dispatcher,
		State:    publishers,
		History:  audit.NewSQLiteRepository(db.DB),
		Logger:   log.With("component", "automation"),
	}
	if influxClient != nil {
		deps.Energy = influxClient
	}
	svc := automation.New(automation.Config{
		Interval:       cfg.Scheduler.Interval,
		LeadTime:       cfg.Scheduler.LeadTime,
		Window:         cfg.Scheduler.AutomationWindow,
		PersistTimeout: cfg.Scheduler.PersistTimeout,
	}, deps)
	if startErr := svc.Start(gctx); startErr != nil {
		return fmt.Errorf("starting scheduler: %w", startErr)
	}
	defer svc.Shutdown()

	if mqttClient != nil {
		handler := newCommandHandler(gctx, svc, log)
		if subErr := mqttClient.Subscribe(mqtt.Topics{}.AllCommands(), byte(cfg.MQTT.QoS), handler); subErr != nil {
			return fmt.Errorf("subscribing to device commands: %w", subErr)
		}
	}

	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Service:     svc,
		Health:      health,
		Notify:      dispatcher,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(gctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-gctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if waitErr := g.Wait(); waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}

	log.Info("Hearth stopped")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT dials the broker when MQTT is enabled. A nil client means
// the bridge is switched off.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// connectInflux opens the energy exporter when InfluxDB is enabled.
func connectInflux(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}
