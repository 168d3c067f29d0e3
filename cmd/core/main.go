// Command core runs the Podium sync daemon: it keeps the local cache in step
// with the backend, replays offline writes on reconnect, and fills upcoming
// calendar gaps.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/podiumhq/podium-core/internal/agenda"
	"github.com/podiumhq/podium-core/internal/backend"
	"github.com/podiumhq/podium-core/internal/cache"
	"github.com/podiumhq/podium-core/internal/config"
	"github.com/podiumhq/podium-core/internal/connectivity"
	"github.com/podiumhq/podium-core/internal/db"
	"github.com/podiumhq/podium-core/internal/logging"
	"github.com/podiumhq/podium-core/internal/sync"
	"github.com/podiumhq/podium-core/internal/sync/queue"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "core: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if err := logging.InitLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	defer logging.Sync()

	conn, err := db.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	defer conn.Close()

	migrator := db.NewMigrator(conn.DB)
	if err := migrator.Initialize(); err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		return err
	}

	repo := db.NewRepository(conn.DB)
	defer repo.Close()

	store := cache.NewStore()
	client := backend.NewClient(cfg.Backend, nil)

	prober := connectivity.NewProber(cfg.Backend.BaseURL, cfg.Sync.GetPollInterval())
	defer prober.Close()
	monitor := connectivity.NewMonitor(prober, cfg.Sync.GetIndicatorHideDelay())
	defer monitor.Close()

	q := queue.NewMutationQueue(
		db.NewKeyValueStorage(repo, queue.StorageKey),
		cfg.Sync.MaxQueueSize,
		cfg.Sync.MaxRetries,
	)

	drainer := sync.NewDrainer(q, client, store, monitor)
	drainer.Start()

	subscriber := sync.NewSubscriber(client, monitor, store, cfg.Sync.GetPollInterval())
	subscriber.Start()
	defer subscriber.Close()

	if cfg.Reconciler.Enabled {
		reconciler := agenda.NewReconciler(repo, cfg.Backend.CongregationID)
		scheduler := agenda.NewScheduler(reconciler,
			cfg.Reconciler.GetMeetingWeekday(), cfg.Reconciler.HorizonWeeks)
		if err := scheduler.Start(cfg.Reconciler.Schedule); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	logging.Log.Info("Sync core running",
		zap.String("congregation", cfg.Backend.CongregationID),
		zap.Int("pending_writes", q.Size()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Log.Info("Shutting down")
	drainer.Wait()
	return nil
}
