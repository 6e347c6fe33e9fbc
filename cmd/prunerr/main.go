package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/helliott20/prunerr-sub001/internal/api"
	"github.com/helliott20/prunerr-sub001/internal/config"
	"github.com/helliott20/prunerr-sub001/internal/controllers"
	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/helliott20/prunerr-sub001/internal/rules"
	"github.com/helliott20/prunerr-sub001/internal/scheduler"
	"github.com/helliott20/prunerr-sub001/internal/services/overseerr"
	"github.com/helliott20/prunerr-sub001/internal/services/plex"
	"github.com/helliott20/prunerr-sub001/internal/services/radarr"
	"github.com/helliott20/prunerr-sub001/internal/services/sonarr"
	"github.com/helliott20/prunerr-sub001/internal/services/webhook"
	"github.com/helliott20/prunerr-sub001/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting Prunerr")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Initialize external service clients
	plexClient, err := plex.NewClient(cfg.PlexURL, cfg.PlexToken, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Plex client: %w", err)
	}
	radarrClient, err := radarr.NewClient(cfg.RadarrURL, cfg.RadarrAPIKey, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Radarr client: %w", err)
	}
	sonarrClient, err := sonarr.NewClient(cfg.SonarrURL, cfg.SonarrAPIKey, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Sonarr client: %w", err)
	}
	logger.Info("External service clients initialized")

	notifier := webhook.NewNotifier(cfg.WebhookURL, logger)

	// 5. Initialize controllers
	defaults := controllers.ScanDefaults{
		GracePeriodDays: cfg.GracePeriodDays,
		DeletionAction:  cfg.DefaultDeletionAction,
		ResetOverseerr:  cfg.ResetOverseerr,
	}

	evaluator := rules.NewEvaluator(logger)
	matcher := rules.NewMatcher(evaluator, logger)
	queueCtrl := controllers.NewQueueController(db, logger)
	scanCtrl := controllers.NewScanController(db, matcher, queueCtrl, notifier, defaults, logger)
	syncCtrl := controllers.NewSyncController(db, plexClient, radarrClient, sonarrClient, logger)

	var deleteOpts []controllers.DeleteOption
	if cfg.OverseerrEnabled() {
		overseerrClient, err := overseerr.NewClient(cfg.OverseerrURL, cfg.OverseerrAPIKey, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Overseerr client: %w", err)
		}
		deleteOpts = append(deleteOpts, controllers.WithRequestBroker(overseerrClient))
		logger.Info("Overseerr client initialized")
	} else {
		logger.Info("Overseerr not configured, request-broker resets disabled")
	}
	deleteCtrl := controllers.NewDeleteController(db, radarrClient, sonarrClient, queueCtrl, notifier, logger, deleteOpts...)
	logger.Info("Controllers initialized")

	// 6. Initialize scheduler and register tasks
	sched := scheduler.NewScheduler(logger)

	err = sched.Register("syncLibrary", cfg.SyncCron, func(ctx context.Context) (map[string]int, error) {
		result, err := syncCtrl.SyncLibrary(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]int{
			"synced":  result.ItemsSynced,
			"created": result.ItemsCreated,
			"removed": result.ItemsRemoved,
		}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to register sync task: %w", err)
	}

	err = sched.Register("scanLibraries", cfg.ScanCron, func(ctx context.Context) (map[string]int, error) {
		result, err := scanCtrl.RunScan(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]int{
			"scanned":   result.ItemsScanned,
			"flagged":   result.ItemsFlagged,
			"queued":    result.ItemsQueued,
			"protected": result.ItemsProtected,
		}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to register scan task: %w", err)
	}

	err = sched.Register("processDeletionQueue", cfg.QueueCron, func(ctx context.Context) (map[string]int, error) {
		result, err := deleteCtrl.ProcessPendingDeletions(ctx, false)
		if err != nil {
			return nil, err
		}
		return result.Counters(), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register queue task: %w", err)
	}

	err = sched.Register("deletionReminders", cfg.ReminderCron, func(ctx context.Context) (map[string]int, error) {
		due, err := queueCtrl.Reminders(cfg.ReminderDays)
		if err != nil {
			return nil, err
		}
		for _, item := range due {
			notifier.Notify("deletion_reminder", map[string]interface{}{
				"mediaId":       item.Media.ID,
				"title":         item.Media.Title,
				"daysRemaining": item.DaysRemaining,
				"action":        item.Media.DeletionAction,
			})
		}
		return map[string]int{"reminders": len(due)}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to register reminder task: %w", err)
	}

	sched.Start()
	defer sched.Stop()
	logger.Info("Scheduler started")

	// 7. Initialize HTTP server
	server := api.NewServer(cfg, api.Deps{
		DB:         db,
		Queue:      queueCtrl,
		DeleteCtrl: deleteCtrl,
		Scheduler:  sched,
		Defaults:   defaults,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 8. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Prunerr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Prunerr stopped")
	return nil
}
