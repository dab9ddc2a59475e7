// Package app initializes and runs the main application service.
// It configures logging, storage, the media backend, authentication and
// routing, and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/staybook/internal/auth"
	"github.com/patric-chuzhbe/staybook/internal/config"
	"github.com/patric-chuzhbe/staybook/internal/db/jsondb"
	"github.com/patric-chuzhbe/staybook/internal/db/memorystorage"
	"github.com/patric-chuzhbe/staybook/internal/db/postgresdb"
	"github.com/patric-chuzhbe/staybook/internal/db/storage"
	"github.com/patric-chuzhbe/staybook/internal/ipchecker"
	"github.com/patric-chuzhbe/staybook/internal/logger"
	"github.com/patric-chuzhbe/staybook/internal/media"
	"github.com/patric-chuzhbe/staybook/internal/mediastore"
	"github.com/patric-chuzhbe/staybook/internal/mediastore/gcs"
	"github.com/patric-chuzhbe/staybook/internal/mediastore/localdisk"
	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/router"
	"github.com/patric-chuzhbe/staybook/internal/service"
)

// App encapsulates the configuration, HTTP handler, storage backends and
// everything else needed to run the booking service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	gcsStore    *gcs.Store
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing the logger
// - selecting and setting up the persistence backend
// - selecting and setting up the media backend
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	sessionSigningSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.SessionSigningSecretKey)
	if err != nil {
		return nil, err
	}

	theAuth := auth.New(app.cfg.SessionCookieName, sessionSigningSecretKey)

	mediaStore, uploadsDir, err := app.getMediaStore(context.Background())
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}
	if checker.IsTrustedSubnetEmpty() {
		checker = nil
	}

	app.httpHandler = router.New(
		service.New(app.db),
		media.New(mediaStore, app.cfg.UploadTimeout),
		theAuth,
		router.Options{
			AllowedOrigin: app.cfg.AllowedOrigin,
			UploadsDir:    uploadsDir,
			IPChecker:     checker,
		},
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		if a.gcsStore != nil {
			if err := a.gcsStore.Close(); err != nil {
				return err
			}
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}

// getMediaStore selects the media backend: the object-store variant when a
// bucket is configured, the local-disk variant otherwise. The returned
// uploadsDir is empty for the object-store variant, which needs no static
// file route.
func (a *App) getMediaStore(ctx context.Context) (mediastore.Store, string, error) {
	if a.cfg.MediaBucket != "" {
		gcsStore, err := gcs.New(ctx, a.cfg.MediaBucket)
		if err != nil {
			return nil, "", err
		}
		a.gcsStore = gcsStore

		return gcsStore, "", nil
	}

	localStore, err := localdisk.New(a.cfg.UploadsDir, a.cfg.PublicBaseURL)
	if err != nil {
		return nil, "", err
	}

	return localStore, localStore.Dir(), nil
}
