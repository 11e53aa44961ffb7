package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"intruderwatch/internal/config"
	"intruderwatch/internal/logger"
	"intruderwatch/internal/repository/sqlite"
	"intruderwatch/internal/route"
	"intruderwatch/internal/service"
	"intruderwatch/internal/service/ai"
	"intruderwatch/internal/service/camera"
	"intruderwatch/internal/service/filter"
	"intruderwatch/internal/service/session"
	"intruderwatch/internal/service/storage"
	"intruderwatch/internal/service/stream"
	"intruderwatch/internal/service/websocket"
)

type App struct {
	config   *config.Config
	logger   *logger.Logger
	db       *sqlite.DB
	source   camera.Source
	detector *ai.DetectorService
	hub      *websocket.HubService
	manager  *service.Manager
	server   *http.Server
}

// NewApp wires configuration, storage, the detector, the camera and the HTTP surface.
func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)
	if cfg.Password == config.DefaultPassword {
		log.Warning("PASSWORD is not set, the default password is in use")
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	captureRepo := sqlite.NewCaptureRepository(db)
	artifactRepo := sqlite.NewArtifactRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	bank, err := filter.NewBank(filter.ParamsFromConfig(cfg))
	if err != nil {
		db.Close()
		log.Close()
		return nil, fmt.Errorf("failed to build filter bank: %w", err)
	}

	writer := storage.NewWriter(cfg, log, captureRepo, artifactRepo, detectionRepo)

	detector := ai.NewDetectorService(cfg, log, ai.NewPolicy(cfg))
	if err := detector.Open(); err != nil {
		// Frames are still streamed without detections.
		log.Warning("Detector unavailable, streaming without detection: %v", err)
	}

	source := camera.New(cfg, log)
	if err := source.Open(); err != nil {
		detector.Close()
		db.Close()
		log.Close()
		return nil, fmt.Errorf("failed to open camera %s: %w", cfg.CameraSource, err)
	}

	hub := websocket.NewHubService(cfg, log)
	mjpeg := stream.NewMJPEG()
	manager := service.NewManager(source, detector, bank, writer, log, hub, mjpeg)

	router := route.SetupRoutes(route.Deps{
		Config:        cfg,
		Logger:        log,
		Manager:       manager,
		Writer:        writer,
		Hub:           hub,
		Stream:        mjpeg,
		Sessions:      session.NewStore(),
		CaptureRepo:   captureRepo,
		ArtifactRepo:  artifactRepo,
		DetectionRepo: detectionRepo,
	})

	return &App{
		config:   cfg,
		logger:   log,
		db:       db,
		source:   source,
		detector: detector,
		hub:      hub,
		manager:  manager,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: router,
		},
	}, nil
}

// Run starts the background services and serves HTTP until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.hub.Run()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		a.manager.Run()
	}()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Intruder watch listening on http://localhost:%d (camera %s)", a.config.Port, a.source.Name())
		a.logger.Info("Artifacts: %s, crops: %s, model: %s", a.config.OutputDir, a.config.CropDirectory, a.config.ModelPath)
		serverErr <- a.server.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	case <-loopDone:
		a.logger.Info("Camera stream ended, shutting down")
	case err = <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	a.shutdown(loopDone)
	return err
}

func (a *App) shutdown(loopDone <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Open MJPEG streams never finish on their own.
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warning("HTTP shutdown timed out, closing connections: %v", err)
		a.server.Close()
	}

	if err := a.source.Close(); err != nil {
		a.logger.Error("Failed to close camera: %v", err)
	}
	<-loopDone

	a.hub.Stop()
	if err := a.detector.Close(); err != nil {
		a.logger.Error("Failed to close detector: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}

	stats := a.manager.Stats()
	a.logger.Info("Processed %d frames, %d flagged, %d captures, %d failures",
		stats.Frames, stats.Flagged, stats.Captures, stats.Failures)
	a.logger.Close()
}
