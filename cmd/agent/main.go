package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unistory/storyboard-agent/internal/api"
	"github.com/unistory/storyboard-agent/internal/capture"
	"github.com/unistory/storyboard-agent/internal/config"
	"github.com/unistory/storyboard-agent/internal/db"
	"github.com/unistory/storyboard-agent/internal/export"
	"github.com/unistory/storyboard-agent/internal/locale"
	"github.com/unistory/storyboard-agent/internal/logging"
	"github.com/unistory/storyboard-agent/internal/storyboard"
	"github.com/unistory/storyboard-agent/internal/ui"
	"github.com/unistory/storyboard-agent/internal/video"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting storyboard agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	labels := startupLabels(database, cfg)
	repo := storyboard.NewRepository(database.Conn(), func() storyboard.Schema {
		return storyboard.DefaultSchema(labels)
	}, logger)

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                 UNISTORY STORYBOARD AGENT                 ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	svc := storyboard.NewService(repo, labels, logger)
	if err := svc.Load(context.Background()); err != nil {
		return fmt.Errorf("failed to load storyboard: %w", err)
	}
	logger.Info("storyboard loaded", "frames", svc.FrameCount(), "locale", labels.Tag.String())

	doctor := capture.NewDoctor(cfg.FFmpegPath(), cfg.FFprobePath(), logger)

	var grabber capture.Grabber
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	caps := doctor.Get(probeCtx)
	probeCancel()
	if caps.CanCapture() {
		grabber = capture.NewFFmpegGrabber(caps.FFmpegPath, caps.FFprobePath, logger)
		logger.Info("ffmpeg detected", "version", caps.FFmpegVersion, "path", caps.FFmpegPath)
	} else {
		grabber = capture.NewStubGrabber(logger)
		logger.Warn("ffmpeg not found, captures will use stub frames")
	}

	player := video.NewPlayer(grabber, logger)
	exporter := export.NewXLSXWriter(logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Storyboard: svc,
		Player:     player,
		Grabber:    grabber,
		Doctor:     doctor,
		Repository: repo,
		Exporter:   exporter,
		ExportDir:  cfg.ExportDir(),
		Logger:     logger,
		StartTime:  startTime,
		DeviceID:   deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Logger: logger,
			OnExport: func() error {
				frames, schema := svc.Snapshot()
				if len(frames) == 0 {
					logger.Warn("tray export skipped, storyboard is empty")
					return nil
				}
				if err := os.MkdirAll(cfg.ExportDir(), 0755); err != nil {
					return err
				}
				table := export.Project(frames, schema, svc.Labels())
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				path, err := exporter.Write(ctx, table, cfg.ExportDir(), export.DefaultFilename)
				if err != nil {
					return err
				}
				logger.Info("tray export complete", "path", path)
				return nil
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// startupLabels resolves the UI language. A locale stored by a previous
// run wins over the config default.
func startupLabels(database *db.DB, cfg config.Config) locale.Labels {
	var stored string
	row := database.Conn().QueryRow("SELECT value FROM config WHERE key = 'locale'")
	if err := row.Scan(&stored); err == nil && stored != "" {
		return locale.Match(stored)
	}
	return locale.Match(cfg.Locale())
}

func ensureDeviceID(repo storyboard.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo storyboard.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
