package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/adapters/http"
	natsadapter "github.com/maGnet2C-cmd/Cycling-heatmap/internal/adapters/nats"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/pkg/config"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/pkg/logging"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/pkg/telemetry"
	"github.com/maGnet2C-cmd/Cycling-heatmap/web"
)

func main() {
	cfg, err := config.Load("heatmap-server")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// NATS is optional: without it the server still serves files, it just
	// cannot announce updates.
	var pub *natsadapter.Publisher
	if cfg.NATS.URL != "" {
		pub, err = natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
			pub = nil
		} else {
			defer pub.Close()
		}
	}

	deps := &http.Dependencies{
		DataDir: cfg.Data.Dir,
		Shell:   web.Shell,
	}
	if pub != nil {
		deps.NATS = pub.Conn()
		go watchData(ctx, pub, cfg.Data.Dir, time.Duration(cfg.Data.PollInterval)*time.Second)
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Cycling Heatmap",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("heatmap server starting", "addr", addr, "data_dir", cfg.Data.Dir)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// fileState is what was last announced for one data file.
type fileState struct {
	size    int64
	modTime time.Time
}

// watchData polls the data files and publishes an update event when the
// converter rewrites one. Files absent at startup are announced when they
// first appear.
func watchData(ctx context.Context, pub *natsadapter.Publisher, dir string, every time.Duration) {
	resources := map[string]string{
		"points.bin":   "stream",
		"summary.json": "summary",
	}

	// Prime with the current state so startup does not announce stale data.
	seen := make(map[string]fileState)
	for name := range resources {
		if fi, err := os.Stat(filepath.Join(dir, name)); err == nil {
			seen[name] = fileState{size: fi.Size(), modTime: fi.ModTime()}
		}
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	slog.Info("watching data dir", "dir", dir, "every", every.String())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for name, resource := range resources {
			fi, err := os.Stat(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			cur := fileState{size: fi.Size(), modTime: fi.ModTime()}
			if prev, ok := seen[name]; ok && prev == cur {
				continue
			}
			seen[name] = cur

			ev := &domain.DataUpdate{Resource: resource, Size: cur.size, ModTime: cur.modTime}
			if err := pub.PublishDataUpdate(ctx, ev); err != nil {
				slog.Warn("publish data update failed", "resource", resource, "error", err)
				continue
			}
			slog.Info("data update published", "resource", resource, "size", cur.size)
		}
	}
}
