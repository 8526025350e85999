package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/phiguard/internal/app"
	"github.com/allisson/phiguard/internal/config"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
	keysUsecase "github.com/allisson/phiguard/internal/keys/usecase"
)

const (
	shutdownTimeout       = 15 * time.Second
	rotationCheckInterval = time.Hour
)

// RunServer loads the key ring and serves the API and metrics servers until
// SIGINT/SIGTERM or a server failure, then shuts both down gracefully.
//
// With KEY_AUTO_GENERATE disabled and an empty key store the server still starts
// but /ready reports 503 and every protect call fails until a key exists.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	defer closeContainer(container, logger)

	keyManager, err := container.KeyManager()
	if err != nil {
		return fmt.Errorf("failed to initialize key manager: %w", err)
	}

	if err := keyManager.Load(ctx, cfg.KeyAutoGenerate); err != nil {
		if !errors.Is(err, keysDomain.ErrNoActiveKey) {
			return fmt.Errorf("failed to load keys: %w", err)
		}
		logger.Warn("no active key, service is not ready")
	}

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(gctx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		runKeyRotation(gctx, keyManager, rotationCheckInterval, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		var shutdownErrors []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return g.Wait()
}

// runKeyRotation reloads the key ring every interval until ctx is done, picking
// up keys rotated by other processes, and rotates the active key once it
// outlives the rotation interval. Failures are logged and the previous key stays
// active.
func runKeyRotation(
	ctx context.Context,
	keyManager keysUsecase.KeyManager,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			keyID, rotated, err := keyManager.RotateIfNeeded(ctx, "")
			if errors.Is(err, keysDomain.ErrNoActiveKey) {
				logger.Warn("no active key, service is not ready")
				continue
			}
			if err != nil {
				logger.Error("scheduled key rotation failed", slog.Any("error", err))
				continue
			}
			if rotated {
				logger.Info("scheduled key rotation completed", slog.String("key_id", keyID))
			}
		}
	}
}
