// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/allisson/phiguard/internal/app"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
	keysUsecase "github.com/allisson/phiguard/internal/keys/usecase"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// loadKeyRing loads the key ring without generating a key. An empty store is
// not an error for administrative commands.
func loadKeyRing(ctx context.Context, keyManager keysUsecase.KeyManager) error {
	if err := keyManager.Load(ctx, false); err != nil && !errors.Is(err, keysDomain.ErrNoActiveKey) {
		return fmt.Errorf("failed to load keys: %w", err)
	}
	return nil
}

// validateFormat checks an output format flag.
func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}
