package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	keysUsecase "github.com/allisson/phiguard/internal/keys/usecase"
)

// RunRotateKey makes a new key active and retires the previous one. With
// ifNeeded it rotates only when the active key has outlived the rotation interval.
func RunRotateKey(
	ctx context.Context,
	keyManager keysUsecase.KeyManager,
	logger *slog.Logger,
	writer io.Writer,
	scope string,
	ifNeeded bool,
) error {
	if err := loadKeyRing(ctx, keyManager); err != nil {
		return err
	}

	if ifNeeded {
		keyID, rotated, err := keyManager.RotateIfNeeded(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to rotate key: %w", err)
		}
		if !rotated {
			_, _ = fmt.Fprintf(writer, "Key %s is within the rotation interval, nothing to do\n", keyID)
			return nil
		}
		_, _ = fmt.Fprintf(writer, "Rotated to key %s\n", keyID)
		printRotationNotice(writer)
		logger.Info("key rotation completed", slog.String("key_id", keyID), slog.String("scope", scope))
		return nil
	}

	keyID, err := keyManager.RotateKey(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to rotate key: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Rotated to key %s\n", keyID)
	printRotationNotice(writer)
	logger.Info("key rotation completed", slog.String("key_id", keyID), slog.String("scope", scope))
	return nil
}

// printRotationNotice tells operators when running servers switch keys.
func printRotationNotice(writer io.Writer) {
	_, _ = fmt.Fprintln(writer, "Running servers decrypt with the new key immediately and start encrypting with it")
	_, _ = fmt.Fprintln(writer, "at their next hourly key check. Restart them to switch right away.")
}
