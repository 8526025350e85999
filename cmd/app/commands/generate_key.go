package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	keysUsecase "github.com/allisson/phiguard/internal/keys/usecase"
)

// RunGenerateKey creates a data key. It becomes active only when the store has
// no active key; otherwise it is stored retired and the active key is unchanged.
func RunGenerateKey(
	ctx context.Context,
	keyManager keysUsecase.KeyManager,
	logger *slog.Logger,
	writer io.Writer,
) error {
	if err := loadKeyRing(ctx, keyManager); err != nil {
		return err
	}

	keyID, err := keyManager.GenerateKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	currentID, _ := keyManager.GetCurrentKeyID()
	if currentID == keyID {
		_, _ = fmt.Fprintf(writer, "Generated active key %s\n", keyID)
	} else {
		_, _ = fmt.Fprintf(writer, "Generated key %s (retired, active key is %s; use rotate-key to switch)\n", keyID, currentID)
	}

	logger.Info("key generation completed", slog.String("key_id", keyID))
	return nil
}
