package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	cryptoService "github.com/allisson/phiguard/internal/crypto/service"
)

// RunCreateMasterKey generates a 32-byte master key.
//
// Without kmsKeyURI the key is printed as a localsecrets base64key:// URI, ready
// to use as KMS_KEY_URI in development. With kmsKeyURI the key is wrapped by that
// KMS and printed as base64 ciphertext; the plaintext never leaves the process.
// Key material is zeroed before returning.
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsKeyURI string,
) error {
	masterKey := make([]byte, cryptoDomain.KeyLength)
	defer cryptoDomain.Zero(masterKey)

	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}

	if kmsKeyURI == "" {
		_, _ = fmt.Fprintln(writer, "# Local master key for development. Never use localsecrets in production.")
		_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"base64key://%s\"\n", base64.URLEncoding.EncodeToString(masterKey))
		logger.Info("local master key generated")
		return nil
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	wrapper := cryptoService.NewKeeperWrapper(keeper)
	defer func() {
		if closeErr := wrapper.Close(); closeErr != nil {
			logger.Error("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	wrapped, err := wrapper.Wrap(ctx, masterKey)
	if err != nil {
		return fmt.Errorf("failed to wrap master key with KMS: %w", err)
	}

	_, _ = fmt.Fprintln(writer, "# Master key wrapped by KMS")
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "WRAPPED_MASTER_KEY=\"%s\"\n", base64.StdEncoding.EncodeToString(wrapped))

	logger.Info("master key wrapped with KMS")
	return nil
}
