package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	keysUsecase "github.com/allisson/phiguard/internal/keys/usecase"
)

// RunKeyStats prints the key manager statistics.
func RunKeyStats(ctx context.Context, keyManager keysUsecase.KeyManager, writer io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if err := loadKeyRing(ctx, keyManager); err != nil {
		return err
	}

	stats := keyManager.Stats()

	if format == "json" {
		jsonBytes, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
		return nil
	}

	currentID := stats.CurrentKeyID
	if currentID == "" {
		currentID = "(none)"
	}
	_, _ = fmt.Fprintf(writer, "Algorithm:              %s\n", stats.Algorithm)
	_, _ = fmt.Fprintf(writer, "Key length:             %d\n", stats.KeyLength)
	_, _ = fmt.Fprintf(writer, "IV length:              %d\n", stats.IVLength)
	_, _ = fmt.Fprintf(writer, "Tag length:             %d\n", stats.TagLength)
	_, _ = fmt.Fprintf(writer, "Active keys:            %d\n", stats.ActiveKeyCount)
	_, _ = fmt.Fprintf(writer, "Total keys:             %d\n", stats.TotalKeyCount)
	_, _ = fmt.Fprintf(writer, "Current key:            %s\n", currentID)
	_, _ = fmt.Fprintf(writer, "Rotation interval days: %d\n", stats.RotationIntervalDays)
	return nil
}
