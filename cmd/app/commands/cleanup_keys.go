package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	keysUsecase "github.com/allisson/phiguard/internal/keys/usecase"
)

// RunCleanupKeys purges retired keys retired for longer than retentionDays.
// Dry-run lists the candidates without deleting anything. A real purge is
// refused unless references are verified or unverified purges are allowed.
func RunCleanupKeys(
	ctx context.Context,
	keyManager keysUsecase.KeyManager,
	logger *slog.Logger,
	writer io.Writer,
	retentionDays int,
	dryRun bool,
	format string,
) error {
	if retentionDays < 0 {
		return fmt.Errorf("retention days must be a positive number, got: %d", retentionDays)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("cleaning retired keys",
		slog.Int("retention_days", retentionDays),
		slog.Bool("dry_run", dryRun),
	)

	if err := loadKeyRing(ctx, keyManager); err != nil {
		return err
	}

	var keyIDs []string
	if dryRun {
		candidates, err := keyManager.CleanupCandidates(retentionDays)
		if err != nil {
			return fmt.Errorf("failed to list cleanup candidates: %w", err)
		}
		for _, key := range candidates {
			keyIDs = append(keyIDs, key.ID)
		}
	} else {
		purged, err := keyManager.CleanupOldKeys(ctx, retentionDays)
		if err != nil {
			return fmt.Errorf("failed to purge keys: %w", err)
		}
		keyIDs = purged
	}

	if format == "json" {
		if err := outputCleanupJSON(writer, keyIDs, retentionDays, dryRun); err != nil {
			return err
		}
	} else {
		outputCleanupText(writer, keyIDs, retentionDays, dryRun)
	}

	logger.Info("cleanup completed",
		slog.Int("count", len(keyIDs)),
		slog.Int("retention_days", retentionDays),
		slog.Bool("dry_run", dryRun),
	)
	return nil
}

func outputCleanupText(writer io.Writer, keyIDs []string, retentionDays int, dryRun bool) {
	if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would purge %d key(s) retired more than %d day(s) ago\n",
			len(keyIDs), retentionDays)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully purged %d key(s) retired more than %d day(s) ago\n",
			len(keyIDs), retentionDays)
	}
	for _, id := range keyIDs {
		_, _ = fmt.Fprintf(writer, "  %s\n", id)
	}
}

func outputCleanupJSON(writer io.Writer, keyIDs []string, retentionDays int, dryRun bool) error {
	if keyIDs == nil {
		keyIDs = []string{}
	}
	result := map[string]interface{}{
		"count":          len(keyIDs),
		"key_ids":        keyIDs,
		"retention_days": retentionDays,
		"dry_run":        dryRun,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
