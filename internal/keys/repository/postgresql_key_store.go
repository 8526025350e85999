package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	cryptoService "github.com/allisson/phiguard/internal/crypto/service"
	"github.com/allisson/phiguard/internal/database"
	apperrors "github.com/allisson/phiguard/internal/errors"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

// PostgreSQLKeyStore persists keys in PostgreSQL.
//
// Database schema requirements:
//   - id: VARCHAR(64) PRIMARY KEY
//   - algorithm: VARCHAR(32)
//   - wrapped_material: BYTEA (key material encrypted by the KMS keeper)
//   - status: VARCHAR(16) ('active' or 'retired')
//   - scope: VARCHAR(255)
//   - created_at: TIMESTAMPTZ
//   - retired_at: TIMESTAMPTZ (nullable)
//
// All methods honour a transaction carried in ctx via database.GetTx.
type PostgreSQLKeyStore struct {
	db        *sql.DB
	txManager database.TxManager
	wrapper   cryptoService.KeyWrapper
}

// NewPostgreSQLKeyStore creates a PostgreSQLKeyStore.
func NewPostgreSQLKeyStore(
	db *sql.DB,
	txManager database.TxManager,
	wrapper cryptoService.KeyWrapper,
) *PostgreSQLKeyStore {
	return &PostgreSQLKeyStore{db: db, txManager: txManager, wrapper: wrapper}
}

// Create wraps the key material and inserts the key.
func (p *PostgreSQLKeyStore) Create(ctx context.Context, key *keysDomain.Key) error {
	wrapped, err := p.wrapper.Wrap(ctx, key.Material)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO encryption_keys (id, algorithm, wrapped_material, status, scope, created_at, retired_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = querier.ExecContext(
		ctx,
		query,
		key.ID,
		string(key.Algorithm),
		wrapped,
		string(key.Status),
		key.Scope,
		key.CreatedAt,
		key.RetiredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return keysDomain.ErrKeyAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create key")
	}
	return nil
}

// Rotate marks retired and inserts next in one transaction. It returns
// ErrStaleKeyState when retired is no longer the active key, or when retired is
// nil but the store already has an active key.
func (p *PostgreSQLKeyStore) Rotate(ctx context.Context, retired *keysDomain.Key, next *keysDomain.Key) error {
	return p.txManager.WithTx(ctx, func(ctx context.Context) error {
		if retired != nil {
			if err := p.retire(ctx, retired.ID, retired.RetiredAt); err != nil {
				return err
			}
		} else if err := p.ensureNoActive(ctx); err != nil {
			return err
		}
		if err := p.Create(ctx, next); err != nil {
			// next has a fresh id, so a conflict comes from the single active key index.
			if errors.Is(err, keysDomain.ErrKeyAlreadyExists) {
				return keysDomain.ErrStaleKeyState
			}
			return err
		}
		return nil
	})
}

func (p *PostgreSQLKeyStore) retire(ctx context.Context, keyID string, retiredAt *time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE encryption_keys SET status = $1, retired_at = $2 WHERE id = $3 AND status = $4`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(keysDomain.KeyStatusRetired),
		retiredAt,
		keyID,
		string(keysDomain.KeyStatusActive),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to retire key")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to retire key")
	}
	if rows == 0 {
		return keysDomain.ErrStaleKeyState
	}
	return nil
}

func (p *PostgreSQLKeyStore) ensureNoActive(ctx context.Context) error {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id FROM encryption_keys WHERE status = $1 LIMIT 1 FOR UPDATE`

	var activeID string
	err := querier.QueryRowContext(ctx, query, string(keysDomain.KeyStatusActive)).Scan(&activeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(err, "failed to check active key")
	}
	return keysDomain.ErrStaleKeyState
}

// List returns every key with its material unwrapped.
func (p *PostgreSQLKeyStore) List(ctx context.Context) ([]*keysDomain.Key, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, algorithm, wrapped_material, status, scope, created_at, retired_at
			  FROM encryption_keys
			  ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanKeys(ctx, rows, p.wrapper)
}

// Delete removes a retired key. Active keys are never deleted.
func (p *PostgreSQLKeyStore) Delete(ctx context.Context, keyID string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM encryption_keys WHERE id = $1 AND status = $2`

	result, err := querier.ExecContext(ctx, query, keyID, string(keysDomain.KeyStatusRetired))
	if err != nil {
		return apperrors.Wrap(err, "failed to delete key")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to delete key")
	}
	if rows == 0 {
		return keysDomain.ErrKeyNotFound
	}
	return nil
}
