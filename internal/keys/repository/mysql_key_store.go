package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	cryptoService "github.com/allisson/phiguard/internal/crypto/service"
	"github.com/allisson/phiguard/internal/database"
	apperrors "github.com/allisson/phiguard/internal/errors"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

// MySQLKeyStore persists keys in MySQL.
//
// Database schema requirements:
//   - id: VARCHAR(64) PRIMARY KEY
//   - algorithm: VARCHAR(32)
//   - wrapped_material: BLOB (key material encrypted by the KMS keeper)
//   - status: VARCHAR(16) ('active' or 'retired')
//   - scope: VARCHAR(255)
//   - created_at: DATETIME(6)
//   - retired_at: DATETIME(6) (nullable)
//
// The DSN must set parseTime=true so DATETIME columns scan into time.Time.
// All methods honour a transaction carried in ctx via database.GetTx.
type MySQLKeyStore struct {
	db        *sql.DB
	txManager database.TxManager
	wrapper   cryptoService.KeyWrapper
}

// NewMySQLKeyStore creates a MySQLKeyStore.
func NewMySQLKeyStore(
	db *sql.DB,
	txManager database.TxManager,
	wrapper cryptoService.KeyWrapper,
) *MySQLKeyStore {
	return &MySQLKeyStore{db: db, txManager: txManager, wrapper: wrapper}
}

// Create wraps the key material and inserts the key.
func (m *MySQLKeyStore) Create(ctx context.Context, key *keysDomain.Key) error {
	wrapped, err := m.wrapper.Wrap(ctx, key.Material)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO encryption_keys (id, algorithm, wrapped_material, status, scope, created_at, retired_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

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
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return keysDomain.ErrKeyAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create key")
	}
	return nil
}

// Rotate marks retired and inserts next in one transaction. It returns
// ErrStaleKeyState when retired is no longer the active key, or when retired is
// nil but the store already has an active key.
func (m *MySQLKeyStore) Rotate(ctx context.Context, retired *keysDomain.Key, next *keysDomain.Key) error {
	return m.txManager.WithTx(ctx, func(ctx context.Context) error {
		if retired != nil {
			if err := m.retire(ctx, retired.ID, retired.RetiredAt); err != nil {
				return err
			}
		} else if err := m.ensureNoActive(ctx); err != nil {
			return err
		}
		return m.Create(ctx, next)
	})
}

func (m *MySQLKeyStore) retire(ctx context.Context, keyID string, retiredAt *time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE encryption_keys SET status = ?, retired_at = ? WHERE id = ? AND status = ?`

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

func (m *MySQLKeyStore) ensureNoActive(ctx context.Context) error {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id FROM encryption_keys WHERE status = ? LIMIT 1 FOR UPDATE`

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
func (m *MySQLKeyStore) List(ctx context.Context) ([]*keysDomain.Key, error) {
	querier := database.GetTx(ctx, m.db)

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

	return scanKeys(ctx, rows, m.wrapper)
}

// Delete removes a retired key. Active keys are never deleted.
func (m *MySQLKeyStore) Delete(ctx context.Context, keyID string) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM encryption_keys WHERE id = ? AND status = ?`

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
