package repository

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	"github.com/allisson/phiguard/internal/database"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
	"github.com/allisson/phiguard/internal/keys/usecase"
)

var wrapPrefix = []byte("wrapped:")

// prefixWrapper marks material as wrapped without real cryptography.
type prefixWrapper struct {
	failUnwrap bool
}

func (w *prefixWrapper) Wrap(ctx context.Context, material []byte) ([]byte, error) {
	return append(append([]byte(nil), wrapPrefix...), material...), nil
}

func (w *prefixWrapper) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	if w.failUnwrap || !bytes.HasPrefix(wrapped, wrapPrefix) {
		return nil, cryptoDomain.ErrConfiguration
	}
	return append([]byte(nil), wrapped[len(wrapPrefix):]...), nil
}

type sqlStoreCase struct {
	name         string
	newStore     func(db *sql.DB, wrapper *prefixWrapper) usecase.KeyStore
	duplicateErr error
}

func sqlStoreCases() []sqlStoreCase {
	return []sqlStoreCase{
		{
			name: "PostgreSQL",
			newStore: func(db *sql.DB, wrapper *prefixWrapper) usecase.KeyStore {
				return NewPostgreSQLKeyStore(db, database.NewTxManager(db), wrapper)
			},
			duplicateErr: &pq.Error{Code: "23505"},
		},
		{
			name: "MySQL",
			newStore: func(db *sql.DB, wrapper *prefixWrapper) usecase.KeyStore {
				return NewMySQLKeyStore(db, database.NewTxManager(db), wrapper)
			},
			duplicateErr: &mysql.MySQLError{Number: 1062},
		},
	}
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var keyColumns = []string{"id", "algorithm", "wrapped_material", "status", "scope", "created_at", "retired_at"}

func TestSQLKeyStore_Create(t *testing.T) {
	for _, tc := range sqlStoreCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("Success_WrapsMaterial", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})
				key := newTestKey("k1", keysDomain.KeyStatusActive)

				mock.ExpectExec("INSERT INTO encryption_keys").
					WithArgs("k1", "aes-gcm", append(append([]byte(nil), wrapPrefix...), key.Material...),
						"active", "", key.CreatedAt, nil).
					WillReturnResult(sqlmock.NewResult(1, 1))

				require.NoError(t, store.Create(ctx, key))
				assert.NoError(t, mock.ExpectationsWereMet())
			})

			t.Run("Error_Duplicate", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})

				mock.ExpectExec("INSERT INTO encryption_keys").WillReturnError(tc.duplicateErr)

				err := store.Create(ctx, newTestKey("k1", keysDomain.KeyStatusActive))
				assert.ErrorIs(t, err, keysDomain.ErrKeyAlreadyExists)
			})

			t.Run("Error_Database", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})

				mock.ExpectExec("INSERT INTO encryption_keys").WillReturnError(errors.New("connection reset"))

				err := store.Create(ctx, newTestKey("k1", keysDomain.KeyStatusActive))
				assert.ErrorContains(t, err, "failed to create key")
			})
		})
	}
}

func TestSQLKeyStore_Rotate(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, tc := range sqlStoreCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("Success_SingleTransaction", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})
				retired := newTestKey("k1", keysDomain.KeyStatusActive).Retire(now)

				mock.ExpectBegin()
				mock.ExpectExec("UPDATE encryption_keys SET status").
					WithArgs("retired", sqlmock.AnyArg(), "k1", "active").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO encryption_keys").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()

				require.NoError(t, store.Rotate(ctx, retired, newTestKey("k2", keysDomain.KeyStatusActive)))
				assert.NoError(t, mock.ExpectationsWereMet())
			})

			t.Run("Success_NoPreviousKey", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})

				mock.ExpectBegin()
				mock.ExpectQuery("SELECT id FROM encryption_keys WHERE status").
					WithArgs("active").
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
				mock.ExpectExec("INSERT INTO encryption_keys").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()

				require.NoError(t, store.Rotate(ctx, nil, newTestKey("k1", keysDomain.KeyStatusActive)))
				assert.NoError(t, mock.ExpectationsWereMet())
			})

			t.Run("Error_NoPreviousKey_StoreHasActive", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})

				mock.ExpectBegin()
				mock.ExpectQuery("SELECT id FROM encryption_keys WHERE status").
					WithArgs("active").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("k0"))
				mock.ExpectRollback()

				err := store.Rotate(ctx, nil, newTestKey("k1", keysDomain.KeyStatusActive))
				assert.ErrorIs(t, err, keysDomain.ErrStaleKeyState)
				assert.NoError(t, mock.ExpectationsWereMet())
			})

			t.Run("Error_InsertFails_RollsBack", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})
				retired := newTestKey("k1", keysDomain.KeyStatusActive).Retire(now)

				mock.ExpectBegin()
				mock.ExpectExec("UPDATE encryption_keys SET status").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO encryption_keys").WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()

				err := store.Rotate(ctx, retired, newTestKey("k2", keysDomain.KeyStatusActive))
				assert.Error(t, err)
				assert.NoError(t, mock.ExpectationsWereMet())
			})

			t.Run("Error_RetiredKeyNoLongerActive", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})
				retired := newTestKey("k1", keysDomain.KeyStatusActive).Retire(now)

				mock.ExpectBegin()
				mock.ExpectExec("UPDATE encryption_keys SET status").
					WithArgs("retired", sqlmock.AnyArg(), "k1", "active").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()

				err := store.Rotate(ctx, retired, newTestKey("k2", keysDomain.KeyStatusActive))
				assert.ErrorIs(t, err, keysDomain.ErrStaleKeyState)
				assert.NoError(t, mock.ExpectationsWereMet())
			})
		})
	}
}

func TestSQLKeyStore_List(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	retiredAt := created.Add(time.Hour)
	material := bytes.Repeat([]byte{9}, cryptoDomain.KeyLength)
	wrapped := append(append([]byte(nil), wrapPrefix...), material...)

	for _, tc := range sqlStoreCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("Success_UnwrapsMaterial", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})

				rows := sqlmock.NewRows(keyColumns).
					AddRow("k1", "aes-gcm", wrapped, "retired", "", created, retiredAt).
					AddRow("k2", "chacha20-poly1305", wrapped, "active", "tenant-a", created.Add(time.Hour), nil)
				mock.ExpectQuery("SELECT (.+) FROM encryption_keys").WillReturnRows(rows)

				keys, err := store.List(ctx)
				require.NoError(t, err)
				require.Len(t, keys, 2)

				assert.Equal(t, "k1", keys[0].ID)
				assert.Equal(t, material, keys[0].Material)
				assert.Equal(t, keysDomain.KeyStatusRetired, keys[0].Status)
				require.NotNil(t, keys[0].RetiredAt)
				assert.Equal(t, retiredAt, *keys[0].RetiredAt)

				assert.Equal(t, cryptoDomain.ChaCha20, keys[1].Algorithm)
				assert.Equal(t, "tenant-a", keys[1].Scope)
				assert.Nil(t, keys[1].RetiredAt)
			})

			t.Run("Error_UnwrapFails", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{failUnwrap: true})

				rows := sqlmock.NewRows(keyColumns).
					AddRow("k1", "aes-gcm", wrapped, "active", "", created, nil)
				mock.ExpectQuery("SELECT (.+) FROM encryption_keys").WillReturnRows(rows)

				keys, err := store.List(ctx)
				assert.Nil(t, keys)
				assert.ErrorIs(t, err, cryptoDomain.ErrConfiguration)
			})

			t.Run("Error_Query", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})

				mock.ExpectQuery("SELECT (.+) FROM encryption_keys").WillReturnError(errors.New("timeout"))

				_, err := store.List(ctx)
				assert.ErrorContains(t, err, "failed to list keys")
			})
		})
	}
}

func TestSQLKeyStore_Delete(t *testing.T) {
	for _, tc := range sqlStoreCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("Success", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})

				mock.ExpectExec("DELETE FROM encryption_keys").
					WithArgs("k1", "retired").
					WillReturnResult(sqlmock.NewResult(0, 1))

				require.NoError(t, store.Delete(ctx, "k1"))
				assert.NoError(t, mock.ExpectationsWereMet())
			})

			t.Run("Error_NotFoundOrActive", func(t *testing.T) {
				db, mock := newMockDB(t)
				store := tc.newStore(db, &prefixWrapper{})

				mock.ExpectExec("DELETE FROM encryption_keys").WillReturnResult(sqlmock.NewResult(0, 0))

				assert.ErrorIs(t, store.Delete(ctx, "k1"), keysDomain.ErrKeyNotFound)
			})
		})
	}
}
