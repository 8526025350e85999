package repository

import (
	"context"
	"database/sql"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	cryptoService "github.com/allisson/phiguard/internal/crypto/service"
	apperrors "github.com/allisson/phiguard/internal/errors"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

// scanKeys reads key rows in the column order
// id, algorithm, wrapped_material, status, scope, created_at, retired_at.
func scanKeys(ctx context.Context, rows *sql.Rows, wrapper cryptoService.KeyWrapper) ([]*keysDomain.Key, error) {
	var keys []*keysDomain.Key
	for rows.Next() {
		var (
			key       keysDomain.Key
			algorithm string
			status    string
			wrapped   []byte
			retiredAt sql.NullTime
		)
		if err := rows.Scan(
			&key.ID,
			&algorithm,
			&wrapped,
			&status,
			&key.Scope,
			&key.CreatedAt,
			&retiredAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key")
		}

		material, err := wrapper.Unwrap(ctx, wrapped)
		if err != nil {
			for _, k := range keys {
				k.Zero()
			}
			return nil, err
		}

		key.Algorithm = cryptoDomain.Algorithm(algorithm)
		key.Status = keysDomain.KeyStatus(status)
		key.Material = material
		key.CreatedAt = key.CreatedAt.UTC()
		if retiredAt.Valid {
			t := retiredAt.Time.UTC()
			key.RetiredAt = &t
		}
		keys = append(keys, &key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate keys")
	}
	return keys, nil
}
