package domain

import (
	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
)

// Stats is the read-only operational view of the key manager.
type Stats struct {
	Algorithm            cryptoDomain.Algorithm `json:"algorithm"`
	KeyLength            int                    `json:"key_length"`
	IVLength             int                    `json:"iv_length"`
	TagLength            int                    `json:"tag_length"`
	ActiveKeyCount       int                    `json:"active_key_count"`
	TotalKeyCount        int                    `json:"total_key_count"`
	CurrentKeyID         string                 `json:"current_key_id,omitempty"`
	RotationIntervalDays int                    `json:"rotation_interval_days"`
}
