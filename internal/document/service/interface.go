// Package service implements the document field walker and the sensitivity
// classifier.
package service

import (
	cryptoService "github.com/allisson/phiguard/internal/crypto/service"
)

// FieldCipher is the subset of the cipher engine the walker needs.
type FieldCipher interface {
	Encrypt(plaintext string, keyID string) (string, error)
	TryDecrypt(envelope string, keyIDHint string) cryptoService.DecryptResult
	Rewrap(envelope string, keyIDHint string) (cryptoService.RewrapResult, error)
}
