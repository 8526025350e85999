package service

import (
	"fmt"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	"github.com/allisson/phiguard/internal/errors"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

// DecryptResult is the outcome of decrypting one envelope. Exactly one of
// Plaintext or Err is meaningful.
type DecryptResult struct {
	Plaintext string
	KeyID     string
	Err       error
}

// OK reports whether decryption succeeded.
func (r DecryptResult) OK() bool {
	return r.Err == nil
}

// RewrapResult is the outcome of re-encrypting one envelope under the current key.
type RewrapResult struct {
	Envelope string
	KeyID    string
	Changed  bool
}

// CipherEngine encrypts and decrypts single string payloads into self-describing
// envelopes.
//
// Every envelope embeds the id of the key that produced it, so decryption resolves
// that key and never assumes the current one. The header (algorithm and key id)
// is authenticated as AAD; swapping the key id segment is detected as tampering.
type CipherEngine struct {
	aeadManager AEADManager
	keys        KeyResolver
}

// NewCipherEngine creates a CipherEngine.
func NewCipherEngine(aeadManager AEADManager, keys KeyResolver) *CipherEngine {
	return &CipherEngine{
		aeadManager: aeadManager,
		keys:        keys,
	}
}

// Encrypt seals plaintext under keyID, or under the current key when keyID is empty.
//
// All failures wrap ErrEncryption. There is no plaintext fallback: callers must
// abort the write.
func (e *CipherEngine) Encrypt(plaintext string, keyID string) (string, error) {
	if keyID == "" {
		currentID, ok := e.keys.GetCurrentKeyID()
		if !ok {
			return "", fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, keysDomain.ErrNoActiveKey)
		}
		keyID = currentID
	}

	key, err := e.keys.ResolveKey(keyID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}
	if !key.IsActive() {
		return "", errors.Wrap(cryptoDomain.ErrEncryption, "key is retired")
	}

	aead, err := e.aeadManager.CreateCipher(key.Material, key.Algorithm)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}

	sealed, nonce, err := aead.Encrypt([]byte(plaintext), cryptoDomain.EnvelopeAAD(key.Algorithm, key.ID))
	if err != nil {
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}
	if len(sealed) < cryptoDomain.TagLength {
		return "", errors.Wrap(cryptoDomain.ErrEncryption, "sealed output shorter than tag")
	}

	split := len(sealed) - cryptoDomain.TagLength
	env := &cryptoDomain.Envelope{
		Algorithm:  key.Algorithm,
		IV:         nonce,
		Ciphertext: sealed[:split],
		Tag:        sealed[split:],
		KeyID:      key.ID,
	}
	return env.String(), nil
}

// Decrypt opens an envelope.
//
// The key id embedded in the envelope always wins; keyIDHint is only consulted for
// legacy envelopes that carry no key id, and those are authenticated without AAD.
// Every failure wraps ErrDecryption so callers can tell corrupted or tampered
// data apart from system faults.
func (e *CipherEngine) Decrypt(envelope string, keyIDHint string) (string, error) {
	env, err := cryptoDomain.ParseEnvelope(envelope)
	if err != nil {
		return "", err
	}
	return e.open(env, keyIDHint)
}

// TryDecrypt is Decrypt returning an explicit result value instead of an error.
func (e *CipherEngine) TryDecrypt(envelope string, keyIDHint string) DecryptResult {
	env, err := cryptoDomain.ParseEnvelope(envelope)
	if err != nil {
		return DecryptResult{Err: err}
	}
	plaintext, err := e.open(env, keyIDHint)
	if err != nil {
		return DecryptResult{Err: err}
	}
	return DecryptResult{Plaintext: plaintext, KeyID: resolveKeyID(env, keyIDHint)}
}

// Rewrap re-encrypts an envelope under the current key. Envelopes already under
// the current key are returned unchanged. Decrypt failures wrap ErrDecryption and
// encrypt failures wrap ErrEncryption.
func (e *CipherEngine) Rewrap(envelope string, keyIDHint string) (RewrapResult, error) {
	currentID, ok := e.keys.GetCurrentKeyID()
	if !ok {
		return RewrapResult{}, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, keysDomain.ErrNoActiveKey)
	}

	env, err := cryptoDomain.ParseEnvelope(envelope)
	if err != nil {
		return RewrapResult{}, err
	}
	if env.KeyID == currentID {
		return RewrapResult{Envelope: envelope, KeyID: currentID}, nil
	}

	plaintext, err := e.open(env, keyIDHint)
	if err != nil {
		return RewrapResult{}, err
	}

	rewrapped, err := e.Encrypt(plaintext, currentID)
	if err != nil {
		return RewrapResult{}, err
	}
	return RewrapResult{Envelope: rewrapped, KeyID: currentID, Changed: true}, nil
}

func (e *CipherEngine) open(env *cryptoDomain.Envelope, keyIDHint string) (string, error) {
	keyID := resolveKeyID(env, keyIDHint)
	if keyID == "" {
		return "", cryptoDomain.ErrMissingKeyID
	}

	key, err := e.keys.ResolveKey(keyID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrDecryption, err)
	}
	if key.Algorithm != env.Algorithm {
		return "", errors.Wrap(cryptoDomain.ErrDecryption, "algorithm mismatch")
	}

	aead, err := e.aeadManager.CreateCipher(key.Material, key.Algorithm)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrDecryption, err)
	}

	var aad []byte
	if env.KeyID != "" {
		aad = env.AAD()
	}

	plaintext, err := aead.Decrypt(env.Sealed(), env.IV, aad)
	if err != nil {
		return "", errors.Wrap(cryptoDomain.ErrDecryption, "authentication failed")
	}
	return string(plaintext), nil
}

func resolveKeyID(env *cryptoDomain.Envelope, hint string) string {
	if env.KeyID != "" {
		return env.KeyID
	}
	return hint
}
