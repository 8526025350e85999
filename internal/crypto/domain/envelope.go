package domain

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/allisson/phiguard/internal/errors"
)

// envelopeSeparator cannot appear in standard base64 output or in an algorithm name.
const envelopeSeparator = ":"

// Envelope is the parsed form of a persisted ciphertext string:
//
//	algorithm:base64(iv):base64(ciphertext):base64(tag):keyId
//
// The format is stored alongside application data and must stay stable. KeyID is
// everything after the fourth separator, so ids may themselves contain ':'. An
// envelope with only four segments is a legacy envelope without a key id; it can
// only be resolved through a caller-supplied hint.
type Envelope struct {
	Algorithm  Algorithm
	IV         []byte
	Ciphertext []byte
	Tag        []byte
	KeyID      string
}

// ParseEnvelope decodes an envelope string. All failures wrap ErrInvalidEnvelope.
func ParseEnvelope(s string) (*Envelope, error) {
	parts := strings.SplitN(s, envelopeSeparator, 5)
	if len(parts) < 4 {
		return nil, errors.Wrap(ErrInvalidEnvelope, "wrong number of segments")
	}

	alg := Algorithm(parts[0])
	if !alg.Valid() {
		return nil, errors.Wrap(ErrInvalidEnvelope, "unknown algorithm")
	}

	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errors.Wrap(ErrInvalidEnvelope, "malformed iv")
	}
	if len(iv) != NonceLength {
		return nil, errors.Wrap(ErrInvalidEnvelope, "wrong iv length")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, errors.Wrap(ErrInvalidEnvelope, "malformed ciphertext")
	}

	tag, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, errors.Wrap(ErrInvalidEnvelope, "malformed tag")
	}
	if len(tag) != TagLength {
		return nil, errors.Wrap(ErrInvalidEnvelope, "wrong tag length")
	}

	env := &Envelope{
		Algorithm:  alg,
		IV:         iv,
		Ciphertext: ciphertext,
		Tag:        tag,
	}
	if len(parts) == 5 {
		env.KeyID = parts[4]
	}
	return env, nil
}

// String serializes the envelope.
func (e *Envelope) String() string {
	return fmt.Sprintf(
		"%s:%s:%s:%s:%s",
		e.Algorithm,
		base64.StdEncoding.EncodeToString(e.IV),
		base64.StdEncoding.EncodeToString(e.Ciphertext),
		base64.StdEncoding.EncodeToString(e.Tag),
		e.KeyID,
	)
}

// AAD returns the additional authenticated data binding the header to the ciphertext.
func (e *Envelope) AAD() []byte {
	return EnvelopeAAD(e.Algorithm, e.KeyID)
}

// Sealed returns ciphertext with the tag appended, the layout expected by cipher.AEAD.Open.
func (e *Envelope) Sealed() []byte {
	sealed := make([]byte, 0, len(e.Ciphertext)+len(e.Tag))
	sealed = append(sealed, e.Ciphertext...)
	return append(sealed, e.Tag...)
}

// EnvelopeAAD builds the AAD for an algorithm and key id pair.
func EnvelopeAAD(alg Algorithm, keyID string) []byte {
	return []byte(string(alg) + envelopeSeparator + keyID)
}
