package domain

// Algorithm represents the AEAD algorithm named in the first segment of an envelope.
//
// Both supported algorithms provide authenticated encryption, so a single pass yields
// confidentiality and tamper evidence. Select AESGCM on hardware with AES-NI and
// ChaCha20 elsewhere; the security level is equivalent.
type Algorithm string

const (
	// AESGCM represents AES-256-GCM.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents ChaCha20-Poly1305.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// Fixed cipher parameters shared by both algorithms.
const (
	// KeyLength is the size in bytes of every data key.
	KeyLength = 32

	// NonceLength is the size in bytes of the random IV generated per encryption.
	NonceLength = 12

	// TagLength is the size in bytes of the authentication tag.
	TagLength = 16
)

// Valid reports whether the algorithm is supported.
func (a Algorithm) Valid() bool {
	switch a {
	case AESGCM, ChaCha20:
		return true
	default:
		return false
	}
}

// ParseAlgorithm converts a configuration value into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	alg := Algorithm(s)
	if !alg.Valid() {
		return "", ErrUnsupportedAlgorithm
	}
	return alg, nil
}
