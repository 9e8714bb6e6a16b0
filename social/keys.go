package social

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	minSecretLength = 16
	keySize         = 32

	hkdfSalt = "go-restaurant-auth/social"
)

// Keys is the key pair used by EncryptedStateManager.
type Keys struct {
	Encryption []byte
	HMAC       []byte
}

// DeriveKeys expands a single configured secret into independent
// encryption and signing keys.
func DeriveKeys(secret []byte) (Keys, error) {
	if len(secret) < minSecretLength {
		return Keys{}, fmt.Errorf("%w: secret must be at least %d bytes", ErrInvalidSecret, minSecretLength)
	}

	enc, err := expand(secret, "state-encryption")
	if err != nil {
		return Keys{}, err
	}
	mac, err := expand(secret, "state-hmac")
	if err != nil {
		return Keys{}, err
	}
	return Keys{Encryption: enc, HMAC: mac}, nil
}

func expand(secret []byte, info string) ([]byte, error) {
	out := make([]byte, keySize)
	r := hkdf.New(sha256.New, secret, []byte(hkdfSalt), []byte(info))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return out, nil
}
