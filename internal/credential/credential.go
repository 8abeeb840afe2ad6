// Package credential implements device identity issuance and secret
// verification.
//
// A device secret is issued exactly once at registration; only its
// SHA-256 hash is persisted. Verification recomputes the hash of the
// presented secret and compares it in constant time. Unknown device and
// wrong secret are indistinguishable to callers so probing for device
// ids leaks nothing.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// secretBytes is the entropy of an issued device secret.
	secretBytes = 24

	// serialBytes is the entropy behind the short claim serial.
	serialBytes = 4

	// deviceIDPrefix marks appliance-generated identities.
	deviceIDPrefix = "pi-"
)

// Issued is the one-time result of issuing a device identity. RawSecret
// is returned to the caller exactly once and never stored.
type Issued struct {
	DeviceID  string
	Serial    string
	RawSecret string
	KeyHash   string
}

// Issue generates a new device identity: a UUID-based device id, a short
// uppercase claim serial, and a high-entropy secret.
func Issue() (Issued, error) {
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return Issued{}, fmt.Errorf("generate secret: %w", err)
	}

	serial := make([]byte, serialBytes)
	if _, err := rand.Read(serial); err != nil {
		return Issued{}, fmt.Errorf("generate serial: %w", err)
	}

	raw := base64.RawURLEncoding.EncodeToString(secret)
	return Issued{
		DeviceID:  deviceIDPrefix + uuid.NewString(),
		Serial:    "NR-" + strings.ToUpper(hex.EncodeToString(serial)),
		RawSecret: raw,
		KeyHash:   Hash(raw),
	}, nil
}

// Hash returns the hex SHA-256 of a secret. This is the only form in
// which credential material is persisted.
func Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// HashStore looks up the stored credential hash for a device id.
// Implemented by the store; returns ("", nil) for unknown devices.
type HashStore interface {
	DeviceKeyHash(ctx context.Context, deviceID string) (string, error)
}

// Verifier checks presented device credentials against stored hashes.
type Verifier struct {
	hashes HashStore
}

// NewVerifier creates a Verifier backed by the given hash store.
func NewVerifier(hashes HashStore) *Verifier {
	return &Verifier{hashes: hashes}
}

// Verify reports whether the presented secret matches the stored hash
// for deviceID. It returns false (never an error the caller can
// distinguish) for unknown devices, so existence cannot be probed.
// Verification has no side effects; liveness is the caller's concern.
func (v *Verifier) Verify(ctx context.Context, deviceID, presented string) (bool, error) {
	if deviceID == "" || presented == "" {
		return false, nil
	}

	stored, err := v.hashes.DeviceKeyHash(ctx, deviceID)
	if err != nil {
		return false, err
	}
	if stored == "" {
		// Burn a hash anyway so unknown ids cost the same as mismatches.
		_ = Hash(presented)
		return false, nil
	}

	computed := Hash(presented)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1, nil
}
