package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/decred/dcrd/crypto/ripemd160"
)

// FingerprintSize is the size of a key fingerprint in bytes.
const FingerprintSize = 20

// Fingerprint computes the short identifier for oracle key material as
// RIPEMD160(SHA256(key)), hex encoded. Two different hashes rule out length
// extension, and 160 bits keeps the identifier short enough for log lines
// and status output while remaining collision resistant.
//
// The entire raw key is hashed regardless of scheme, so fingerprints from
// different algorithms never collide by construction.
func Fingerprint(key []byte) string {
	sum := sha256.Sum256(key)

	h := ripemd160.New()
	h.Write(sum[:])
	return hex.EncodeToString(h.Sum(nil))
}
