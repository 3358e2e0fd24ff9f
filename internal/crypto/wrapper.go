// Package crypto resolves oracle public key material and verifies the raw
// 64-byte signatures carried by pricing records. Key material arrives either
// as a PEM "PUBLIC KEY" block (Ed25519 or ECDSA P-256) or as a 33-byte
// compressed secp256k1 point in hex; the parsed key selects the algorithm.
//
// Verification is stateless: every call builds its own digest and key
// objects, so keys and verifies are safe for concurrent use across
// goroutines. No verification state is ever shared or reused.
package crypto

import (
	"crypto/ecdsa"
	stded25519 "crypto/ed25519"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/aurumchain/go-aurum/internal/crypto/algorithms/ed25519"
	"github.com/aurumchain/go-aurum/internal/crypto/algorithms/nistp256"
	"github.com/aurumchain/go-aurum/internal/crypto/algorithms/secp256k1"
)

// Algorithm names a supported signature scheme.
type Algorithm string

const (
	// AlgorithmEd25519 verifies EdDSA over the raw message.
	AlgorithmEd25519 Algorithm = "ed25519"
	// AlgorithmNistP256 verifies ECDSA P-256 over the SHA-256 digest with
	// raw r||s signatures.
	AlgorithmNistP256 Algorithm = "nistp256"
	// AlgorithmSecp256k1 verifies secp256k1 ECDSA over the SHA-256 digest
	// with raw r||s signatures.
	AlgorithmSecp256k1 Algorithm = "secp256k1"
)

var (
	// ErrNoPublicKey is returned when verification is attempted with no key
	// material. Configuration loading rejects this long before validation
	// runs; hitting it here still yields an ordinary reject, never a panic.
	ErrNoPublicKey = errors.New("no oracle public key supplied")

	// ErrInvalidKeyMaterial is returned for key material that is neither a
	// PEM public key block nor a compressed secp256k1 point in hex.
	ErrInvalidKeyMaterial = errors.New("invalid oracle key material")

	// ErrUnsupportedKeyType is returned for parsable keys of a scheme this
	// package does not verify.
	ErrUnsupportedKeyType = errors.New("unsupported public key type")
)

// Provider verifies raw 64-byte signatures for one algorithm.
type Provider interface {
	Name() string
	Verify(pub, message, sig []byte) error
}

var providers = map[Algorithm]Provider{
	AlgorithmEd25519:   ed25519.NewProvider(),
	AlgorithmNistP256:  nistp256.NewProvider(),
	AlgorithmSecp256k1: secp256k1.NewProvider(),
}

// PublicKey is a parsed oracle public key bound to its algorithm.
type PublicKey struct {
	algorithm Algorithm
	raw       []byte
}

// Algorithm returns the signature scheme the key verifies under.
func (k *PublicKey) Algorithm() Algorithm {
	return k.algorithm
}

// Raw returns a copy of the raw key material: 32 bytes for Ed25519, 65-byte
// uncompressed point for P-256, 33-byte compressed point for secp256k1.
func (k *PublicKey) Raw() []byte {
	out := make([]byte, len(k.raw))
	copy(out, k.raw)
	return out
}

// Fingerprint returns the short key identifier used in logs and status
// output.
func (k *PublicKey) Fingerprint() string {
	return Fingerprint(k.raw)
}

// Verify checks sig over message under the key's algorithm. All failure
// detail collapses to an error; callers treat any non-nil result as an
// ordinary verification failure.
func (k *PublicKey) Verify(message, sig []byte) error {
	if k == nil || len(k.raw) == 0 {
		return ErrNoPublicKey
	}
	p, ok := providers[k.algorithm]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedKeyType, k.algorithm)
	}
	return p.Verify(k.raw, message, sig)
}

// secp256k1 compressed points are 33 bytes, 66 hex characters.
const secp256k1HexLen = 66

// ParsePublicKey resolves oracle key material into a usable key. PEM blocks
// must be PKIX "PUBLIC KEY" encodings of an Ed25519 or P-256 key; anything
// else must be a hex compressed secp256k1 point.
func ParsePublicKey(material string) (*PublicKey, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, ErrNoPublicKey
	}

	if strings.Contains(material, "-----BEGIN") {
		return parsePEM(material)
	}
	return parseSecpHex(material)
}

func parsePEM(material string) (*PublicKey, error) {
	block, _ := pem.Decode([]byte(material))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKeyMaterial)
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKeyMaterial, block.Type)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}

	switch pub := parsed.(type) {
	case stded25519.PublicKey:
		raw := make([]byte, len(pub))
		copy(raw, pub)
		return &PublicKey{algorithm: AlgorithmEd25519, raw: raw}, nil

	case *ecdsa.PublicKey:
		if pub.Curve != elliptic.P256() {
			return nil, fmt.Errorf("%w: ECDSA curve %s", ErrUnsupportedKeyType, pub.Curve.Params().Name)
		}
		raw := make([]byte, 1+2*nistp256.CoordinateSize)
		raw[0] = 0x04
		pub.X.FillBytes(raw[1 : 1+nistp256.CoordinateSize])
		pub.Y.FillBytes(raw[1+nistp256.CoordinateSize:])
		return &PublicKey{algorithm: AlgorithmNistP256, raw: raw}, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, parsed)
	}
}

func parseSecpHex(material string) (*PublicKey, error) {
	if len(material) != secp256k1HexLen {
		return nil, fmt.Errorf("%w: want PEM block or %d hex chars, got %d chars",
			ErrInvalidKeyMaterial, secp256k1HexLen, len(material))
	}
	raw, err := hex.DecodeString(material)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	// Reject material that does not decode to a point on the curve now, so
	// misconfiguration surfaces at load time rather than per-record.
	if err := secp256k1.ValidatePublicKey(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return &PublicKey{algorithm: AlgorithmSecp256k1, raw: raw}, nil
}
