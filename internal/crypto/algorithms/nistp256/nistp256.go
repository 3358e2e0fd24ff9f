// Package nistp256 verifies ECDSA signatures on the NIST P-256 curve. Keys
// are 65-byte uncompressed points; signatures are the raw 64-byte r||s form
// over the SHA-256 digest of the message.
package nistp256

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"errors"
	"math/big"
)

const (
	// CoordinateSize is the byte width of a P-256 field element.
	CoordinateSize = 32
	// PublicKeySize is the uncompressed point size: 0x04 || X || Y.
	PublicKeySize = 1 + 2*CoordinateSize
	// SignatureSize is the raw r||s signature size.
	SignatureSize = 64
)

// Common error definitions
var (
	ErrInvalidPublicKey   = errors.New("invalid p256 public key")
	ErrInvalidSignature   = errors.New("invalid p256 signature size")
	ErrVerificationFailed = errors.New("p256 signature verification failed")
)

// Provider implements signature verification on P-256.
type Provider struct{}

// NewProvider returns the P-256 verification provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the algorithm name.
func (p *Provider) Name() string {
	return "nistp256"
}

// Verify checks a raw r||s signature over SHA256(message).
func (p *Provider) Verify(pub, message, sig []byte) error {
	if len(pub) != PublicKeySize || pub[0] != 0x04 {
		return ErrInvalidPublicKey
	}
	if len(sig) != SignatureSize {
		return ErrInvalidSignature
	}

	curve := elliptic.P256()
	x := new(big.Int).SetBytes(pub[1 : 1+CoordinateSize])
	y := new(big.Int).SetBytes(pub[1+CoordinateSize:])
	if !curve.IsOnCurve(x, y) {
		return ErrInvalidPublicKey
	}

	key := ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	r := new(big.Int).SetBytes(sig[:CoordinateSize])
	s := new(big.Int).SetBytes(sig[CoordinateSize:])

	digest := sha256.Sum256(message)
	if !ecdsa.Verify(&key, digest[:], r, s) {
		return ErrVerificationFailed
	}
	return nil
}
