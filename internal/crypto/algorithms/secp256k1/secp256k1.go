// Package secp256k1 verifies ECDSA signatures on the secp256k1 curve. Keys
// are 33-byte compressed points; signatures are the raw 64-byte r||s form
// over the SHA-256 digest of the message.
package secp256k1

import (
	"crypto/sha256"
	"errors"

	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	// PublicKeySize is the compressed point size.
	PublicKeySize = 33
	// SignatureSize is the raw r||s signature size.
	SignatureSize = 64
	// componentSize is the byte width of each signature component.
	componentSize = SignatureSize / 2
)

// Common error definitions
var (
	ErrInvalidPublicKey   = errors.New("invalid secp256k1 public key")
	ErrInvalidSignature   = errors.New("invalid secp256k1 signature")
	ErrVerificationFailed = errors.New("secp256k1 signature verification failed")
)

// Provider implements signature verification on secp256k1.
type Provider struct{}

// NewProvider returns the secp256k1 verification provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the algorithm name.
func (p *Provider) Name() string {
	return "secp256k1"
}

// ValidatePublicKey reports whether raw decodes to a point on the curve.
func ValidatePublicKey(raw []byte) error {
	if len(raw) != PublicKeySize {
		return ErrInvalidPublicKey
	}
	if _, err := secp.ParsePubKey(raw); err != nil {
		return ErrInvalidPublicKey
	}
	return nil
}

// Verify checks a raw r||s signature over SHA256(message).
func (p *Provider) Verify(pub, message, sig []byte) error {
	if len(pub) != PublicKeySize {
		return ErrInvalidPublicKey
	}
	if len(sig) != SignatureSize {
		return ErrInvalidSignature
	}

	pubKey, err := secp.ParsePubKey(pub)
	if err != nil {
		return ErrInvalidPublicKey
	}

	var r, s secp.ModNScalar
	if overflow := r.SetByteSlice(sig[:componentSize]); overflow {
		return ErrInvalidSignature
	}
	if overflow := s.SetByteSlice(sig[componentSize:]); overflow {
		return ErrInvalidSignature
	}

	digest := sha256.Sum256(message)
	if !secpecdsa.NewSignature(&r, &s).Verify(digest[:], pubKey) {
		return ErrVerificationFailed
	}
	return nil
}
