// Package ed25519 verifies EdDSA signatures over the raw message bytes.
package ed25519

import (
	"crypto/ed25519"
	"errors"
)

const (
	// PublicKeySize is the raw Ed25519 public key size.
	PublicKeySize = ed25519.PublicKeySize
	// SignatureSize is the raw Ed25519 signature size.
	SignatureSize = ed25519.SignatureSize
)

// Common error definitions
var (
	ErrInvalidPublicKey   = errors.New("invalid ed25519 public key size")
	ErrInvalidSignature   = errors.New("invalid ed25519 signature size")
	ErrVerificationFailed = errors.New("ed25519 signature verification failed")
)

// Provider implements signature verification using Ed25519.
type Provider struct{}

// NewProvider returns the Ed25519 verification provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the algorithm name.
func (p *Provider) Name() string {
	return "ed25519"
}

// Verify checks an Ed25519 signature. The message is signed directly; EdDSA
// hashes internally.
func (p *Provider) Verify(pub, message, sig []byte) error {
	if len(pub) != PublicKeySize {
		return ErrInvalidPublicKey
	}
	if len(sig) != SignatureSize {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), message, sig) {
		return ErrVerificationFailed
	}
	return nil
}
