package oracle

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aurumchain/go-aurum/internal/core/hardfork"
	"github.com/aurumchain/go-aurum/internal/core/protocol"
	"github.com/aurumchain/go-aurum/internal/crypto"
)

// Validation verdicts. Every reject is one of these; callers reject the
// containing block and never see a panic for adversarial input.
var (
	// ErrPreActivationRecord rejects a non-empty record in a block whose
	// fork version precedes conversion activation.
	ErrPreActivationRecord = errors.New("pricing record present before conversion activation")

	// ErrMissingRates rejects a non-empty record lacking either rate.
	ErrMissingRates = errors.New("pricing record is missing rates")

	// ErrSignatureInvalid rejects a record whose signature does not verify
	// against the network's oracle key. Key resolution failures and crypto
	// library failures collapse into this verdict; detail is logged only.
	ErrSignatureInvalid = errors.New("pricing record signature verification failed")

	// ErrTimestampFuture rejects a record timestamped too far past the
	// block time that carries it.
	ErrTimestampFuture = errors.New("pricing record timestamp exceeds block time allowance")

	// ErrTimestampStale rejects a record not strictly newer than the
	// previous block's timestamp.
	ErrTimestampStale = errors.New("pricing record timestamp not after previous block")
)

// KeySource resolves the oracle public key registered for a network.
type KeySource interface {
	OracleKey(network protocol.Network) (*crypto.PublicKey, error)
}

// StaticKeys is a fixed network-to-key mapping. It is the KeySource used by
// configuration and tests.
type StaticKeys map[protocol.Network]*crypto.PublicKey

// OracleKey returns the key registered for network.
func (s StaticKeys) OracleKey(network protocol.Network) (*crypto.PublicKey, error) {
	key, ok := s[network]
	if !ok || key == nil {
		return nil, fmt.Errorf("%w for %s", crypto.ErrNoPublicKey, network)
	}
	return key, nil
}

// VerifySignature checks the record's 64-byte signature over its canonical
// message under key. Stateless; safe for concurrent use.
func (r *PricingRecord) VerifySignature(key *crypto.PublicKey) error {
	return key.Verify(r.SignableMessage(), r.Signature[:])
}

// Validator decides pricing record acceptance for blocks. It is stateless
// between calls and safe for concurrent use across goroutines validating
// different blocks.
type Validator struct {
	keys KeySource
	log  zerolog.Logger
}

// NewValidator creates a Validator resolving oracle keys through keys.
func NewValidator(keys KeySource, log zerolog.Logger) *Validator {
	return &Validator{keys: keys, log: log}
}

// Validate decides whether rec is acceptable in a block on network governed
// by hardForkVersion, carried at blockTimestamp with the previous block at
// prevBlockTimestamp. The decision is a pure function of the inputs: no
// wall-clock reads, so every node reaches the same verdict.
//
// Checks short-circuit in a fixed order: structural gates, then the
// signature, then timestamp policy. The first failure is the verdict.
func (v *Validator) Validate(rec *PricingRecord, network protocol.Network, hardForkVersion, blockTimestamp, prevBlockTimestamp uint64) error {
	// Before conversion activates, blocks must carry no record at all.
	if hardForkVersion < hardfork.VersionConversion {
		if !rec.Empty() {
			return ErrPreActivationRecord
		}
		return nil
	}

	// An empty record means "no quote this block" and is always acceptable
	// once the feature is active.
	if rec.Empty() {
		return nil
	}

	if rec.HasMissingRates() {
		return ErrMissingRates
	}

	key, err := v.keys.OracleKey(network)
	if err != nil {
		v.log.Debug().Err(err).Stringer("network", network).Msg("oracle key unavailable")
		return ErrSignatureInvalid
	}
	if err := rec.VerifySignature(key); err != nil {
		v.log.Debug().
			Err(err).
			Stringer("network", network).
			Str("key", key.Fingerprint()).
			Uint64("record_timestamp", rec.Timestamp).
			Msg("pricing record signature rejected")
		return ErrSignatureInvalid
	}

	if rec.Timestamp > blockTimestamp+protocol.MaxRecordTimeSkew {
		return ErrTimestampFuture
	}
	if rec.Timestamp <= prevBlockTimestamp {
		return ErrTimestampStale
	}

	return nil
}

// Valid is the boolean form of Validate for callers that only need the
// verdict.
func (v *Validator) Valid(rec *PricingRecord, network protocol.Network, hardForkVersion, blockTimestamp, prevBlockTimestamp uint64) bool {
	return v.Validate(rec, network, hardForkVersion, blockTimestamp, prevBlockTimestamp) == nil
}
