package oracle

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/crypto"
)

// SigningKey couples a freshly generated oracle keypair with a signer
// producing the raw 64-byte signatures records carry. Material is the key in
// the form configuration files accept, Public the parsed verification key.
type SigningKey struct {
	Material string
	Public   *crypto.PublicKey

	sign func(message []byte) [oracle.SignatureSize]byte
}

// Sign signs message with the private half of the keypair.
func (k *SigningKey) Sign(message []byte) [oracle.SignatureSize]byte {
	return k.sign(message)
}

// Algorithm returns the key's signature scheme.
func (k *SigningKey) Algorithm() crypto.Algorithm {
	return k.Public.Algorithm()
}

// NewEd25519Key generates an Ed25519 oracle keypair.
func NewEd25519Key(t *testing.T) *SigningKey {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	material := pemPublicKey(t, pub)
	parsed, err := crypto.ParsePublicKey(material)
	require.NoError(t, err)

	return &SigningKey{
		Material: material,
		Public:   parsed,
		sign: func(message []byte) [oracle.SignatureSize]byte {
			var sig [oracle.SignatureSize]byte
			copy(sig[:], ed25519.Sign(priv, message))
			return sig
		},
	}
}

// NewNistP256Key generates an ECDSA P-256 oracle keypair. Signatures are the
// raw r||s concatenation, each component left-padded to 32 bytes.
func NewNistP256Key(t *testing.T) *SigningKey {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	material := pemPublicKey(t, &priv.PublicKey)
	parsed, err := crypto.ParsePublicKey(material)
	require.NoError(t, err)

	return &SigningKey{
		Material: material,
		Public:   parsed,
		sign: func(message []byte) [oracle.SignatureSize]byte {
			digest := sha256.Sum256(message)
			r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
			require.NoError(t, err)
			var sig [oracle.SignatureSize]byte
			r.FillBytes(sig[:oracle.SignatureSize/2])
			s.FillBytes(sig[oracle.SignatureSize/2:])
			return sig
		},
	}
}

// NewSecp256k1Key generates a secp256k1 oracle keypair. Material is the
// compressed point in hex, the form configuration carries for this scheme.
func NewSecp256k1Key(t *testing.T) *SigningKey {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	material := hex.EncodeToString(priv.PubKey().SerializeCompressed())
	parsed, err := crypto.ParsePublicKey(material)
	require.NoError(t, err)

	return &SigningKey{
		Material: material,
		Public:   parsed,
		sign: func(message []byte) [oracle.SignatureSize]byte {
			digest := sha256.Sum256(message)
			ecSig := btcecdsa.Sign(priv, digest[:])
			r, s := ecSig.R(), ecSig.S()
			rb, sb := r.Bytes(), s.Bytes()
			var sig [oracle.SignatureSize]byte
			copy(sig[:oracle.SignatureSize/2], rb[:])
			copy(sig[oracle.SignatureSize/2:], sb[:])
			return sig
		},
	}
}

// AllKeys generates one key per supported algorithm, for table-driven tests
// that must hold across every scheme.
func AllKeys(t *testing.T) []*SigningKey {
	t.Helper()
	return []*SigningKey{
		NewEd25519Key(t),
		NewNistP256Key(t),
		NewSecp256k1Key(t),
	}
}

func pemPublicKey(t *testing.T, pub any) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}
