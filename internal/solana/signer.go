package solana

import (
	"crypto/ed25519"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Signer signs transaction messages on behalf of one account.
type Signer interface {
	// PublicKey returns the base58-encoded public key of the signing account.
	PublicKey() string

	// Sign signs the serialized message and returns the 64-byte signature.
	Sign(message []byte) []byte
}

// KeypairSigner signs with an in-memory ed25519 keypair.
type KeypairSigner struct {
	priv   ed25519.PrivateKey
	pubkey string
}

// NewKeypairSigner builds a signer from a base58-encoded 64-byte secret key
// (32-byte seed followed by 32-byte public key, the standard keypair layout).
func NewKeypairSigner(secretBase58 string) (*KeypairSigner, error) {
	raw, err := base58.Decode(secretBase58)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)

	return &KeypairSigner{
		priv:   priv,
		pubkey: base58.Encode(pub),
	}, nil
}

var _ Signer = (*KeypairSigner)(nil)

// PublicKey returns the base58-encoded public key.
func (s *KeypairSigner) PublicKey() string {
	return s.pubkey
}

// Sign signs the serialized message.
func (s *KeypairSigner) Sign(message []byte) []byte {
	return ed25519.Sign(s.priv, message)
}

// ValidPublicKey reports whether addr is a well-formed base58 public key:
// 32 bytes that decode to a point on the ed25519 curve. Used to reject
// malformed recipient wallets before any lamports move toward them.
func ValidPublicKey(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
