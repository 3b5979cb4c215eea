// Package wallet generates custodial keypairs for brand escrow wallets.
// Keys are ed25519, addresses and secrets are base58-encoded, matching
// the address format of the settlement chain.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"time"

	"github.com/btcsuite/btcutil/base58"

	"reachpay/internal/core/domain"
)

// Generate creates a fresh custodial keypair for the given user. The
// secret key stays inside the ledger store; only the public key is ever
// shown as the escrow address.
func Generate(userAddress string) (*domain.EscrowWallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &domain.EscrowWallet{
		UserAddress: userAddress,
		PublicKey:   base58.Encode(pub),
		SecretKey:   base58.Encode(priv),
		CreatedAt:   time.Now().UTC(),
	}, nil
}
