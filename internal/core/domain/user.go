package domain

import "time"

// Role distinguishes the two account kinds. It is immutable once set:
// re-registering the same address with a different role is rejected.
type Role string

const (
	RoleCreator Role = "creator"
	RoleBrand   Role = "brand"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCreator || r == RoleBrand
}

// User is an identity keyed by wallet address. A brand user owns exactly
// one generated custodial escrow wallet, created atomically with the user.
type User struct {
	WalletAddress string
	Role          Role
	// EscrowAddress is the public key of the brand's custodial wallet.
	// Empty for creators.
	EscrowAddress string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EscrowWallet is a platform-generated custodial keypair bound 1:1 to a
// brand user. The secret key never leaves the ledger store and is never
// serialized into API responses.
type EscrowWallet struct {
	UserAddress string
	PublicKey   string
	SecretKey   string
	CreatedAt   time.Time
}

// SocialAccount links a wallet address to a verified social identity.
// A linked account is a precondition for applying to campaigns.
type SocialAccount struct {
	WalletAddress string
	Username      string
	AccountID     string
	ConnectedAt   time.Time
}
