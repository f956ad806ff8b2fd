package ports

import (
	"context"
	"crypto/ecdsa"

	"github.com/shopspring/decimal"
)

// Web3Client is the boundary with an EVM network.
type Web3Client interface {
	ChainID() int64
	// GetBalance returns the balance of the native coin in ether units.
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
	// SendNative transfers amount ether units to the given address and
	// returns the tx hash.
	SendNative(
		ctx context.Context, key *ecdsa.PrivateKey, to string,
		amount decimal.Decimal,
	) (string, error)
	// GetConfirmations returns the number of blocks on top of the one
	// including the tx, 0 if still pending.
	GetConfirmations(ctx context.Context, txHash string) (int, error)
	Close()
}
