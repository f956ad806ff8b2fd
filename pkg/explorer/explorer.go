package explorer

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the indexer does not know the requested
	// resource.
	ErrNotFound = errors.New("resource not found")
	// ErrUnavailable wraps transport failures and 5xx responses. Callers may
	// retry.
	ErrUnavailable = errors.New("explorer is unavailable")
	// ErrBadRequest wraps 4xx responses, like the rejection of a broadcast.
	ErrBadRequest = errors.New("explorer rejected the request")
)

// AccountDetails is the level of detail requested when fetching an account.
type AccountDetails string

const (
	DetailsBasic         AccountDetails = "basic"
	DetailsTokens        AccountDetails = "tokens"
	DetailsTokenBalances AccountDetails = "tokenBalances"
	DetailsTxids         AccountDetails = "txids"
	DetailsTxs           AccountDetails = "txs"
)

// TokensFilter selects which derived addresses/tokens are returned.
type TokensFilter string

const (
	TokensNonZero TokensFilter = "nonzero"
	TokensUsed    TokensFilter = "used"
	TokensDerived TokensFilter = "derived"
)

// AccountOpts are the query options of GetAccount.
type AccountOpts struct {
	Details  AccountDetails
	Tokens   TokensFilter
	Page     int
	PageSize int
}

// Service is the representation of a Syscoin indexer (blockbook) that allows
// to fetch accounts, assets and transactions and to broadcast transactions.
type Service interface {
	// GetAccount fetches balance, tokens and optionally transactions of an
	// xpub or a single address.
	GetAccount(ctx context.Context, xpubOrAddress string, opts AccountOpts) (*Account, error)
	// GetAsset fetches the public data of the SPT identified by guid.
	GetAsset(ctx context.Context, assetGuid string) (*Asset, error)
	// EstimateFee returns the fee rate, in SYS per kilobyte, for a tx to be
	// confirmed within the given number of blocks.
	EstimateFee(ctx context.Context, blocks int) (string, error)
	// GetTransaction fetches the tx identified by its hash.
	GetTransaction(ctx context.Context, txid string) (*Transaction, error)
	// GetRawTransaction fetches the tx identified by its hash in hex format.
	GetRawTransaction(ctx context.Context, txid string) (string, error)
	// GetConfirmations returns the number of confirmations of a tx. Zero
	// means the tx is still in mempool.
	GetConfirmations(ctx context.Context, txid string) (int, error)
	// GetUtxos returns the unspents of an xpub or a single address.
	GetUtxos(ctx context.Context, xpubOrAddress string, confirmedOnly bool) ([]Utxo, error)
	// BroadcastTransaction attempts to add the given tx in hex format to the
	// mempool and returns its tx hash.
	BroadcastTransaction(ctx context.Context, txhex string) (string, error)
	// GetBlockHeight returns the height of the best block known by the
	// indexer backend.
	GetBlockHeight(ctx context.Context) (int, error)
}
