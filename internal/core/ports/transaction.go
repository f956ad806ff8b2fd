package ports

import (
	"context"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/pali-wallet/palid/pkg/explorer"
)

// ExplorerProvider returns the indexer client of a Syscoin network.
type ExplorerProvider interface {
	Explorer(network string) (explorer.Service, error)
}

// BuildOpts are the params shared by all kinds of txs.
type BuildOpts struct {
	Network string
	// Xpub is the extended public key of the account funding the tx.
	Xpub string
	// ChangeAddress receives SYS change and, for asset txs, the owner output.
	ChangeAddress string
	// FeeRate is expressed in sats per vbyte. Zero means estimate.
	FeeRate uint64
	RBF     bool
}

// SendOpts defines the params for sending SYS or an SPT.
type SendOpts struct {
	BuildOpts
	To     string
	Amount uint64
	// AssetGuid is set for SPT transfers.
	AssetGuid string
}

// AssetNewOpts defines the params for activating a new SPT.
type AssetNewOpts struct {
	BuildOpts
	Symbol          string
	Description     string
	Precision       uint8
	MaxSupply       uint64
	CapabilityFlags uint8
	Contract        string
	NotaryAddress   string
	PayoutAddress   string
}

// AssetSendOpts defines the params for issuing supply of an owned SPT.
type AssetSendOpts struct {
	BuildOpts
	AssetGuid string
	Precision uint8
	To        string
	Amount    uint64
}

// AssetUpdateOpts defines the params for updating an owned SPT. Nil or
// empty fields are not updated. NewOwner moves the ownership.
type AssetUpdateOpts struct {
	BuildOpts
	AssetGuid       string
	Precision       uint8
	Contract        string
	Description     string
	CapabilityFlags *uint8
	NotaryAddress   string
	PayoutAddress   string
	NewOwner        string
}

// UnsignedTx is a tx ready to be signed, along with the info to track it.
type UnsignedTx struct {
	Packet *psbt.Packet
	// Paths are the full derivation paths of the inputs, by index.
	Paths []string
	Fee   uint64
	// Value is the amount moved by the tx, in sats or asset units.
	Value uint64
	// AssetGuid is the guid of the asset activated or moved by the tx.
	AssetGuid string
}

// TxBuilder creates unsigned Syscoin txs funded by the utxos of an xpub.
type TxBuilder interface {
	BuildSend(ctx context.Context, opts SendOpts) (*UnsignedTx, error)
	BuildAssetNew(ctx context.Context, opts AssetNewOpts) (*UnsignedTx, error)
	BuildAssetSend(ctx context.Context, opts AssetSendOpts) (*UnsignedTx, error)
	BuildAssetUpdate(ctx context.Context, opts AssetUpdateOpts) (*UnsignedTx, error)
	// OwnedAssets returns the guids of the assets whose owner output is held
	// by the xpub.
	OwnedAssets(ctx context.Context, network, xpub string) ([]string, error)
}
