package domain

import (
	"strconv"

	"github.com/pali-wallet/palid/pkg/sptx"
	"github.com/shopspring/decimal"
)

// Token is the metadata of an SPT.
type Token struct {
	AssetGuid             string
	Symbol                string
	Description           string
	Decimals              int
	MaxSupply             uint64
	TotalSupply           uint64
	UpdateCapabilityFlags uint8
	Contract              string
	IsNFT                 bool
}

// IsNFTAsset returns whether the asset is an NFT, either a child of a base
// asset or an asset whose max supply is exactly one unit.
func IsNFTAsset(assetGuid string, decimals int, maxSupply uint64) bool {
	guid, err := strconv.ParseUint(assetGuid, 10, 64)
	if err == nil && uint64(sptx.BaseAssetGuid(guid)) != guid {
		return true
	}
	if decimals < 0 || decimals > sptx.MaxPrecision {
		return false
	}
	return maxSupply > 0 && decimal.NewFromInt(int64(maxSupply)).Equal(
		decimal.New(1, int32(decimals)),
	)
}

// TokenBalance is the balance of an SPT held by an account, as reported by
// the indexer.
type TokenBalance struct {
	AssetGuid string
	Symbol    string
	Balance   uint64
	Decimals  int
}

// Holding is an SPT balance of an account with its metadata resolved.
type Holding struct {
	AssetGuid   string
	Symbol      string
	Description string
	Balance     uint64
	Decimals    int
	IsNFT       bool
}

// WalletTokens caches the SPT metadata and the holdings of an account for
// a network.
type WalletTokens struct {
	AccountID   int
	Network     string
	AccountXpub string
	Tokens      map[string]Token
	Holdings    []Holding
}

// NewWalletTokens returns an empty token cache.
func NewWalletTokens(accountID int, network, xpub string) *WalletTokens {
	return &WalletTokens{
		AccountID:   accountID,
		Network:     network,
		AccountXpub: xpub,
		Tokens:      map[string]Token{},
		Holdings:    make([]Holding, 0),
	}
}

// Missing returns the guids of the given balances whose metadata is not yet
// known.
func (w *WalletTokens) Missing(remote []TokenBalance) []string {
	missing := make([]string, 0)
	seen := map[string]struct{}{}
	for _, b := range remote {
		if _, ok := w.Tokens[b.AssetGuid]; ok {
			continue
		}
		if _, ok := seen[b.AssetGuid]; ok {
			continue
		}
		seen[b.AssetGuid] = struct{}{}
		missing = append(missing, b.AssetGuid)
	}
	return missing
}

// Apply adds the fetched metadata and rebuilds the holdings from the given
// balances. Applying the same balances twice leaves the cache unchanged.
// It returns whether anything changed.
func (w *WalletTokens) Apply(remote []TokenBalance, fetched []Token) bool {
	if w.Tokens == nil {
		w.Tokens = map[string]Token{}
	}

	changed := false
	for _, t := range fetched {
		if _, ok := w.Tokens[t.AssetGuid]; ok {
			continue
		}
		w.Tokens[t.AssetGuid] = t
		changed = true
	}

	holdings := make([]Holding, 0, len(remote))
	index := map[string]int{}
	for _, b := range remote {
		if i, ok := index[b.AssetGuid]; ok {
			holdings[i].Balance += b.Balance
			continue
		}
		h := Holding{
			AssetGuid: b.AssetGuid,
			Symbol:    b.Symbol,
			Balance:   b.Balance,
			Decimals:  b.Decimals,
		}
		if t, ok := w.Tokens[b.AssetGuid]; ok {
			h.Symbol = t.Symbol
			h.Description = t.Description
			h.Decimals = t.Decimals
			h.IsNFT = t.IsNFT
		}
		index[b.AssetGuid] = len(holdings)
		holdings = append(holdings, h)
	}

	if !sameHoldings(w.Holdings, holdings) {
		changed = true
	}
	w.Holdings = holdings
	return changed
}

// Holding returns the holding of the given asset.
func (w *WalletTokens) Holding(assetGuid string) (Holding, bool) {
	for _, h := range w.Holdings {
		if h.AssetGuid == assetGuid {
			return h, true
		}
	}
	return Holding{}, false
}

func sameHoldings(a, b []Holding) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
