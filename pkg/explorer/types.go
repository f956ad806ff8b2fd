package explorer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	// TokenTypeXpubAddress marks a derived address of an xpub.
	TokenTypeXpubAddress = "XPUBAddress"
	// TokenTypeSPTAllocated marks an SPT balance held by the account.
	TokenTypeSPTAllocated = "SPTAllocated"
)

// Amount is an integer amount that the indexer may serialize either as a
// JSON string or as a number.
type Amount uint64

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", s, err)
	}
	*a = Amount(v)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(a), 10))
}

// Uint64 returns the amount as uint64.
func (a Amount) Uint64() uint64 {
	return uint64(a)
}

// Account is the state of an xpub or address as returned by the indexer.
type Account struct {
	Page               int           `json:"page"`
	TotalPages         int           `json:"totalPages"`
	ItemsOnPage        int           `json:"itemsOnPage"`
	Address            string        `json:"address"`
	Balance            Amount        `json:"balance"`
	TotalReceived      Amount        `json:"totalReceived"`
	TotalSent          Amount        `json:"totalSent"`
	UnconfirmedBalance json.Number   `json:"unconfirmedBalance"`
	UnconfirmedTxs     int           `json:"unconfirmedTxs"`
	Txs                int           `json:"txs"`
	Transactions       []Transaction `json:"transactions,omitempty"`
	Txids              []string      `json:"txids,omitempty"`
	UsedTokens         int           `json:"usedTokens"`
	Tokens             []Token       `json:"tokens,omitempty"`
}

// UnconfirmedDelta returns the signed amount of the unconfirmed balance.
func (a Account) UnconfirmedDelta() int64 {
	s := strings.Trim(a.UnconfirmedBalance.String(), `"`)
	if s == "" {
		return 0
	}
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

// SPTTokens returns the tokens that represent SPT balances.
func (a Account) SPTTokens() []Token {
	tokens := make([]Token, 0, len(a.Tokens))
	for _, t := range a.Tokens {
		if t.Type == TokenTypeSPTAllocated {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Addresses returns the derived addresses of an xpub account.
func (a Account) Addresses() []Token {
	tokens := make([]Token, 0, len(a.Tokens))
	for _, t := range a.Tokens {
		if t.Type == TokenTypeXpubAddress {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Token is either a derived address of an xpub or an SPT balance. Symbol
// is base64 encoded as stored on chain.
type Token struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	Path          string `json:"path,omitempty"`
	Transfers     int    `json:"transfers"`
	Decimals      int    `json:"decimals"`
	Balance       Amount `json:"balance"`
	TotalReceived Amount `json:"totalReceived"`
	TotalSent     Amount `json:"totalSent"`
	AssetGuid     string `json:"assetGuid,omitempty"`
	Symbol        string `json:"symbol,omitempty"`
	Contract      string `json:"contract,omitempty"`
}

// Asset is the public data of an SPT. Symbol and Description are already
// decoded from their on-chain base64 form.
type Asset struct {
	AssetGuid             string `json:"assetGuid"`
	Symbol                string `json:"symbol"`
	Description           string `json:"description"`
	Contract              string `json:"contract"`
	NotaryKeyID           string `json:"notaryKeyID"`
	TotalSupply           Amount `json:"totalSupply"`
	MaxSupply             Amount `json:"maxSupply"`
	Decimals              int    `json:"decimals"`
	UpdateCapabilityFlags uint8  `json:"updateCapabilityFlags"`
}

// AssetInfo is the SPT part of an input, an output or an utxo.
type AssetInfo struct {
	AssetGuid string `json:"assetGuid"`
	Value     Amount `json:"value"`
}

// Vin is a transaction input.
type Vin struct {
	Txid      string     `json:"txid"`
	Vout      uint32     `json:"vout"`
	N         int        `json:"n"`
	Addresses []string   `json:"addresses"`
	IsAddress bool       `json:"isAddress"`
	Value     Amount     `json:"value"`
	AssetInfo *AssetInfo `json:"assetInfo,omitempty"`
}

// Vout is a transaction output.
type Vout struct {
	Value     Amount     `json:"value"`
	N         int        `json:"n"`
	Hex       string     `json:"hex"`
	Addresses []string   `json:"addresses"`
	IsAddress bool       `json:"isAddress"`
	AssetInfo *AssetInfo `json:"assetInfo,omitempty"`
}

// Transaction is a tx as returned by the indexer.
type Transaction struct {
	Txid          string `json:"txid"`
	Version       int32  `json:"version"`
	Vin           []Vin  `json:"vin"`
	Vout          []Vout `json:"vout"`
	BlockHash     string `json:"blockHash"`
	BlockHeight   int    `json:"blockHeight"`
	Confirmations int    `json:"confirmations"`
	BlockTime     int64  `json:"blockTime"`
	Value         Amount `json:"value"`
	ValueIn       Amount `json:"valueIn"`
	Fees          Amount `json:"fees"`
	Hex           string `json:"hex,omitempty"`
	TokenType     string `json:"tokenType,omitempty"`
}

// IsConfirmed returns whether the tx has been included in a block.
func (t Transaction) IsConfirmed() bool {
	return t.Confirmations > 0
}

// Utxo is an unspent output of an xpub or address. Path is relative to the
// wallet root and is set only for xpub queries.
type Utxo struct {
	Txid          string     `json:"txid"`
	Vout          uint32     `json:"vout"`
	Value         Amount     `json:"value"`
	Height        int        `json:"height"`
	Confirmations int        `json:"confirmations"`
	Address       string     `json:"address"`
	Path          string     `json:"path"`
	AssetInfo     *AssetInfo `json:"assetInfo,omitempty"`
}

// IsAsset returns whether the utxo carries an SPT allocation.
func (u Utxo) IsAsset() bool {
	return u.AssetInfo != nil && u.AssetInfo.AssetGuid != ""
}

// Key returns the outpoint of the utxo in the txid:vout form.
func (u Utxo) Key() string {
	return fmt.Sprintf("%s:%d", u.Txid, u.Vout)
}

// DecodeBase64 decodes on-chain base64 strings like asset symbols and
// descriptions. The input is returned as is if not valid base64.
func DecodeBase64(str string) string {
	if str == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return str
	}
	return string(decoded)
}
