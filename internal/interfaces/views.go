package interfaces

import (
	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/shopspring/decimal"
)

type TransactionView struct {
	TxID          string `json:"txid"`
	Kind          string `json:"kind,omitempty"`
	Confirmations int    `json:"confirmations"`
	BlockTime     int64  `json:"blockTime"`
	Value         uint64 `json:"value"`
	Fees          uint64 `json:"fees"`
	Pending       bool   `json:"pending"`
}

// AccountView is the json representation of an account for the active
// network.
type AccountView struct {
	ID             int               `json:"id"`
	Label          string            `json:"label"`
	Xpub           string            `json:"xpub,omitempty"`
	Balance        decimal.Decimal   `json:"balance"`
	Address        string            `json:"address"`
	ChangeAddress  string            `json:"changeAddress,omitempty"`
	Web3Address    string            `json:"web3Address,omitempty"`
	ConnectedTo    []string          `json:"connectedTo"`
	IsTrezorWallet bool              `json:"isTrezorWallet"`
	TrezorPath     string            `json:"trezorPath,omitempty"`
	Transactions   []TransactionView `json:"transactions"`
}

func NewAccountView(account domain.Account, network domain.Network) AccountView {
	// A missing xpub for the network is not an error here, hardware accounts
	// are imported for a single network.
	xpub, _ := account.Xpub(network.ID)
	address := account.Address[network.ID]
	if !network.IsSyscoin() {
		address = account.Web3Address
	}
	connectedTo := account.ConnectedTo
	if connectedTo == nil {
		connectedTo = []string{}
	}
	return AccountView{
		ID:             account.ID,
		Label:          account.Label,
		Xpub:           xpub,
		Balance:        account.Balance,
		Address:        address,
		ChangeAddress:  account.ChangeAddress[network.ID],
		Web3Address:    account.Web3Address,
		ConnectedTo:    connectedTo,
		IsTrezorWallet: account.IsTrezorWallet,
		TrezorPath:     account.TrezorPath,
		Transactions:   NewTransactionViews(account.Transactions),
	}
}

func NewTransactionViews(txs []domain.Transaction) []TransactionView {
	views := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, TransactionView{
			TxID:          tx.TxID,
			Kind:          string(tx.Kind),
			Confirmations: tx.Confirmations,
			BlockTime:     tx.BlockTime,
			Value:         tx.Value,
			Fees:          tx.Fees,
			Pending:       tx.Pending,
		})
	}
	return views
}

type FlowView struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	AccountID int      `json:"accountId"`
	Network   string   `json:"network"`
	Status    string   `json:"status"`
	Step      int      `json:"step"`
	Steps     int      `json:"steps"`
	TxIDs     []string `json:"txids"`
	AssetGuid string   `json:"assetGuid,omitempty"`
	Result    string   `json:"result,omitempty"`
	Error     string   `json:"error,omitempty"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

func NewFlowView(flow domain.TxFlow) FlowView {
	txids := flow.TxIDs
	if txids == nil {
		txids = []string{}
	}
	return FlowView{
		ID:        flow.ID,
		Kind:      string(flow.Kind),
		AccountID: flow.AccountID,
		Network:   flow.Network,
		Status:    flow.Status.String(),
		Step:      flow.Step,
		Steps:     flow.Steps,
		TxIDs:     txids,
		AssetGuid: flow.AssetGuid,
		Result:    flow.Result,
		Error:     flow.Error,
		CreatedAt: flow.CreatedAt,
		UpdatedAt: flow.UpdatedAt,
	}
}

type TokenView struct {
	AssetGuid             string `json:"assetGuid"`
	Symbol                string `json:"symbol"`
	Description           string `json:"description"`
	Decimals              int    `json:"decimals"`
	MaxSupply             uint64 `json:"maxSupply"`
	TotalSupply           uint64 `json:"totalSupply"`
	UpdateCapabilityFlags uint8  `json:"updateCapabilityFlags"`
	Contract              string `json:"contract,omitempty"`
	IsNFT                 bool   `json:"isNft"`
}

func NewTokenView(token domain.Token) TokenView {
	return TokenView{
		AssetGuid:             token.AssetGuid,
		Symbol:                token.Symbol,
		Description:           token.Description,
		Decimals:              token.Decimals,
		MaxSupply:             token.MaxSupply,
		TotalSupply:           token.TotalSupply,
		UpdateCapabilityFlags: token.UpdateCapabilityFlags,
		Contract:              token.Contract,
		IsNFT:                 token.IsNFT,
	}
}

type HoldingView struct {
	AssetGuid   string          `json:"assetGuid"`
	Symbol      string          `json:"symbol"`
	Description string          `json:"description,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	Decimals    int             `json:"decimals"`
	IsNFT       bool            `json:"isNft"`
}

func NewHoldingViews(holdings []domain.Holding) []HoldingView {
	views := make([]HoldingView, 0, len(holdings))
	for _, h := range holdings {
		views = append(views, HoldingView{
			AssetGuid:   h.AssetGuid,
			Symbol:      h.Symbol,
			Description: h.Description,
			Balance:     decimal.New(int64(h.Balance), -int32(h.Decimals)),
			Decimals:    h.Decimals,
			IsNFT:       h.IsNFT,
		})
	}
	return views
}

type ContactView struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Address string `json:"address"`
	Network string `json:"network"`
}

func NewContactView(c domain.Contact) ContactView {
	return ContactView{c.ID, c.Label, c.Address, c.Network}
}

type ConnectionView struct {
	Origin    string `json:"origin"`
	AccountID int    `json:"accountId"`
}

type PendingConnectionView struct {
	Nonce     string `json:"nonce"`
	Origin    string `json:"origin"`
	ExpiresAt int64  `json:"expiresAt"`
}

func NewConnectionViews(conns []application.Connection) []ConnectionView {
	views := make([]ConnectionView, 0, len(conns))
	for _, c := range conns {
		views = append(views, ConnectionView{c.Origin, c.AccountID})
	}
	return views
}

func NewPendingConnectionViews(
	reqs []application.ConnectionRequest,
) []PendingConnectionView {
	views := make([]PendingConnectionView, 0, len(reqs))
	for _, r := range reqs {
		views = append(views, PendingConnectionView{
			r.Nonce, r.Origin, r.ExpiresAt.Unix(),
		})
	}
	return views
}

type NetworkView struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Kind    string `json:"kind"`
	ChainID int64  `json:"chainId,omitempty"`
	Active  bool   `json:"active"`
}

func NewNetworkView(n domain.Network, active bool) NetworkView {
	return NetworkView{n.ID, n.Label, n.Kind.String(), n.ChainID, active}
}
