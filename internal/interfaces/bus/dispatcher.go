package businterface

import (
	"context"
	"fmt"
	"strings"

	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/interfaces"
)

type dispatcher struct {
	walletSvc      application.WalletService
	accountSvc     application.AccountService
	connectionsSvc application.ConnectionsService
}

type connectWalletReply struct {
	Connected bool   `json:"connected"`
	AccountID *int   `json:"accountId,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
}

type walletStateReply struct {
	IsLocked bool                    `json:"isLocked"`
	Network  interfaces.NetworkView  `json:"network"`
	Account  *interfaces.AccountView `json:"account,omitempty"`
}

type stageReply struct {
	Kind   domain.TxKind `json:"kind"`
	Staged bool          `json:"staged"`
}

// pageAccountView is the account as exposed to pages, the xpub is only
// given on explicit request.
func pageAccountView(
	account *domain.Account, network domain.Network,
) *interfaces.AccountView {
	view := interfaces.NewAccountView(*account, network)
	view.Xpub = ""
	return &view
}

// dispatch handles a message of a page with the given origin and returns
// the data of the reply.
func (d *dispatcher) dispatch(
	ctx context.Context, origin string, msg Envelope,
) (interface{}, error) {
	if !msg.Type.IsRequest() {
		return nil, fmt.Errorf("%w %q", ErrUnknownMessageType, msg.Type)
	}
	payload, err := msg.Decode()
	if err != nil {
		return nil, err
	}

	var account *domain.Account
	if msg.Type.RequiresConnection() {
		account, err = d.connectionsSvc.ConnectedAccount(ctx, origin)
		if err != nil {
			return nil, err
		}
	}

	switch msg.Type {
	case ConnectWallet:
		return d.connectWallet(ctx, origin)
	case ChangeConnectedAccount:
		data := payload.(*accountIDData)
		if err := d.connectionsSvc.ChangeConnectedAccount(
			ctx, origin, data.AccountID,
		); err != nil {
			return nil, err
		}
		return connectWalletReply{Connected: true, AccountID: &data.AccountID}, nil
	case Disconnect:
		if err := d.connectionsSvc.Disconnect(ctx, origin); err != nil {
			return nil, err
		}
		return connectWalletReply{Connected: false}, nil
	case CheckIsLocked:
		status, err := d.walletSvc.Status(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"isLocked": !status.Unlocked}, nil
	case GetWalletState:
		return d.walletState(ctx, account)
	case GetNetwork:
		network, err := d.walletSvc.ActiveNetwork(ctx)
		if err != nil {
			return nil, err
		}
		return interfaces.NewNetworkView(network, true), nil
	case GetConnectedAccount:
		network, err := d.walletSvc.ActiveNetwork(ctx)
		if err != nil {
			return nil, err
		}
		return pageAccountView(account, network), nil
	case GetConnectedAccountXpub:
		xpub, err := d.accountSvc.GetConnectedAccountXpub(ctx, origin)
		if err != nil {
			return nil, err
		}
		return map[string]string{"xpub": xpub}, nil
	case GetChangeAddress:
		address, err := d.accountSvc.GetChangeAddress(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"address": address}, nil
	case GetHoldingsData:
		holdings, err := d.accountSvc.GetHoldingsData(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		return interfaces.NewHoldingViews(holdings), nil
	case GetUserMintedTokens:
		tokens, err := d.accountSvc.GetUserMintedTokens(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		views := make([]interfaces.TokenView, 0, len(tokens))
		for _, t := range tokens {
			views = append(views, interfaces.NewTokenView(t))
		}
		return views, nil
	case GetAssetData:
		token, err := d.accountSvc.GetAssetData(ctx, payload.(*assetData).AssetGuid)
		if err != nil {
			return nil, err
		}
		return interfaces.NewTokenView(*token), nil
	case CheckAddress:
		network, err := d.walletSvc.ActiveNetwork(ctx)
		if err != nil {
			return nil, err
		}
		address := strings.TrimSpace(payload.(*addressData).Address)
		return map[string]bool{"isValid": network.IsValidAddress(address)}, nil
	case SendToken, CreateToken, IssueSPT, CreateAndIssueNFT, UpdateAsset,
		TransferOwnership, SignPSBT, SignAndSend:
		return d.stage(ctx, account, payload.(domain.TxRequest))
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMessageType, msg.Type)
	}
}

func (d *dispatcher) connectWallet(
	ctx context.Context, origin string,
) (interface{}, error) {
	account, err := d.connectionsSvc.ConnectedAccount(ctx, origin)
	if err == nil {
		return connectWalletReply{Connected: true, AccountID: &account.ID}, nil
	}
	nonce, err := d.connectionsSvc.RequestConnection(ctx, origin)
	if err != nil {
		return nil, err
	}
	return connectWalletReply{Connected: false, Nonce: nonce}, nil
}

func (d *dispatcher) walletState(
	ctx context.Context, account *domain.Account,
) (interface{}, error) {
	status, err := d.walletSvc.Status(ctx)
	if err != nil {
		return nil, err
	}
	network, err := d.walletSvc.ActiveNetwork(ctx)
	if err != nil {
		return nil, err
	}
	return walletStateReply{
		IsLocked: !status.Unlocked,
		Network:  interfaces.NewNetworkView(network, true),
		Account:  pageAccountView(account, network),
	}, nil
}

// stage writes the request of the page in the slot of its kind. The user
// confirms it from the popup after choosing fee and rbf.
func (d *dispatcher) stage(
	ctx context.Context, account *domain.Account, req domain.TxRequest,
) (interface{}, error) {
	active, err := d.walletSvc.ActiveAccount(ctx)
	if err != nil {
		return nil, err
	}
	if active.ID != account.ID {
		return nil, ErrAccountNotActive
	}
	if err := d.accountSvc.Stage(ctx, req); err != nil {
		return nil, err
	}
	return stageReply{Kind: req.Kind(), Staged: true}, nil
}
