package businterface

import (
	"encoding/json"
	"fmt"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/interfaces"
)

// The errors of the bus are all bad requests.
var (
	// ErrUnknownMessageType is returned for messages whose type is not in the
	// catalog.
	ErrUnknownMessageType = fmt.Errorf(
		"%w: unknown message type", interfaces.ErrBadRequest,
	)
	// ErrInvalidTarget is returned for messages addressed to an unknown
	// component of the wallet.
	ErrInvalidTarget = fmt.Errorf(
		"%w: invalid message target", interfaces.ErrBadRequest,
	)
	// ErrInvalidMessageData is returned when the data of a message can't be
	// decoded into the payload of its type.
	ErrInvalidMessageData = fmt.Errorf(
		"%w: invalid message data", interfaces.ErrBadRequest,
	)
	// ErrAccountNotActive is returned when a page stages a request while the
	// account it's connected to is not the active one.
	ErrAccountNotActive = fmt.Errorf(
		"%w: connected account is not the active one", interfaces.ErrBadRequest,
	)
)

// MessageType is the type of the messages exchanged with the pages.
type MessageType string

const (
	ConnectWallet           MessageType = "CONNECT_WALLET"
	ChangeConnectedAccount  MessageType = "CHANGE_CONNECTED_ACCOUNT"
	Disconnect              MessageType = "DISCONNECT"
	CheckIsLocked           MessageType = "CHECK_IS_LOCKED"
	GetWalletState          MessageType = "GET_WALLET_STATE"
	GetNetwork              MessageType = "GET_NETWORK"
	GetConnectedAccount     MessageType = "GET_CONNECTED_ACCOUNT"
	GetConnectedAccountXpub MessageType = "GET_CONNECTED_ACCOUNT_XPUB"
	GetChangeAddress        MessageType = "GET_CHANGE_ADDRESS"

	GetHoldingsData     MessageType = "GET_HOLDINGS_DATA"
	GetUserMintedTokens MessageType = "GET_USER_MINTED_TOKENS"
	GetAssetData        MessageType = "GET_ASSET_DATA"
	CheckAddress        MessageType = "CHECK_ADDRESS"

	SendToken         MessageType = "SEND_TOKEN"
	CreateToken       MessageType = "CREATE_TOKEN"
	IssueSPT          MessageType = "ISSUE_SPT"
	CreateAndIssueNFT MessageType = "CREATE_AND_ISSUE_NFT"
	UpdateAsset       MessageType = "UPDATE_ASSET"
	TransferOwnership MessageType = "TRANSFER_OWNERSHIP"
	SignPSBT          MessageType = "SIGN_PSBT"
	SignAndSend       MessageType = "SIGN_AND_SEND"

	// Pushed to the pages.
	WalletUpdated MessageType = "WALLET_UPDATED"
	TxUpdated     MessageType = "TX_UPDATED"
	TokensUpdated MessageType = "TOKENS_UPDATED"
	Connected     MessageType = "ACCOUNT_CONNECTED"
)

var requestTypes = map[MessageType]bool{
	ConnectWallet:           false,
	ChangeConnectedAccount:  true,
	Disconnect:              true,
	CheckIsLocked:           false,
	GetWalletState:          true,
	GetNetwork:              false,
	GetConnectedAccount:     true,
	GetConnectedAccountXpub: true,
	GetChangeAddress:        true,
	GetHoldingsData:         true,
	GetUserMintedTokens:     true,
	GetAssetData:            true,
	CheckAddress:            false,
	SendToken:               true,
	CreateToken:             true,
	IssueSPT:                true,
	CreateAndIssueNFT:       true,
	UpdateAsset:             true,
	TransferOwnership:       true,
	SignPSBT:                true,
	SignAndSend:             true,
}

// IsRequest returns whether pages can send messages of this type.
func (t MessageType) IsRequest() bool {
	_, ok := requestTypes[t]
	return ok
}

// RequiresConnection returns whether the page must be connected to an
// account to send messages of this type.
func (t MessageType) RequiresConnection() bool {
	return requestTypes[t]
}

// Target is the component of the wallet a message is addressed to.
type Target string

const (
	TargetContentScript         Target = "contentScript"
	TargetBackground            Target = "background"
	TargetConnectionsController Target = "connectionsController"
)

func (t Target) isValid() bool {
	switch t {
	case TargetContentScript, TargetBackground, TargetConnectionsController:
		return true
	default:
		return false
	}
}

// Envelope is a message received from a page.
type Envelope struct {
	ID          string          `json:"id"`
	Type        MessageType     `json:"type"`
	Target      Target          `json:"target"`
	MessageData json.RawMessage `json:"messageData,omitempty"`
}

// Reply is a message sent to a page, either in response to an envelope
// with the same id or pushed on events, with an empty id.
type Reply struct {
	ID          string                 `json:"id,omitempty"`
	Type        MessageType            `json:"type"`
	Target      Target                 `json:"target"`
	MessageData interface{}            `json:"messageData,omitempty"`
	Error       *interfaces.ErrorReply `json:"error,omitempty"`
}

type accountIDData struct {
	AccountID int `json:"accountId"`
}

type assetData struct {
	AssetGuid string `json:"assetGuid"`
}

type addressData struct {
	Address string `json:"address"`
}

type emptyData struct{}

// Decode validates the envelope and returns the typed payload of its type.
func (e Envelope) Decode() (interface{}, error) {
	if !e.Target.isValid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidTarget, e.Target)
	}

	var payload interface{}
	switch e.Type {
	case ConnectWallet, Disconnect, CheckIsLocked, GetWalletState, GetNetwork,
		GetConnectedAccount, GetConnectedAccountXpub, GetChangeAddress,
		GetHoldingsData, GetUserMintedTokens:
		payload = &emptyData{}
	case ChangeConnectedAccount:
		payload = &accountIDData{}
	case GetAssetData:
		payload = &assetData{}
	case CheckAddress:
		payload = &addressData{}
	case SendToken:
		payload = &domain.SendRequest{}
	case CreateToken:
		payload = &domain.NewAssetRequest{}
	case IssueSPT:
		payload = &domain.MintAssetRequest{}
	case CreateAndIssueNFT:
		payload = &domain.NewNFTRequest{}
	case UpdateAsset:
		payload = &domain.UpdateAssetRequest{}
	case TransferOwnership:
		payload = &domain.TransferOwnershipRequest{}
	case SignPSBT, SignAndSend:
		payload = &domain.SignPSBTRequest{}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMessageType, e.Type)
	}

	if len(e.MessageData) > 0 && string(e.MessageData) != "null" {
		if err := json.Unmarshal(e.MessageData, payload); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMessageData, err)
		}
	}
	if req, ok := payload.(*domain.SignPSBTRequest); ok && e.Type == SignAndSend {
		req.Broadcast = true
	}
	return payload, nil
}
