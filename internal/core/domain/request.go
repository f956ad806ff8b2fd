package domain

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/pali-wallet/palid/pkg/sptx"
	"github.com/pali-wallet/palid/pkg/sysaddress"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedOnNetwork is returned when staging an SPT request while
// connected to a web3 network.
var ErrUnsupportedOnNetwork = errors.New("request not supported on the selected network")

// TxKind identifies the kind of a staged request. The wallet holds at most
// one staged request per kind.
type TxKind string

const (
	KindSend              TxKind = "send"
	KindNewAsset          TxKind = "new-asset"
	KindMintAsset         TxKind = "mint-asset"
	KindNewNFT            TxKind = "new-nft"
	KindUpdateAsset       TxKind = "update-asset"
	KindTransferOwnership TxKind = "transfer-ownership"
	KindSignPSBT          TxKind = "sign-psbt"
)

// AllTxKinds lists every kind of request.
var AllTxKinds = []TxKind{
	KindSend, KindNewAsset, KindMintAsset, KindNewNFT, KindUpdateAsset,
	KindTransferOwnership, KindSignPSBT,
}

// ParseTxKind returns the kind with the given name.
func ParseTxKind(str string) (TxKind, error) {
	for _, k := range AllTxKinds {
		if string(k) == str {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTxKind, str)
}

// WalletParams are the request fields set by the wallet rather than by the
// requesting page. Fee is a rate in SYS per kB, zero means estimate.
type WalletParams struct {
	Fee decimal.Decimal `json:"fee"`
	RBF bool            `json:"rbf"`
}

// Params returns the wallet params of the request.
func (p *WalletParams) Params() WalletParams {
	return *p
}

// SetWalletParams merges the wallet fields into the request.
func (p *WalletParams) SetWalletParams(params WalletParams) {
	p.Fee = params.Fee
	p.RBF = params.RBF
}

func (p WalletParams) validate() error {
	if p.Fee.IsNegative() {
		return ErrInvalidFee
	}
	return nil
}

// TxRequest is a request staged by a page or by the popup, waiting for the
// user to confirm it.
type TxRequest interface {
	Kind() TxKind
	Validate(network Network) error
	Params() WalletParams
	SetWalletParams(params WalletParams)
}

// NewTxRequest returns an empty request of the given kind.
func NewTxRequest(kind TxKind) (TxRequest, error) {
	switch kind {
	case KindSend:
		return &SendRequest{}, nil
	case KindNewAsset:
		return &NewAssetRequest{}, nil
	case KindMintAsset:
		return &MintAssetRequest{}, nil
	case KindNewNFT:
		return &NewNFTRequest{}, nil
	case KindUpdateAsset:
		return &UpdateAssetRequest{}, nil
	case KindTransferOwnership:
		return &TransferOwnershipRequest{}, nil
	case KindSignPSBT:
		return &SignPSBTRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTxKind, kind)
	}
}

// SendRequest transfers SYS, an SPT or the native coin of a web3 network.
type SendRequest struct {
	From    string          `json:"fromAddress"`
	To      string          `json:"toAddress"`
	Amount  decimal.Decimal `json:"amount"`
	Token   string          `json:"token,omitempty"`
	IsToken bool            `json:"isToken"`
	WalletParams
}

func (r *SendRequest) Kind() TxKind { return KindSend }

func (r *SendRequest) Validate(network Network) error {
	if !isValidAddress(r.To, network) {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, r.To)
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.IsToken {
		if !network.IsSyscoin() {
			return ErrUnsupportedOnNetwork
		}
		if err := validateGuid(r.Token); err != nil {
			return err
		}
	}
	return r.WalletParams.validate()
}

// NewAssetRequest creates an SPT and optionally issues its initial supply.
type NewAssetRequest struct {
	Precision       uint8           `json:"precision"`
	Symbol          string          `json:"symbol"`
	MaxSupply       decimal.Decimal `json:"maxsupply"`
	Description     string          `json:"description"`
	Receiver        string          `json:"receiver"`
	InitialSupply   decimal.Decimal `json:"initialSupply"`
	CapabilityFlags uint8           `json:"capabilityflags"`
	NotaryAddress   string          `json:"notaryAddress,omitempty"`
	PayoutAddress   string          `json:"payoutAddress,omitempty"`
	WalletParams
}

func (r *NewAssetRequest) Kind() TxKind { return KindNewAsset }

func (r *NewAssetRequest) Validate(network Network) error {
	if !network.IsSyscoin() {
		return ErrUnsupportedOnNetwork
	}
	if err := validateSymbol(r.Symbol); err != nil {
		return err
	}
	if r.Precision > sptx.MaxPrecision {
		return ErrInvalidPrecision
	}
	if !r.MaxSupply.IsPositive() {
		return fmt.Errorf("%w: max supply must be greater than zero", ErrInvalidSupply)
	}
	if r.InitialSupply.IsNegative() || r.InitialSupply.GreaterThan(r.MaxSupply) {
		return fmt.Errorf("%w: initial supply must be in range [0, max supply]", ErrInvalidSupply)
	}
	if r.CapabilityFlags > sptx.CapabilityAll {
		return ErrInvalidCapabilityFlags
	}
	for _, addr := range []string{r.Receiver, r.NotaryAddress, r.PayoutAddress} {
		if addr != "" && !isValidAddress(addr, network) {
			return fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
		}
	}
	return r.WalletParams.validate()
}

// MintAssetRequest issues more supply of an existing SPT.
type MintAssetRequest struct {
	AssetGuid      string          `json:"assetGuid"`
	Amount         decimal.Decimal `json:"amount"`
	ReceiveAddress string          `json:"receiveAddress,omitempty"`
	WalletParams
}

func (r *MintAssetRequest) Kind() TxKind { return KindMintAsset }

func (r *MintAssetRequest) Validate(network Network) error {
	if !network.IsSyscoin() {
		return ErrUnsupportedOnNetwork
	}
	if err := validateGuid(r.AssetGuid); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.ReceiveAddress != "" && !isValidAddress(r.ReceiveAddress, network) {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, r.ReceiveAddress)
	}
	return r.WalletParams.validate()
}

// NewNFTRequest creates an asset with a supply of one unit, issues it to the
// receiver and revokes any further update.
type NewNFTRequest struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Receiver    string `json:"receiver"`
	Precision   uint8  `json:"precision"`
	WalletParams
}

func (r *NewNFTRequest) Kind() TxKind { return KindNewNFT }

func (r *NewNFTRequest) Validate(network Network) error {
	if !network.IsSyscoin() {
		return ErrUnsupportedOnNetwork
	}
	if err := validateSymbol(r.Symbol); err != nil {
		return err
	}
	if r.Precision > sptx.MaxPrecision {
		return ErrInvalidPrecision
	}
	if r.Receiver != "" && !isValidAddress(r.Receiver, network) {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, r.Receiver)
	}
	return r.WalletParams.validate()
}

// UpdateAssetRequest updates the fields of an SPT. Empty fields and nil
// flags are left unchanged.
type UpdateAssetRequest struct {
	AssetGuid       string `json:"assetGuid"`
	Contract        string `json:"contract,omitempty"`
	CapabilityFlags *uint8 `json:"capabilityflags,omitempty"`
	Description     string `json:"description,omitempty"`
	NotaryAddress   string `json:"notaryAddress,omitempty"`
	PayoutAddress   string `json:"payoutAddress,omitempty"`
	WalletParams
}

func (r *UpdateAssetRequest) Kind() TxKind { return KindUpdateAsset }

func (r *UpdateAssetRequest) Validate(network Network) error {
	if !network.IsSyscoin() {
		return ErrUnsupportedOnNetwork
	}
	if err := validateGuid(r.AssetGuid); err != nil {
		return err
	}
	if r.Contract != "" && !sysaddress.IsValidEVMAddress(r.Contract) {
		return ErrInvalidContract
	}
	if r.CapabilityFlags != nil && *r.CapabilityFlags > sptx.CapabilityAll {
		return ErrInvalidCapabilityFlags
	}
	for _, addr := range []string{r.NotaryAddress, r.PayoutAddress} {
		if addr != "" && !isValidAddress(addr, network) {
			return fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
		}
	}
	if r.Contract == "" && r.CapabilityFlags == nil && r.Description == "" &&
		r.NotaryAddress == "" && r.PayoutAddress == "" {
		return ErrEmptyUpdate
	}
	return r.WalletParams.validate()
}

// TransferOwnershipRequest moves the ownership of an SPT to a new address.
type TransferOwnershipRequest struct {
	AssetGuid string `json:"assetGuid"`
	NewOwner  string `json:"newOwner"`
	WalletParams
}

func (r *TransferOwnershipRequest) Kind() TxKind { return KindTransferOwnership }

func (r *TransferOwnershipRequest) Validate(network Network) error {
	if !network.IsSyscoin() {
		return ErrUnsupportedOnNetwork
	}
	if err := validateGuid(r.AssetGuid); err != nil {
		return err
	}
	if !isValidAddress(r.NewOwner, network) {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, r.NewOwner)
	}
	return r.WalletParams.validate()
}

// SignPSBTRequest signs the inputs of a PSBT owned by the account and
// optionally broadcasts the final tx.
type SignPSBTRequest struct {
	PSBT      string `json:"psbt"`
	Broadcast bool   `json:"broadcast"`
	WalletParams
}

func (r *SignPSBTRequest) Kind() TxKind { return KindSignPSBT }

func (r *SignPSBTRequest) Validate(network Network) error {
	if !network.IsSyscoin() {
		return ErrUnsupportedOnNetwork
	}
	if _, err := r.Packet(); err != nil {
		return err
	}
	return nil
}

// Packet parses the base64 encoded PSBT.
func (r *SignPSBTRequest) Packet() (*psbt.Packet, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(r.PSBT))
	if err != nil || len(raw) <= 0 {
		return nil, fmt.Errorf("%w: not in base64 format", ErrInvalidPSBT)
	}
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPSBT, err)
	}
	return packet, nil
}

func isValidAddress(address string, network Network) bool {
	return network.IsValidAddress(address)
}

func validateSymbol(symbol string) error {
	if l := len(symbol); l <= 0 || l > sptx.MaxSymbolLength {
		return ErrInvalidSymbol
	}
	return nil
}

func validateGuid(guid string) error {
	if _, err := sptx.ParseAssetGuid(guid); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAssetGuid, guid)
	}
	return nil
}
