package application

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/pali-wallet/palid/pkg/mathutil"
	"github.com/pali-wallet/palid/pkg/sptx"
	"github.com/pali-wallet/palid/pkg/wallet"
)

// txContext groups what every step of a Syscoin flow needs.
type txContext struct {
	account  *domain.Account
	network  domain.Network
	signer   ports.Signer
	explorer explorer.Service
	opts     ports.BuildOpts
}

// newFlowRunner returns the runner of the flow for req along with its
// number of steps.
func (s *accountService) newFlowRunner(
	session *Session, account *domain.Account, network domain.Network,
	req domain.TxRequest,
) (flowRunner, int, error) {
	if !network.IsSyscoin() {
		send, ok := req.(*domain.SendRequest)
		if !ok {
			return nil, 0, domain.ErrUnsupportedOnNetwork
		}
		run, err := s.web3SendRunner(session, account, network, send)
		return run, 1, err
	}

	tc, err := s.newTxContext(session, account, network, req.Params())
	if err != nil {
		return nil, 0, err
	}

	switch r := req.(type) {
	case *domain.SendRequest:
		return s.sendRunner(tc, r), 1, nil
	case *domain.NewAssetRequest:
		run, err := s.newAssetRunner(tc, r)
		steps := 1
		if r.InitialSupply.IsPositive() {
			steps = 2
		}
		return run, steps, err
	case *domain.MintAssetRequest:
		return s.mintAssetRunner(tc, r), 1, nil
	case *domain.NewNFTRequest:
		return s.newNFTRunner(tc, r), 3, nil
	case *domain.UpdateAssetRequest:
		return s.updateAssetRunner(tc, r), 1, nil
	case *domain.TransferOwnershipRequest:
		return s.transferOwnershipRunner(tc, r), 1, nil
	case *domain.SignPSBTRequest:
		return s.signPSBTRunner(tc, r), 1, nil
	default:
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrUnknownTxKind, req.Kind())
	}
}

func (s *accountService) newTxContext(
	session *Session, account *domain.Account, network domain.Network,
	params domain.WalletParams,
) (txContext, error) {
	explorerSvc, err := s.explorers.Explorer(network.ID)
	if err != nil {
		return txContext{}, err
	}
	signer, err := s.signerFor(session, account, network.ID)
	if err != nil {
		return txContext{}, err
	}
	opts, err := buildOpts(account, network.ID, params)
	if err != nil {
		return txContext{}, err
	}
	return txContext{account, network, signer, explorerSvc, opts}, nil
}

func (s *accountService) signerFor(
	session *Session, account *domain.Account, network string,
) (ports.Signer, error) {
	if account.IsTrezorWallet {
		xpub, err := account.Xpub(network)
		if err != nil {
			return nil, err
		}
		return s.signers.HardwareSigner(network, xpub, account.TrezorPath)
	}
	_, xprv, err := session.accountKeys(network, account.Index)
	if err != nil {
		return nil, err
	}
	return s.signers.SoftwareSigner(network, xprv)
}

func buildOpts(
	account *domain.Account, network string, params domain.WalletParams,
) (ports.BuildOpts, error) {
	xpub, err := account.Xpub(network)
	if err != nil {
		return ports.BuildOpts{}, err
	}
	changeAddress := account.ChangeAddress[network]
	if changeAddress == "" {
		change, err := wallet.DeriveAddress(wallet.DeriveAddressOpts{
			ExtendedKey: xpub,
			Network:     network,
			Chain:       wallet.InternalChain,
		})
		if err != nil {
			return ports.BuildOpts{}, err
		}
		changeAddress = change.Address
	}

	var feeRate uint64
	if params.Fee.IsPositive() {
		feeRate = mathutil.FeeRateFromKB(params.Fee)
	}
	return ports.BuildOpts{
		Network:       network,
		Xpub:          xpub,
		ChangeAddress: changeAddress,
		FeeRate:       feeRate,
		RBF:           params.RBF,
	}, nil
}

// signAndBroadcast signs and broadcasts the tx of the current step, then
// records it on both flow and account.
func (s *accountService) signAndBroadcast(
	ctx context.Context, fc *flowContext, tc txContext, unsigned *ports.UnsignedTx,
) (string, error) {
	if unsigned == nil || unsigned.Packet == nil {
		return "", fmt.Errorf("tx builder returned an empty tx")
	}
	signed, count, err := tc.signer.Sign(ctx, unsigned.Packet)
	if err != nil {
		return "", err
	}
	if signed == nil || count <= 0 {
		return "", ErrNothingSigned
	}

	txid, err := broadcastPacket(ctx, tc.explorer, signed)
	if err != nil {
		return "", err
	}
	if err := fc.broadcasted(txid); err != nil {
		return "", err
	}

	s.addPendingTransaction(
		ctx, tc.account.ID, tc.network.ID,
		domain.NewPendingTransaction(txid, fc.flow.Kind, unsigned.Value, unsigned.Fee),
	)
	return txid, nil
}

func broadcastPacket(
	ctx context.Context, explorerSvc explorer.Service, packet *psbt.Packet,
) (string, error) {
	if err := psbt.MaybeFinalizeAll(packet); err != nil {
		return "", fmt.Errorf("failed to finalize tx: %w", err)
	}
	tx, err := psbt.Extract(packet)
	if err != nil {
		return "", fmt.Errorf("failed to extract tx: %w", err)
	}
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}

	txid, err := explorerSvc.BroadcastTransaction(ctx, hex.EncodeToString(buf.Bytes()))
	if err != nil {
		return "", unavailable(err)
	}
	if txid == "" {
		return "", errors.New("broadcast returned an empty txid")
	}
	return txid, nil
}

func (s *accountService) sendRunner(tc txContext, req *domain.SendRequest) flowRunner {
	return func(ctx context.Context, fc *flowContext) error {
		if err := fc.submit(); err != nil {
			return err
		}

		precision := int32(mathutil.SysPrecision)
		assetGuid := ""
		if req.IsToken {
			asset, err := tc.explorer.GetAsset(ctx, req.Token)
			if err != nil {
				return unavailable(err)
			}
			precision = int32(asset.Decimals)
			assetGuid = req.Token
		}
		amount, err := mathutil.ToSatoshis(req.Amount, precision)
		if err != nil {
			return err
		}

		unsigned, err := s.builder.BuildSend(ctx, ports.SendOpts{
			BuildOpts: tc.opts,
			To:        req.To,
			Amount:    amount,
			AssetGuid: assetGuid,
		})
		if err != nil {
			return unavailable(err)
		}
		if _, err := s.signAndBroadcast(ctx, fc, tc, unsigned); err != nil {
			return err
		}
		fc.settle(tc.explorer)
		return nil
	}
}

func (s *accountService) newAssetRunner(
	tc txContext, req *domain.NewAssetRequest,
) (flowRunner, error) {
	precision := int32(req.Precision)
	maxSupply, err := mathutil.ToSatoshis(req.MaxSupply, precision)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSupply, err)
	}
	initialSupply, err := mathutil.ToSatoshis(req.InitialSupply, precision)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSupply, err)
	}
	receiver := req.Receiver
	if receiver == "" {
		receiver = tc.account.Address[tc.network.ID]
	}

	return func(ctx context.Context, fc *flowContext) error {
		assetGuid, err := s.activateAsset(ctx, fc, tc, ports.AssetNewOpts{
			BuildOpts:       tc.opts,
			Symbol:          req.Symbol,
			Description:     req.Description,
			Precision:       req.Precision,
			MaxSupply:       maxSupply,
			CapabilityFlags: req.CapabilityFlags,
			NotaryAddress:   req.NotaryAddress,
			PayoutAddress:   req.PayoutAddress,
		})
		if err != nil {
			return err
		}

		if initialSupply > 0 {
			if err := s.issueAsset(ctx, fc, tc, ports.AssetSendOpts{
				BuildOpts: tc.opts,
				AssetGuid: assetGuid,
				Precision: req.Precision,
				To:        receiver,
				Amount:    initialSupply,
			}); err != nil {
				return err
			}
		}
		return fc.confirm(assetGuid)
	}, nil
}

func (s *accountService) mintAssetRunner(
	tc txContext, req *domain.MintAssetRequest,
) flowRunner {
	receiver := req.ReceiveAddress
	if receiver == "" {
		receiver = tc.account.Address[tc.network.ID]
	}

	return func(ctx context.Context, fc *flowContext) error {
		if err := fc.submit(); err != nil {
			return err
		}
		asset, err := tc.explorer.GetAsset(ctx, req.AssetGuid)
		if err != nil {
			return unavailable(err)
		}
		amount, err := mathutil.ToSatoshis(req.Amount, int32(asset.Decimals))
		if err != nil {
			return err
		}
		if asset.MaxSupply.Uint64() > 0 &&
			asset.TotalSupply.Uint64()+amount > asset.MaxSupply.Uint64() {
			return fmt.Errorf("%w: amount exceeds max supply", domain.ErrInvalidSupply)
		}

		unsigned, err := s.builder.BuildAssetSend(ctx, ports.AssetSendOpts{
			BuildOpts: tc.opts,
			AssetGuid: req.AssetGuid,
			Precision: uint8(asset.Decimals),
			To:        receiver,
			Amount:    amount,
		})
		if err != nil {
			return unavailable(err)
		}
		if _, err := s.signAndBroadcast(ctx, fc, tc, unsigned); err != nil {
			return err
		}
		fc.settle(tc.explorer)
		return nil
	}
}

// newNFTRunner activates an asset with a supply of one unit, issues the unit
// to the receiver and finally revokes every capability, so that no more
// supply can be issued. Each step waits for the previous one to confirm.
func (s *accountService) newNFTRunner(
	tc txContext, req *domain.NewNFTRequest,
) flowRunner {
	unit := uint64(math.Pow10(int(req.Precision)))
	receiver := req.Receiver
	if receiver == "" {
		receiver = tc.account.Address[tc.network.ID]
	}
	noCapabilities := uint8(sptx.CapabilityNone)

	return func(ctx context.Context, fc *flowContext) error {
		assetGuid, err := s.activateAsset(ctx, fc, tc, ports.AssetNewOpts{
			BuildOpts:       tc.opts,
			Symbol:          req.Symbol,
			Description:     req.Description,
			Precision:       req.Precision,
			MaxSupply:       unit,
			CapabilityFlags: sptx.CapabilityAll,
		})
		if err != nil {
			return err
		}

		if err := s.issueAsset(ctx, fc, tc, ports.AssetSendOpts{
			BuildOpts: tc.opts,
			AssetGuid: assetGuid,
			Precision: req.Precision,
			To:        receiver,
			Amount:    unit,
		}); err != nil {
			return err
		}

		if err := fc.submit(); err != nil {
			return err
		}
		unsigned, err := s.builder.BuildAssetUpdate(ctx, ports.AssetUpdateOpts{
			BuildOpts:       tc.opts,
			AssetGuid:       assetGuid,
			Precision:       req.Precision,
			CapabilityFlags: &noCapabilities,
		})
		if err != nil {
			return unavailable(err)
		}
		txid, err := s.signAndBroadcast(ctx, fc, tc, unsigned)
		if err != nil {
			return err
		}
		if err := fc.waitConfirmations(ctx, txid, tc.explorer); err != nil {
			return err
		}
		return fc.confirm(assetGuid)
	}
}

func (s *accountService) updateAssetRunner(
	tc txContext, req *domain.UpdateAssetRequest,
) flowRunner {
	return s.assetUpdateRunner(tc, req.AssetGuid, func(precision uint8) ports.AssetUpdateOpts {
		return ports.AssetUpdateOpts{
			BuildOpts:       tc.opts,
			AssetGuid:       req.AssetGuid,
			Precision:       precision,
			Contract:        req.Contract,
			Description:     req.Description,
			CapabilityFlags: req.CapabilityFlags,
			NotaryAddress:   req.NotaryAddress,
			PayoutAddress:   req.PayoutAddress,
		}
	})
}

func (s *accountService) transferOwnershipRunner(
	tc txContext, req *domain.TransferOwnershipRequest,
) flowRunner {
	return s.assetUpdateRunner(tc, req.AssetGuid, func(precision uint8) ports.AssetUpdateOpts {
		return ports.AssetUpdateOpts{
			BuildOpts: tc.opts,
			AssetGuid: req.AssetGuid,
			Precision: precision,
			NewOwner:  req.NewOwner,
		}
	})
}

func (s *accountService) assetUpdateRunner(
	tc txContext, assetGuid string, makeOpts func(precision uint8) ports.AssetUpdateOpts,
) flowRunner {
	return func(ctx context.Context, fc *flowContext) error {
		if err := fc.submit(); err != nil {
			return err
		}
		asset, err := tc.explorer.GetAsset(ctx, assetGuid)
		if err != nil {
			return unavailable(err)
		}
		fc.setAssetGuid(assetGuid)

		unsigned, err := s.builder.BuildAssetUpdate(ctx, makeOpts(uint8(asset.Decimals)))
		if err != nil {
			return unavailable(err)
		}
		if _, err := s.signAndBroadcast(ctx, fc, tc, unsigned); err != nil {
			return err
		}
		fc.settle(tc.explorer)
		return nil
	}
}

func (s *accountService) signPSBTRunner(
	tc txContext, req *domain.SignPSBTRequest,
) flowRunner {
	return func(ctx context.Context, fc *flowContext) error {
		if err := fc.submit(); err != nil {
			return err
		}
		packet, err := req.Packet()
		if err != nil {
			return err
		}
		signed, count, err := tc.signer.Sign(ctx, packet)
		if err != nil {
			return err
		}
		if signed == nil || count <= 0 {
			return ErrNothingSigned
		}
		encoded, err := signed.B64Encode()
		if err != nil {
			return err
		}
		fc.setResult(encoded)

		if !req.Broadcast {
			return fc.confirm(encoded)
		}

		txid, err := broadcastPacket(ctx, tc.explorer, signed)
		if err != nil {
			return err
		}
		if err := fc.broadcasted(txid); err != nil {
			return err
		}
		s.addPendingTransaction(
			ctx, tc.account.ID, tc.network.ID,
			domain.NewPendingTransaction(txid, domain.KindSignPSBT, 0, 0),
		)
		fc.settle(tc.explorer)
		return nil
	}
}

func (s *accountService) web3SendRunner(
	session *Session, account *domain.Account, network domain.Network,
	req *domain.SendRequest,
) (flowRunner, error) {
	if s.web3 == nil {
		return nil, ErrWeb3Disabled
	}
	if account.IsTrezorWallet {
		return nil, domain.ErrAccountReadOnly
	}
	key, _, err := session.wallet.EVMKey(account.Index)
	if err != nil {
		return nil, err
	}
	value, err := mathutil.ToSatoshis(
		req.Amount.Truncate(mathutil.SysPrecision), mathutil.SysPrecision,
	)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, fc *flowContext) error {
		if err := fc.submit(); err != nil {
			return err
		}
		txHash, err := s.web3.SendNative(ctx, key, req.To, req.Amount)
		if err != nil {
			return err
		}
		if txHash == "" {
			return errors.New("web3 node returned an empty tx hash")
		}
		if err := fc.broadcasted(txHash); err != nil {
			return err
		}
		s.addPendingTransaction(
			ctx, account.ID, network.ID,
			domain.NewPendingTransaction(txHash, domain.KindSend, value, 0),
		)
		fc.settle(s.web3)
		return nil
	}, nil
}

// activateAsset broadcasts the assetNew tx of a new step and waits for its
// confirmations. It returns the guid of the new asset.
func (s *accountService) activateAsset(
	ctx context.Context, fc *flowContext, tc txContext, opts ports.AssetNewOpts,
) (string, error) {
	if err := fc.submit(); err != nil {
		return "", err
	}
	unsigned, err := s.builder.BuildAssetNew(ctx, opts)
	if err != nil {
		return "", unavailable(err)
	}
	if unsigned == nil || unsigned.AssetGuid == "" {
		return "", errors.New("tx builder returned no asset guid")
	}
	fc.setAssetGuid(unsigned.AssetGuid)

	txid, err := s.signAndBroadcast(ctx, fc, tc, unsigned)
	if err != nil {
		return "", err
	}
	if err := fc.waitConfirmations(ctx, txid, tc.explorer); err != nil {
		return "", err
	}
	return unsigned.AssetGuid, nil
}

// issueAsset broadcasts the assetSend tx of a new step and waits for its
// confirmations.
func (s *accountService) issueAsset(
	ctx context.Context, fc *flowContext, tc txContext, opts ports.AssetSendOpts,
) error {
	if err := fc.submit(); err != nil {
		return err
	}
	unsigned, err := s.builder.BuildAssetSend(ctx, opts)
	if err != nil {
		return unavailable(err)
	}
	txid, err := s.signAndBroadcast(ctx, fc, tc, unsigned)
	if err != nil {
		return err
	}
	return fc.waitConfirmations(ctx, txid, tc.explorer)
}
