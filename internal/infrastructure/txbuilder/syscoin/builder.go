package syscoin

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/pali-wallet/palid/pkg/sptx"
	"github.com/pali-wallet/palid/pkg/sysaddress"
	"github.com/pali-wallet/palid/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTxVersion = 2
	sequenceFinal    = wire.MaxTxInSequenceNum
	sequenceRBF      = wire.MaxTxInSequenceNum - 2
)

type builder struct {
	explorers ports.ExplorerProvider
}

// NewTxBuilder returns a builder funding txs with the utxos returned by the
// indexer of the target network.
func NewTxBuilder(explorers ports.ExplorerProvider) ports.TxBuilder {
	return &builder{explorers}
}

// BuildSend creates a tx sending SYS or, if AssetGuid is defined, an
// allocation of the given SPT.
func (b *builder) BuildSend(
	ctx context.Context, opts ports.SendOpts,
) (*ports.UnsignedTx, error) {
	if opts.Amount == 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}
	w, err := b.newTxWallet(ctx, opts.BuildOpts)
	if err != nil {
		return nil, err
	}
	toScript, err := w.outputScript(opts.To)
	if err != nil {
		return nil, err
	}

	if opts.AssetGuid == "" {
		unsigned, err := w.fund(txTemplate{
			version: defaultTxVersion,
			outputs: []*wire.TxOut{wire.NewTxOut(int64(opts.Amount), toScript)},
		})
		if err != nil {
			return nil, err
		}
		unsigned.Value = opts.Amount
		return unsigned, nil
	}

	guid, err := sptx.ParseAssetGuid(opts.AssetGuid)
	if err != nil {
		return nil, err
	}
	assetInputs, assetTotal, err := selectAssetUtxos(
		w.utxos, opts.AssetGuid, opts.Amount,
	)
	if err != nil {
		return nil, err
	}

	allocation := sptx.AssetAllocation{}
	allocation.Add(guid, 0, opts.Amount)
	outputs := []*wire.TxOut{
		wire.NewTxOut(int64(sptx.AssetOutputDust), toScript),
	}
	if change := assetTotal - opts.Amount; change > 0 {
		allocation.Add(guid, 1, change)
		outputs = append(
			outputs, wire.NewTxOut(int64(sptx.AssetOutputDust), w.changeScript),
		)
	}
	payload, err := allocation.Serialize()
	if err != nil {
		return nil, err
	}

	unsigned, err := w.fund(txTemplate{
		version:     sptx.AllocationSend,
		inputs:      assetInputs,
		outputs:     outputs,
		makePayload: staticPayload(payload),
	})
	if err != nil {
		return nil, err
	}
	unsigned.Value = opts.Amount
	unsigned.AssetGuid = opts.AssetGuid
	return unsigned, nil
}

// BuildAssetNew creates the activation tx of a new SPT. The guid of the
// asset depends on the first input of the tx, and the owner output goes to
// the change address.
func (b *builder) BuildAssetNew(
	ctx context.Context, opts ports.AssetNewOpts,
) (*ports.UnsignedTx, error) {
	w, err := b.newTxWallet(ctx, opts.BuildOpts)
	if err != nil {
		return nil, err
	}

	asset := sptx.Asset{
		Precision:             opts.Precision,
		UpdateMask:            sptx.UpdateInit | sptx.UpdateCapability,
		Symbol:                opts.Symbol,
		MaxSupply:             opts.MaxSupply,
		UpdateCapabilityFlags: opts.CapabilityFlags,
	}
	if pubData := sptx.EncodePubData(opts.Description); pubData != "" {
		asset.PubData = pubData
		asset.UpdateMask |= sptx.UpdateData
	}
	if opts.Contract != "" {
		if !common.IsHexAddress(opts.Contract) {
			return nil, fmt.Errorf("invalid contract address %s", opts.Contract)
		}
		asset.Contract = common.HexToAddress(opts.Contract).Bytes()
		asset.UpdateMask |= sptx.UpdateContract
	}
	if err := w.setKeyIDs(&asset, opts.NotaryAddress, opts.PayoutAddress); err != nil {
		return nil, err
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	// Symbols are stored base64 encoded on chain.
	asset.Symbol = base64.StdEncoding.EncodeToString([]byte(opts.Symbol))

	var assetGuid uint32
	makePayload := func(inputs []*wire.TxIn) ([]byte, error) {
		// Before coin selection the payload is sized with the widest guid.
		assetGuid = math.MaxUint32
		if len(inputs) > 0 {
			assetGuid = sptx.GenerateAssetGuid(inputs[0].PreviousOutPoint)
		}
		a := asset
		a.Allocation = sptx.AssetAllocation{}
		a.Allocation.Add(uint64(assetGuid), 0, 0)
		return a.Serialize()
	}

	unsigned, err := w.fund(txTemplate{
		version: sptx.AssetActivate,
		outputs: []*wire.TxOut{
			wire.NewTxOut(int64(sptx.AssetOutputDust), w.changeScript),
		},
		dataValue:   sptx.AssetActivationFee,
		makePayload: makePayload,
	})
	if err != nil {
		return nil, err
	}
	unsigned.Value = opts.MaxSupply
	unsigned.AssetGuid = strconv.FormatUint(uint64(assetGuid), 10)
	return unsigned, nil
}

// BuildAssetSend creates the tx issuing new supply of an owned SPT. The
// owner output is spent and re-created at the change address.
func (b *builder) BuildAssetSend(
	ctx context.Context, opts ports.AssetSendOpts,
) (*ports.UnsignedTx, error) {
	if opts.Amount == 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}
	guid, err := sptx.ParseAssetGuid(opts.AssetGuid)
	if err != nil {
		return nil, err
	}
	w, err := b.newTxWallet(ctx, opts.BuildOpts)
	if err != nil {
		return nil, err
	}
	baseGuid := strconv.FormatUint(uint64(sptx.BaseAssetGuid(guid)), 10)
	owner, err := findOwnerUtxo(w.utxos, baseGuid)
	if err != nil {
		return nil, err
	}
	toScript, err := w.outputScript(opts.To)
	if err != nil {
		return nil, err
	}

	asset := sptx.Asset{Precision: opts.Precision}
	asset.Allocation.Add(guid, 0, opts.Amount)
	asset.Allocation.Add(uint64(sptx.BaseAssetGuid(guid)), 1, 0)
	payload, err := asset.Serialize()
	if err != nil {
		return nil, err
	}

	unsigned, err := w.fund(txTemplate{
		version: sptx.AssetSend,
		inputs:  []explorer.Utxo{owner},
		outputs: []*wire.TxOut{
			wire.NewTxOut(int64(sptx.AssetOutputDust), toScript),
			wire.NewTxOut(int64(sptx.AssetOutputDust), w.changeScript),
		},
		makePayload: staticPayload(payload),
	})
	if err != nil {
		return nil, err
	}
	unsigned.Value = opts.Amount
	unsigned.AssetGuid = opts.AssetGuid
	return unsigned, nil
}

// BuildAssetUpdate creates the tx updating the fields of an owned SPT, or
// moving its owner output to NewOwner.
func (b *builder) BuildAssetUpdate(
	ctx context.Context, opts ports.AssetUpdateOpts,
) (*ports.UnsignedTx, error) {
	guid, err := sptx.ParseAssetGuid(opts.AssetGuid)
	if err != nil {
		return nil, err
	}
	w, err := b.newTxWallet(ctx, opts.BuildOpts)
	if err != nil {
		return nil, err
	}
	baseGuid := sptx.BaseAssetGuid(guid)
	owner, err := findOwnerUtxo(w.utxos, strconv.FormatUint(uint64(baseGuid), 10))
	if err != nil {
		return nil, err
	}

	ownerScript := w.changeScript
	if opts.NewOwner != "" {
		if ownerScript, err = w.outputScript(opts.NewOwner); err != nil {
			return nil, err
		}
	}

	asset := sptx.Asset{Precision: opts.Precision}
	asset.Allocation.Add(uint64(baseGuid), 0, 0)
	if opts.Description != "" {
		asset.PubData = sptx.EncodePubData(opts.Description)
		asset.UpdateMask |= sptx.UpdateData
	}
	if opts.Contract != "" {
		if !common.IsHexAddress(opts.Contract) {
			return nil, fmt.Errorf("invalid contract address %s", opts.Contract)
		}
		asset.Contract = common.HexToAddress(opts.Contract).Bytes()
		asset.UpdateMask |= sptx.UpdateContract
	}
	if opts.CapabilityFlags != nil {
		asset.UpdateCapabilityFlags = *opts.CapabilityFlags
		asset.UpdateMask |= sptx.UpdateCapability
	}
	if err := w.setKeyIDs(&asset, opts.NotaryAddress, opts.PayoutAddress); err != nil {
		return nil, err
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	payload, err := asset.Serialize()
	if err != nil {
		return nil, err
	}

	unsigned, err := w.fund(txTemplate{
		version: sptx.AssetUpdate,
		inputs:  []explorer.Utxo{owner},
		outputs: []*wire.TxOut{
			wire.NewTxOut(int64(sptx.AssetOutputDust), ownerScript),
		},
		makePayload: staticPayload(payload),
	})
	if err != nil {
		return nil, err
	}
	unsigned.AssetGuid = opts.AssetGuid
	return unsigned, nil
}

func (b *builder) OwnedAssets(
	ctx context.Context, network, xpub string,
) ([]string, error) {
	explorerSvc, err := b.explorers.Explorer(network)
	if err != nil {
		return nil, err
	}
	utxos, err := explorerSvc.GetUtxos(ctx, xpub, false)
	if err != nil {
		return nil, err
	}

	guids := make([]string, 0)
	seen := make(map[string]struct{})
	for _, u := range utxos {
		if !isOwnerUtxo(u) {
			continue
		}
		if _, ok := seen[u.AssetInfo.AssetGuid]; ok {
			continue
		}
		seen[u.AssetInfo.AssetGuid] = struct{}{}
		guids = append(guids, u.AssetInfo.AssetGuid)
	}
	sort.Strings(guids)
	return guids, nil
}

// txWallet is the state of the account funding a tx.
type txWallet struct {
	opts         ports.BuildOpts
	params       *chaincfg.Params
	explorer     explorer.Service
	utxos        []explorer.Utxo
	changeScript []byte
	feeRate      uint64
}

func (b *builder) newTxWallet(
	ctx context.Context, opts ports.BuildOpts,
) (*txWallet, error) {
	params, err := wallet.NetworkParams(opts.Network)
	if err != nil {
		return nil, err
	}
	if !wallet.IsExtendedPublicKey(opts.Xpub) {
		return nil, fmt.Errorf("invalid account xpub")
	}
	explorerSvc, err := b.explorers.Explorer(opts.Network)
	if err != nil {
		return nil, err
	}

	w := &txWallet{opts: opts, params: params, explorer: explorerSvc}
	if w.changeScript, err = w.outputScript(opts.ChangeAddress); err != nil {
		return nil, fmt.Errorf("invalid change address: %w", err)
	}
	if w.feeRate, err = feeRate(ctx, explorerSvc, opts.FeeRate); err != nil {
		return nil, err
	}
	if w.utxos, err = explorerSvc.GetUtxos(ctx, opts.Xpub, false); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *txWallet) outputScript(address string) ([]byte, error) {
	if !sysaddress.IsValidSYSAddress(address, w.opts.Network) {
		return nil, fmt.Errorf("invalid address %s", address)
	}
	addr, err := btcutil.DecodeAddress(address, w.params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

// keyID returns the witness program of a P2WPKH address, used to identify
// notary and aux fee payout keys.
func (w *txWallet) keyID(address string) ([]byte, error) {
	if !sysaddress.IsValidSYSAddress(address, w.opts.Network) {
		return nil, fmt.Errorf("invalid address %s", address)
	}
	addr, err := btcutil.DecodeAddress(address, w.params)
	if err != nil {
		return nil, err
	}
	return addr.ScriptAddress(), nil
}

func (w *txWallet) setKeyIDs(asset *sptx.Asset, notary, payout string) error {
	if notary != "" {
		keyID, err := w.keyID(notary)
		if err != nil {
			return fmt.Errorf("invalid notary address: %w", err)
		}
		asset.NotaryKeyID = keyID
		asset.UpdateMask |= sptx.UpdateNotaryKey
	}
	if payout != "" {
		keyID, err := w.keyID(payout)
		if err != nil {
			return fmt.Errorf("invalid payout address: %w", err)
		}
		asset.AuxFeeDetails = sptx.AuxFeeDetails{AuxFeeKeyID: keyID}
		asset.UpdateMask |= sptx.UpdateAuxFee
	}
	return nil
}

// txTemplate describes a tx before funding: the inputs it must spend, its
// outputs and the payload of its OP_RETURN output, if any.
type txTemplate struct {
	version     int32
	inputs      []explorer.Utxo
	outputs     []*wire.TxOut
	dataValue   uint64
	makePayload func(inputs []*wire.TxIn) ([]byte, error)
}

func staticPayload(payload []byte) func([]*wire.TxIn) ([]byte, error) {
	return func([]*wire.TxIn) ([]byte, error) {
		return payload, nil
	}
}

// fund selects the SYS utxos paying for outputs and fees of the template
// and returns the resulting PSBT. Change below dust is left to fees.
func (w *txWallet) fund(tmpl txTemplate) (*ports.UnsignedTx, error) {
	payloadLen := 0
	if tmpl.makePayload != nil {
		payload, err := tmpl.makePayload(nil)
		if err != nil {
			return nil, err
		}
		payloadLen = len(payload)
	}

	target := tmpl.dataValue
	for _, out := range tmpl.outputs {
		target += uint64(out.Value)
	}
	forcedValue := uint64(0)
	for _, u := range tmpl.inputs {
		forcedValue += u.Value.Uint64()
	}

	candidates := sysUtxos(w.utxos)
	var (
		selected      []explorer.Utxo
		selectedValue uint64
		fee           uint64
	)
	numInputs := len(tmpl.inputs)
	for {
		numOutputs := len(tmpl.outputs) + 1
		fee = estimateVSize(numInputs, numOutputs, payloadLen) * w.feeRate

		need := uint64(0)
		if target+fee > forcedValue {
			need = target + fee - forcedValue
		}
		var err error
		selected, selectedValue, err = selectUtxos(candidates, need)
		if err != nil {
			return nil, err
		}
		if len(tmpl.inputs)+len(selected) <= numInputs {
			break
		}
		numInputs = len(tmpl.inputs) + len(selected)
	}

	inputs := append(append([]explorer.Utxo{}, tmpl.inputs...), selected...)
	if len(inputs) <= 0 {
		return nil, ports.ErrInsufficientFunds
	}
	tx := wire.NewMsgTx(tmpl.version)
	sequence := uint32(sequenceFinal)
	if w.opts.RBF {
		sequence = sequenceRBF
	}
	for _, u := range inputs {
		hash, err := chainhash.NewHashFromStr(u.Txid)
		if err != nil {
			return nil, fmt.Errorf("invalid utxo %s: %w", u.Key(), err)
		}
		in := wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil)
		in.Sequence = sequence
		tx.AddTxIn(in)
	}
	for _, out := range tmpl.outputs {
		tx.AddTxOut(out)
	}
	if tmpl.makePayload != nil {
		payload, err := tmpl.makePayload(tx.TxIn)
		if err != nil {
			return nil, err
		}
		script, err := sptx.DataScript(payload)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(tmpl.dataValue), script))
	}

	change := forcedValue + selectedValue - target - fee
	if change >= sptx.AssetOutputDust {
		tx.AddTxOut(wire.NewTxOut(int64(change), w.changeScript))
	} else {
		fee += change
	}

	packet, paths, err := w.newPacket(tx, inputs)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"version": tmpl.version,
		"inputs":  len(inputs),
		"outputs": len(tx.TxOut),
		"fee":     fee,
	}).Debug("tx funded")

	return &ports.UnsignedTx{
		Packet: packet,
		Paths:  paths,
		Fee:    fee,
	}, nil
}

// newPacket wraps the tx in a PSBT whose inputs carry the prevout and the
// bip32 derivation info required by signers.
func (w *txWallet) newPacket(
	tx *wire.MsgTx, inputs []explorer.Utxo,
) (*psbt.Packet, []string, error) {
	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, nil, err
	}

	paths := make([]string, 0, len(inputs))
	for i, u := range inputs {
		fullPath, err := wallet.ParseDerivationPath(u.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("utxo %s: %w", u.Key(), err)
		}
		if len(fullPath) < 2 {
			return nil, nil, fmt.Errorf("utxo %s: path too short", u.Key())
		}
		derived, err := wallet.DeriveAddress(wallet.DeriveAddressOpts{
			ExtendedKey: w.opts.Xpub,
			Network:     w.opts.Network,
			Chain:       fullPath[len(fullPath)-2],
			Index:       fullPath[len(fullPath)-1],
		})
		if err != nil {
			return nil, nil, fmt.Errorf("utxo %s: %w", u.Key(), err)
		}

		packet.Inputs[i].WitnessUtxo = wire.NewTxOut(int64(u.Value), derived.Script)
		packet.Inputs[i].SighashType = txscript.SigHashAll
		packet.Inputs[i].Bip32Derivation = []*psbt.Bip32Derivation{{
			PubKey:    derived.PublicKey,
			Bip32Path: []uint32(fullPath),
		}}
		paths = append(paths, u.Path)
	}
	return packet, paths, nil
}
