package softwaresigner

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

// ErrInvalidPacket is returned if an input to sign misses its prevout.
var ErrInvalidPacket = errors.New("invalid psbt")

type signer struct {
	network string
	xprv    string
}

// NewSigner returns a signer for the P2WPKH inputs derived from the given
// account extended private key.
func NewSigner(network, xprv string) (ports.Signer, error) {
	if _, err := wallet.NetworkParams(network); err != nil {
		return nil, err
	}
	if len(xprv) <= 0 || wallet.IsExtendedPublicKey(xprv) {
		return nil, wallet.ErrPrivateKeyRequired
	}
	return &signer{network, xprv}, nil
}

// Sign adds a partial signature to every input whose bip32 derivation
// matches a key of the account. Inputs of other keys are left untouched.
func (s *signer) Sign(
	ctx context.Context, packet *psbt.Packet,
) (*psbt.Packet, int, error) {
	if packet == nil || packet.UnsignedTx == nil {
		return nil, 0, ErrInvalidPacket
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	prevOuts := make(map[wire.OutPoint]*wire.TxOut)
	for i, in := range packet.Inputs {
		if in.WitnessUtxo == nil {
			continue
		}
		prevOuts[packet.UnsignedTx.TxIn[i].PreviousOutPoint] = in.WitnessUtxo
	}
	prevOutFetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, prevOutFetcher)

	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return nil, 0, err
	}

	count := 0
	for i, in := range packet.Inputs {
		if len(in.FinalScriptWitness) > 0 {
			continue
		}
		derivation := s.ownDerivation(in.Bip32Derivation)
		if derivation == nil {
			continue
		}
		if in.WitnessUtxo == nil {
			return nil, 0, fmt.Errorf("%w: input %d misses witness utxo", ErrInvalidPacket, i)
		}

		path := derivation.Bip32Path
		key, err := wallet.DerivePrivateKey(
			s.xprv, wallet.DerivationPath(path[len(path)-2:]),
		)
		if err != nil {
			return nil, 0, err
		}
		pubkey := key.PubKey().SerializeCompressed()
		if !bytes.Equal(pubkey, derivation.PubKey) {
			continue
		}

		sighashType := in.SighashType
		if sighashType == 0 {
			sighashType = txscript.SigHashAll
		}
		sig, err := txscript.RawTxInWitnessSignature(
			packet.UnsignedTx, sigHashes, i, in.WitnessUtxo.Value,
			in.WitnessUtxo.PkScript, sighashType, key,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to sign input %d: %w", i, err)
		}
		outcome, err := updater.Sign(i, sig, pubkey, nil, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to add signature to input %d: %w", i, err)
		}
		if outcome != psbt.SignSuccesful {
			return nil, 0, fmt.Errorf("%w: input %d cannot be signed", ErrInvalidPacket, i)
		}
		count++
	}

	log.Debugf("signed %d/%d inputs", count, len(packet.Inputs))
	return updater.Upsbt, count, nil
}

// ownDerivation returns the first derivation whose path ends with a
// chain/index pair of a BIP84 account.
func (s *signer) ownDerivation(derivations []*psbt.Bip32Derivation) *psbt.Bip32Derivation {
	for _, d := range derivations {
		path := d.Bip32Path
		if len(path) < 2 {
			continue
		}
		chain := path[len(path)-2]
		if chain != wallet.ExternalChain && chain != wallet.InternalChain {
			continue
		}
		return d
	}
	return nil
}
