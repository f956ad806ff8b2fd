package softwaresigner_test

import (
	"context"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	softwaresigner "github.com/pali-wallet/palid/internal/infrastructure/signer/software"
	"github.com/pali-wallet/palid/pkg/wallet"
	"github.com/stretchr/testify/require"
)

const network = "testnet"

var testMnemonic = strings.Split(
	"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
	" ",
)

func accountKeys(t *testing.T, account uint32) (string, string) {
	w, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic: testMnemonic,
	})
	require.NoError(t, err)
	xpub, xprv, err := w.AccountKeys(wallet.AccountKeysOpts{
		Network: network, Account: account,
	})
	require.NoError(t, err)
	return xpub, xprv
}

// newPacket returns a packet spending one utxo for every given chain/index
// pair of the account.
func newPacket(t *testing.T, xpub string, keys [][2]uint32) *psbt.Packet {
	tx := wire.NewMsgTx(2)
	prevOuts := make([]*wire.TxOut, 0, len(keys))
	derivations := make([]*psbt.Bip32Derivation, 0, len(keys))

	for i, k := range keys {
		derived, err := wallet.DeriveAddress(wallet.DeriveAddressOpts{
			ExtendedKey: xpub, Network: network, Chain: k[0], Index: k[1],
		})
		require.NoError(t, err)

		hash := chainhash.DoubleHashH([]byte{byte(i)})
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&hash, uint32(i)), nil, nil))
		prevOuts = append(prevOuts, wire.NewTxOut(100000, derived.Script))

		path, err := wallet.AccountPath(network, 0)
		require.NoError(t, err)
		derivations = append(derivations, &psbt.Bip32Derivation{
			PubKey:    derived.PublicKey,
			Bip32Path: path.Append(k[0], k[1]),
		})
	}
	receiver, err := wallet.DeriveAddress(wallet.DeriveAddressOpts{
		ExtendedKey: xpub, Network: network, Index: 10,
	})
	require.NoError(t, err)
	tx.AddTxOut(wire.NewTxOut(int64(len(keys))*100000-1000, receiver.Script))

	packet, err := psbt.NewFromUnsignedTx(tx)
	require.NoError(t, err)
	for i := range packet.Inputs {
		packet.Inputs[i].WitnessUtxo = prevOuts[i]
		packet.Inputs[i].SighashType = txscript.SigHashAll
		packet.Inputs[i].Bip32Derivation = []*psbt.Bip32Derivation{derivations[i]}
	}
	return packet
}

func TestSign(t *testing.T) {
	xpub, xprv := accountKeys(t, 0)
	packet := newPacket(t, xpub, [][2]uint32{{0, 0}, {1, 3}, {0, 7}})

	signer, err := softwaresigner.NewSigner(network, xprv)
	require.NoError(t, err)

	signed, count, err := signer.Sign(context.Background(), packet)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	require.NoError(t, psbt.MaybeFinalizeAll(signed))
	tx, err := psbt.Extract(signed)
	require.NoError(t, err)

	prevOuts := make(map[wire.OutPoint]*wire.TxOut)
	for i, in := range signed.Inputs {
		prevOuts[tx.TxIn[i].PreviousOutPoint] = in.WitnessUtxo
	}
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i, in := range signed.Inputs {
		engine, err := txscript.NewEngine(
			in.WitnessUtxo.PkScript, tx, i, txscript.StandardVerifyFlags,
			nil, sigHashes, in.WitnessUtxo.Value, fetcher,
		)
		require.NoError(t, err)
		require.NoError(t, engine.Execute())
	}
}

func TestSignSkipsForeignInputs(t *testing.T) {
	xpub, _ := accountKeys(t, 0)
	_, otherXprv := accountKeys(t, 1)
	packet := newPacket(t, xpub, [][2]uint32{{0, 0}})

	signer, err := softwaresigner.NewSigner(network, otherXprv)
	require.NoError(t, err)

	signed, count, err := signer.Sign(context.Background(), packet)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, signed.Inputs[0].PartialSigs)
}

func TestNewSignerInvalidArgs(t *testing.T) {
	xpub, xprv := accountKeys(t, 0)

	_, err := softwaresigner.NewSigner("regtest", xprv)
	require.Error(t, err)

	_, err = softwaresigner.NewSigner(network, xpub)
	require.ErrorIs(t, err, wallet.ErrPrivateKeyRequired)

	signer, err := softwaresigner.NewSigner(network, xprv)
	require.NoError(t, err)
	_, _, err = signer.Sign(context.Background(), nil)
	require.ErrorIs(t, err, softwaresigner.ErrInvalidPacket)
}
