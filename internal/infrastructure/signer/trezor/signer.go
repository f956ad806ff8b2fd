package trezorsigner

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/httputil"
	"github.com/pali-wallet/palid/pkg/sysaddress"
	"github.com/pali-wallet/palid/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

var coins = map[string]string{
	sysaddress.MainNet: "sys",
	sysaddress.TestNet: "tsys",
}

type signer struct {
	bridgeURL string
	coin      string
	params    *chaincfg.Params
	xpub      string
	path      wallet.DerivationPath
}

// NewSigner returns a signer that delegates to the device reachable through
// the bridge at bridgeURL. The bridge exposes the TrezorConnect api.
func NewSigner(bridgeURL, network, xpub, path string) (ports.Signer, error) {
	if bridgeURL == "" {
		return nil, fmt.Errorf("missing trezor bridge url")
	}
	params, err := wallet.NetworkParams(network)
	if err != nil {
		return nil, err
	}
	if !wallet.IsExtendedPublicKey(xpub) {
		return nil, fmt.Errorf("invalid account xpub")
	}
	accountPath, err := wallet.ParseDerivationPath(path)
	if err != nil {
		return nil, err
	}

	return &signer{
		bridgeURL: strings.TrimSuffix(bridgeURL, "/"),
		coin:      coins[network],
		params:    params,
		xpub:      xpub,
		path:      accountPath,
	}, nil
}

// Sign sends the tx descriptor to the device and finalizes every input with
// the witness of the signed tx returned.
func (s *signer) Sign(
	ctx context.Context, packet *psbt.Packet,
) (*psbt.Packet, int, error) {
	if packet == nil || packet.UnsignedTx == nil {
		return nil, 0, fmt.Errorf("invalid psbt")
	}
	s.fillAccountPaths(packet)

	req, err := newSignTxRequest(s.coin, s.params, packet)
	if err != nil {
		return nil, 0, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, err
	}

	status, resBody, err := httputil.NewHTTPRequest(
		ctx, http.MethodPost, s.bridgeURL+"/"+methodSignTransaction, string(body),
		map[string]string{"Content-Type": "application/json"},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ports.ErrHardwareSigner, err)
	}
	if status != http.StatusOK {
		return nil, 0, fmt.Errorf(
			"%w: bridge returned status %d", ports.ErrHardwareSigner, status,
		)
	}

	res := response{}
	if err := json.Unmarshal([]byte(resBody), &res); err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ports.ErrHardwareSigner, err)
	}
	if !res.Success || res.Payload.Error != "" {
		msg := res.Payload.Error
		if msg == "" {
			msg = "signing rejected"
		}
		log.WithField("error", msg).Warn("trezor signing failed")
		return nil, 0, fmt.Errorf("%w: %s", ports.ErrHardwareSigner, msg)
	}

	count, err := finalizeWithSignedTx(packet, res.Payload.SerializedTx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ports.ErrHardwareSigner, err)
	}
	return packet, count, nil
}

// fillAccountPaths prepends the account path to derivations holding only
// the chain/index pair.
func (s *signer) fillAccountPaths(packet *psbt.Packet) {
	for _, in := range packet.Inputs {
		for _, d := range in.Bip32Derivation {
			if len(d.Bip32Path) == 2 {
				d.Bip32Path = s.path.Append(d.Bip32Path...)
			}
		}
	}
}

func finalizeWithSignedTx(packet *psbt.Packet, txHex string) (int, error) {
	buf, err := hex.DecodeString(txHex)
	if err != nil {
		return 0, fmt.Errorf("invalid signed tx: %w", err)
	}
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(buf)); err != nil {
		return 0, fmt.Errorf("invalid signed tx: %w", err)
	}
	if tx.TxHash() != packet.UnsignedTx.TxHash() {
		return 0, fmt.Errorf("signed tx does not match the unsigned one")
	}

	count := 0
	for i, in := range tx.TxIn {
		if len(in.Witness) <= 0 {
			continue
		}
		witness, err := serializeWitness(in.Witness)
		if err != nil {
			return 0, err
		}
		packet.Inputs[i].FinalScriptWitness = witness
		packet.Inputs[i].PartialSigs = nil
		packet.Inputs[i].SighashType = 0
		packet.Inputs[i].Bip32Derivation = nil
		count++
	}
	return count, nil
}

func serializeWitness(witness wire.TxWitness) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, uint64(len(witness))); err != nil {
		return nil, err
	}
	for _, item := range witness {
		if err := wire.WriteVarBytes(&buf, 0, item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
