package trezorsigner

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/pali-wallet/palid/pkg/sptx"
)

const (
	scriptSpendWitness = "SPENDWITNESS"
	scriptPayToAddress = "PAYTOADDRESS"
	scriptPayToReturn  = "PAYTOOPRETURN"

	methodSignTransaction = "signTransaction"
)

type input struct {
	AddressN  []uint32 `json:"address_n"`
	PrevHash  string   `json:"prev_hash"`
	PrevIndex uint32   `json:"prev_index"`
	Amount    string   `json:"amount"`
	Sequence  uint32   `json:"sequence"`
	Script    string   `json:"script_type"`
}

type output struct {
	Address      string `json:"address,omitempty"`
	Amount       string `json:"amount"`
	OpReturnData string `json:"op_return_data,omitempty"`
	Script       string `json:"script_type"`
}

type signTxParams struct {
	Coin     string   `json:"coin"`
	Inputs   []input  `json:"inputs"`
	Outputs  []output `json:"outputs"`
	Version  int32    `json:"version"`
	LockTime uint32   `json:"lock_time"`
	Push     bool     `json:"push"`
}

type request struct {
	Method string       `json:"method"`
	Params signTxParams `json:"params"`
}

type response struct {
	Success bool `json:"success"`
	Payload struct {
		Error        string   `json:"error"`
		Signatures   []string `json:"signatures"`
		SerializedTx string   `json:"serializedTx"`
	} `json:"payload"`
}

// newSignTxRequest builds the descriptor of the tx in the packet. Every input
// must carry the full derivation path of its key.
func newSignTxRequest(
	coin string, params *chaincfg.Params, packet *psbt.Packet,
) (*request, error) {
	tx := packet.UnsignedTx

	inputs := make([]input, 0, len(tx.TxIn))
	for i, in := range tx.TxIn {
		pin := packet.Inputs[i]
		if pin.WitnessUtxo == nil {
			return nil, fmt.Errorf("input %d misses witness utxo", i)
		}
		if len(pin.Bip32Derivation) <= 0 {
			return nil, fmt.Errorf("input %d misses derivation path", i)
		}
		inputs = append(inputs, input{
			AddressN:  pin.Bip32Derivation[0].Bip32Path,
			PrevHash:  in.PreviousOutPoint.Hash.String(),
			PrevIndex: in.PreviousOutPoint.Index,
			Amount:    strconv.FormatInt(pin.WitnessUtxo.Value, 10),
			Sequence:  in.Sequence,
			Script:    scriptSpendWitness,
		})
	}

	outputs := make([]output, 0, len(tx.TxOut))
	for i, out := range tx.TxOut {
		amount := strconv.FormatInt(out.Value, 10)
		if payload, err := sptx.PayloadFromScript(out.PkScript); err == nil {
			outputs = append(outputs, output{
				Amount:       amount,
				OpReturnData: hex.EncodeToString(payload),
				Script:       scriptPayToReturn,
			})
			continue
		}

		_, addrs, _, err := txscript.ExtractPkScriptAddrs(out.PkScript, params)
		if err != nil || len(addrs) != 1 {
			return nil, fmt.Errorf("output %d: unsupported script", i)
		}
		outputs = append(outputs, output{
			Address: addrs[0].EncodeAddress(),
			Amount:  amount,
			Script:  scriptPayToAddress,
		})
	}

	return &request{
		Method: methodSignTransaction,
		Params: signTxParams{
			Coin:     coin,
			Inputs:   inputs,
			Outputs:  outputs,
			Version:  tx.Version,
			LockTime: tx.LockTime,
		},
	}, nil
}
