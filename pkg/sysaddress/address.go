package sysaddress

import (
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// MainNet is the tag of the Syscoin main network.
	MainNet = "main"
	// TestNet is the tag of the Syscoin test network.
	TestNet = "testnet"

	// MainNetHRP is the human readable part of main network segwit addresses.
	MainNetHRP = "sys"
	// TestNetHRP is the human readable part of test network segwit addresses.
	TestNetHRP = "tsys"
)

var (
	// ErrUnknownNetwork is returned if the network tag is neither main nor
	// testnet.
	ErrUnknownNetwork = errors.New("unknown syscoin network")
)

// HRP returns the bech32 human readable part for the given network tag.
func HRP(network string) (string, error) {
	switch network {
	case MainNet:
		return MainNetHRP, nil
	case TestNet:
		return TestNetHRP, nil
	default:
		return "", ErrUnknownNetwork
	}
}

// IsValidSYSAddress returns whether the given string is a bech32 segwit
// address of the given network. The address is decoded, its prefix checked
// against the network and finally re-encoded: the result must match the
// lower-cased input. Mixed case strings never decode.
func IsValidSYSAddress(address, network string) bool {
	expectedHRP, err := HRP(network)
	if err != nil {
		return false
	}

	hrp, data, version, err := bech32.DecodeGeneric(address)
	if err != nil || version != bech32.Version0 {
		return false
	}
	if hrp != expectedHRP {
		return false
	}
	if !isWitnessProgram(data) {
		return false
	}

	encoded, err := bech32.Encode(hrp, data)
	if err != nil {
		return false
	}
	return encoded == strings.ToLower(address)
}

// Network returns the tag of the network the address belongs to, if any.
func Network(address string) (string, bool) {
	for _, net := range []string{MainNet, TestNet} {
		if IsValidSYSAddress(address, net) {
			return net, true
		}
	}
	return "", false
}

// IsValidEVMAddress returns whether the given string is a 0x prefixed
// 20-bytes hex address.
func IsValidEVMAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return false
	}
	return common.IsHexAddress(address)
}

func isWitnessProgram(data []byte) bool {
	if len(data) < 1 {
		return false
	}
	witnessVersion := data[0]
	if witnessVersion > 16 {
		return false
	}
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return false
	}
	return len(program) >= 2 && len(program) <= 40
}
