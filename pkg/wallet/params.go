package wallet

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/pali-wallet/palid/pkg/sysaddress"
)

var (
	// SyscoinMainNetParams are the chain parameters of the Syscoin main network.
	// Extended keys use the SLIP-132 zpub/zprv version bytes.
	SyscoinMainNetParams = chaincfg.Params{
		Name:                    "syscoin-main",
		Net:                     wire.BitcoinNet(0xcee2caff),
		DefaultPort:             "8369",
		Bech32HRPSegwit:         sysaddress.MainNetHRP,
		PubKeyHashAddrID:        0x3f,
		ScriptHashAddrID:        0x05,
		PrivateKeyID:            0x80,
		WitnessPubKeyHashAddrID: 0x06,
		WitnessScriptHashAddrID: 0x0a,
		HDPrivateKeyID:          [4]byte{0x04, 0xb2, 0x43, 0x0c},
		HDPublicKeyID:           [4]byte{0x04, 0xb2, 0x47, 0x46},
		HDCoinType:              57,
	}

	// SyscoinTestNetParams are the chain parameters of the Syscoin test
	// network. Extended keys use the SLIP-132 vpub/vprv version bytes.
	SyscoinTestNetParams = chaincfg.Params{
		Name:                    "syscoin-testnet",
		Net:                     wire.BitcoinNet(0xcee2cafe),
		DefaultPort:             "18369",
		Bech32HRPSegwit:         sysaddress.TestNetHRP,
		PubKeyHashAddrID:        0x41,
		ScriptHashAddrID:        0xc4,
		PrivateKeyID:            0xef,
		WitnessPubKeyHashAddrID: 0x03,
		WitnessScriptHashAddrID: 0x28,
		HDPrivateKeyID:          [4]byte{0x04, 0x5f, 0x18, 0xbc},
		HDPublicKeyID:           [4]byte{0x04, 0x5f, 0x1c, 0xf6},
		HDCoinType:              1,
	}
)

func init() {
	// Neutering an extended key looks up the public version bytes among the
	// registered networks.
	for _, params := range []*chaincfg.Params{
		&SyscoinMainNetParams, &SyscoinTestNetParams,
	} {
		if err := chaincfg.Register(params); err != nil &&
			err != chaincfg.ErrDuplicateNet {
			panic(err)
		}
	}
}

// NetworkParams returns the chain parameters for the given network tag.
func NetworkParams(network string) (*chaincfg.Params, error) {
	switch network {
	case sysaddress.MainNet:
		return &SyscoinMainNetParams, nil
	case sysaddress.TestNet:
		return &SyscoinTestNetParams, nil
	default:
		return nil, ErrInvalidNetwork
	}
}
