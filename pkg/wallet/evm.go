package wallet

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
)

// EVMBasePath is m/44'/60'/0'/0, the parent of every EVM account key.
var EVMBasePath = DerivationPath{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
}

// EVMKey derives the secp256k1 key of the EVM account at the given index
// and returns it together with its checksummed address.
func (w *Wallet) EVMKey(index uint32) (*ecdsa.PrivateKey, string, error) {
	// Version bytes do not matter here, the key is never serialized.
	key, err := hdkeychain.NewMaster(w.seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, "", err
	}
	for _, step := range EVMBasePath.Append(index) {
		if key, err = key.Derive(step); err != nil {
			return nil, "", err
		}
	}

	privkey, err := key.ECPrivKey()
	if err != nil {
		return nil, "", err
	}
	ecdsaKey := privkey.ToECDSA()
	address := crypto.PubkeyToAddress(ecdsaKey.PublicKey).Hex()
	return ecdsaKey, address, nil
}
