package wallet

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/txscript"
)

// DeriveAddressOpts is the struct given to DeriveAddress.
type DeriveAddressOpts struct {
	ExtendedKey string
	Network     string
	Chain       uint32
	Index       uint32
}

func (o DeriveAddressOpts) validate() error {
	if len(o.ExtendedKey) <= 0 {
		return ErrNullExtendedKey
	}
	if _, err := NetworkParams(o.Network); err != nil {
		return err
	}
	if o.Chain != ExternalChain && o.Chain != InternalChain {
		return ErrInvalidDerivationPath
	}
	return nil
}

// DerivedAddress is a P2WPKH address with its relative path and script.
type DerivedAddress struct {
	Address   string
	PublicKey []byte
	Script    []byte
	Path      DerivationPath
}

// DeriveAddress returns the P2WPKH address at chain/index of an account
// extended key, either public or private.
func DeriveAddress(opts DeriveAddressOpts) (*DerivedAddress, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	params, _ := NetworkParams(opts.Network)

	key, err := deriveChild(opts.ExtendedKey, DerivationPath{opts.Chain, opts.Index})
	if err != nil {
		return nil, err
	}
	pubkey, err := key.ECPubKey()
	if err != nil {
		return nil, err
	}

	pubkeyBytes := pubkey.SerializeCompressed()
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pubkeyBytes), params,
	)
	if err != nil {
		return nil, err
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, err
	}

	return &DerivedAddress{
		Address:   addr.EncodeAddress(),
		PublicKey: pubkeyBytes,
		Script:    script,
		Path:      DerivationPath{opts.Chain, opts.Index},
	}, nil
}

// DerivePrivateKey returns the private key found at the given path relative
// to an account extended private key.
func DerivePrivateKey(xprv string, path DerivationPath) (*btcec.PrivateKey, error) {
	key, err := deriveChild(xprv, path)
	if err != nil {
		return nil, err
	}
	if !key.IsPrivate() {
		return nil, ErrPrivateKeyRequired
	}
	return key.ECPrivKey()
}

// IsExtendedPublicKey returns whether the string is a valid extended public
// key of any version.
func IsExtendedPublicKey(key string) bool {
	k, err := hdkeychain.NewKeyFromString(key)
	if err != nil {
		return false
	}
	return !k.IsPrivate()
}

func deriveChild(extendedKey string, path DerivationPath) (*hdkeychain.ExtendedKey, error) {
	if len(extendedKey) <= 0 {
		return nil, ErrNullExtendedKey
	}
	key, err := hdkeychain.NewKeyFromString(extendedKey)
	if err != nil {
		return nil, err
	}
	for _, step := range path {
		if key, err = key.Derive(step); err != nil {
			return nil, err
		}
	}
	return key, nil
}
