package wallet

import (
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// Wallet holds the seed derived from a mnemonic and derives the extended
// keys of every account from it.
type Wallet struct {
	mnemonic []string
	seed     []byte
}

// NewWalletFromMnemonicOpts is the struct given to NewWalletFromMnemonic.
type NewWalletFromMnemonicOpts struct {
	Mnemonic []string
}

func (o NewWalletFromMnemonicOpts) validate() error {
	if len(o.Mnemonic) <= 0 {
		return ErrNullMnemonic
	}
	if !IsMnemonicValid(o.Mnemonic) {
		return ErrInvalidMnemonic
	}
	return nil
}

// NewWalletFromMnemonic restores a wallet from a bip39 mnemonic.
func NewWalletFromMnemonic(opts NewWalletFromMnemonicOpts) (*Wallet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	mnemonic := make([]string, len(opts.Mnemonic))
	copy(mnemonic, opts.Mnemonic)

	return &Wallet{
		mnemonic: mnemonic,
		seed:     seedFromMnemonic(mnemonic),
	}, nil
}

// Mnemonic returns a copy of the wallet mnemonic.
func (w *Wallet) Mnemonic() []string {
	mnemonic := make([]string, len(w.mnemonic))
	copy(mnemonic, w.mnemonic)
	return mnemonic
}

// AccountKeysOpts is the struct given to AccountKeys.
type AccountKeysOpts struct {
	Network string
	Account uint32
}

// AccountKeys returns the BIP84 extended public and private keys of the
// given account, serialized with the network version bytes.
func (w *Wallet) AccountKeys(opts AccountKeysOpts) (xpub, xprv string, err error) {
	params, err := NetworkParams(opts.Network)
	if err != nil {
		return "", "", err
	}
	path, err := AccountPath(opts.Network, opts.Account)
	if err != nil {
		return "", "", err
	}

	key, err := hdkeychain.NewMaster(w.seed, params)
	if err != nil {
		return "", "", err
	}
	for _, step := range path {
		if key, err = key.Derive(step); err != nil {
			return "", "", err
		}
	}

	pub, err := key.Neuter()
	if err != nil {
		return "", "", err
	}
	return pub.String(), key.String(), nil
}
