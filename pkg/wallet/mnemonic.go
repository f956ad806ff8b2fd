package wallet

import (
	"strings"

	"github.com/tyler-smith/go-bip39"
)

type NewMnemonicOpts struct {
	EntropySize int
}

func (o NewMnemonicOpts) validate() error {
	if o.EntropySize > 0 {
		if o.EntropySize < 128 || o.EntropySize > 256 || o.EntropySize%32 != 0 {
			return ErrInvalidEntropySize
		}
	}
	if o.EntropySize < 0 {
		return ErrInvalidEntropySize
	}
	return nil
}

// NewMnemonic returns a new mnemonic as a list of words
func NewMnemonic(opts NewMnemonicOpts) ([]string, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.EntropySize == 0 {
		opts.EntropySize = 128
	}

	entropy, err := bip39.NewEntropy(opts.EntropySize)
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return strings.Split(mnemonic, " "), nil
}

// IsMnemonicValid checks words count and checksum of the given mnemonic.
func IsMnemonicValid(mnemonic []string) bool {
	if len(mnemonic) <= 0 {
		return false
	}
	return bip39.IsMnemonicValid(strings.Join(mnemonic, " "))
}

func seedFromMnemonic(mnemonic []string) []byte {
	return bip39.NewSeed(strings.Join(mnemonic, " "), "")
}
