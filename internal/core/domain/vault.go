package domain

import (
	"bytes"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pali-wallet/palid/pkg/wallet"
)

// Vault holds the encrypted mnemonic of the HD wallet along with the
// wallet level settings.
type Vault struct {
	EncryptedMnemonic string
	PassphraseHash    []byte
	ActiveAccountID   int
	ActiveNetwork     string
	NextAccountID     int
	NextAccountIndex  uint32
}

// NewVault encrypts the provided mnemonic with the passhrase and returns a new
// Vault initialized with the encrypted mnemonic and the hash of the passphrase.
func NewVault(mnemonic []string, passphrase, network string) (*Vault, error) {
	if len(mnemonic) <= 0 || len(passphrase) <= 0 {
		return nil, ErrNullMnemonicOrPassphrase
	}
	if !wallet.IsMnemonicValid(mnemonic) {
		return nil, wallet.ErrInvalidMnemonic
	}

	encryptedMnemonic, err := wallet.Encrypt(wallet.EncryptOpts{
		PlainText:  strings.Join(mnemonic, " "),
		Passphrase: passphrase,
	})
	if err != nil {
		return nil, err
	}

	return &Vault{
		EncryptedMnemonic: encryptedMnemonic,
		PassphraseHash:    btcutil.Hash160([]byte(passphrase)),
		ActiveNetwork:     network,
	}, nil
}

// IsInitialized returnes whether the Vault has been inizitialized
func (v *Vault) IsInitialized() bool {
	return len(v.EncryptedMnemonic) > 0
}

// IsValidPassphrase returns whether the passphrase matches the one used to
// encrypt the mnemonic.
func (v *Vault) IsValidPassphrase(passphrase string) bool {
	return bytes.Equal(v.PassphraseHash, btcutil.Hash160([]byte(passphrase)))
}

// Unlock attempts to decrypt the mnemonic with the provided passphrase
func (v *Vault) Unlock(passphrase string) ([]string, error) {
	if !v.IsValidPassphrase(passphrase) {
		return nil, ErrVaultInvalidPassphrase
	}

	mnemonic, err := wallet.Decrypt(wallet.DecryptOpts{
		CypherText: v.EncryptedMnemonic,
		Passphrase: passphrase,
	})
	if err != nil {
		return nil, err
	}
	return strings.Split(mnemonic, " "), nil
}

// ChangePassphrase re-encrypts the mnemonic with the new passphrase.
func (v *Vault) ChangePassphrase(currentPassphrase, newPassphrase string) error {
	if len(newPassphrase) <= 0 {
		return ErrNullMnemonicOrPassphrase
	}
	mnemonic, err := v.Unlock(currentPassphrase)
	if err != nil {
		return err
	}

	encryptedMnemonic, err := wallet.Encrypt(wallet.EncryptOpts{
		PlainText:  strings.Join(mnemonic, " "),
		Passphrase: newPassphrase,
	})
	if err != nil {
		return err
	}

	v.EncryptedMnemonic = encryptedMnemonic
	v.PassphraseHash = btcutil.Hash160([]byte(newPassphrase))
	return nil
}

// NextAccount reserves the id and the BIP84 index of a new HD account.
func (v *Vault) NextAccount() (id int, index uint32) {
	id, index = v.NextAccountID, v.NextAccountIndex
	v.NextAccountID++
	v.NextAccountIndex++
	return
}

// NextHardwareAccountID reserves the id of a new hardware account, that
// doesn't consume any index of the HD wallet.
func (v *Vault) NextHardwareAccountID() int {
	id := v.NextAccountID
	v.NextAccountID++
	return id
}
