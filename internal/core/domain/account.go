package domain

import (
	"fmt"
	"strings"

	"github.com/pali-wallet/palid/pkg/wallet"
	"github.com/shopspring/decimal"
)

// AccountKeys are the extended keys of an account for a Syscoin network.
// EncryptedXprv is empty for hardware accounts.
type AccountKeys struct {
	Xpub          string
	EncryptedXprv string
}

// Account defines the entity data struture for an account of the wallet,
// either derived from the HD wallet or imported from a hardware device.
type Account struct {
	ID             int
	Label          string
	Index          uint32
	Keys           map[string]AccountKeys
	Balance        decimal.Decimal
	Address        map[string]string
	ChangeAddress  map[string]string
	Web3Address    string
	Transactions   []Transaction
	ConnectedTo    []string
	IsTrezorWallet bool
	TrezorPath     string
}

// NewAccount returns an account with no keys.
func NewAccount(id int, index uint32, label string) *Account {
	if strings.TrimSpace(label) == "" {
		label = fmt.Sprintf("Account %d", id+1)
	}
	return &Account{
		ID:            id,
		Label:         label,
		Index:         index,
		Keys:          map[string]AccountKeys{},
		Address:       map[string]string{},
		ChangeAddress: map[string]string{},
		Transactions:  make([]Transaction, 0),
		ConnectedTo:   make([]string, 0),
	}
}

// NewTrezorAccount returns a hardware account for the given network.
func NewTrezorAccount(id int, label, network, xpub, path string) (*Account, error) {
	if !wallet.IsExtendedPublicKey(xpub) {
		return nil, ErrInvalidXpub
	}
	if _, err := wallet.ParseDerivationPath(path); err != nil {
		return nil, err
	}
	account := NewAccount(id, 0, label)
	account.Keys[network] = AccountKeys{Xpub: xpub}
	account.IsTrezorWallet = true
	account.TrezorPath = path
	return account, nil
}

// SetKeys sets the extended keys of the account for the given network. The
// xprv is encrypted with passphrase.
func (a *Account) SetKeys(network, xpub, xprv, passphrase string) error {
	encryptedXprv, err := wallet.Encrypt(wallet.EncryptOpts{
		PlainText:  xprv,
		Passphrase: passphrase,
	})
	if err != nil {
		return err
	}
	if a.Keys == nil {
		a.Keys = map[string]AccountKeys{}
	}
	a.Keys[network] = AccountKeys{xpub, encryptedXprv}
	return nil
}

// Xpub returns the extended public key of the account for the network.
func (a *Account) Xpub(network string) (string, error) {
	keys, ok := a.Keys[network]
	if !ok || keys.Xpub == "" {
		return "", fmt.Errorf("%w %s", ErrAccountMissingKeys, network)
	}
	return keys.Xpub, nil
}

// Xprv decrypts the extended private key of the account for the network.
func (a *Account) Xprv(network, passphrase string) (string, error) {
	if a.IsTrezorWallet {
		return "", ErrAccountReadOnly
	}
	keys, ok := a.Keys[network]
	if !ok || keys.EncryptedXprv == "" {
		return "", fmt.Errorf("%w %s", ErrAccountMissingKeys, network)
	}
	return wallet.Decrypt(wallet.DecryptOpts{
		CypherText: keys.EncryptedXprv,
		Passphrase: passphrase,
	})
}

// ChangePassphrase re-encrypts all the xprvs of the account.
func (a *Account) ChangePassphrase(currentPassphrase, newPassphrase string) error {
	if a.IsTrezorWallet {
		return nil
	}
	for network, keys := range a.Keys {
		xprv, err := a.Xprv(network, currentPassphrase)
		if err != nil {
			return err
		}
		if err := a.SetKeys(network, keys.Xpub, xprv, newPassphrase); err != nil {
			return err
		}
	}
	return nil
}

// Connect connects the account to the given origin.
func (a *Account) Connect(origin string) {
	if a.IsConnectedTo(origin) {
		return
	}
	a.ConnectedTo = append(a.ConnectedTo, origin)
}

// Disconnect removes the connection with the given origin, if any.
func (a *Account) Disconnect(origin string) bool {
	for i, o := range a.ConnectedTo {
		if o == origin {
			a.ConnectedTo = append(a.ConnectedTo[:i], a.ConnectedTo[i+1:]...)
			return true
		}
	}
	return false
}

// IsConnectedTo returns whether the account is connected to the origin.
func (a *Account) IsConnectedTo(origin string) bool {
	for _, o := range a.ConnectedTo {
		if o == origin {
			return true
		}
	}
	return false
}

// UnshiftTransaction prepends tx to the list of txs of the account. It
// returns false if a tx with the same id is already in the list.
func (a *Account) UnshiftTransaction(tx Transaction) bool {
	for _, t := range a.Transactions {
		if t.TxID == tx.TxID {
			return false
		}
	}
	a.Transactions = append([]Transaction{tx}, a.Transactions...)
	return true
}

// MergeTransactions replaces the txs of the account with the remote ones.
// Pending local txs not yet known by the indexer are kept on top.
func (a *Account) MergeTransactions(remote []Transaction) {
	known := make(map[string]struct{}, len(remote))
	for _, tx := range remote {
		known[tx.TxID] = struct{}{}
	}

	merged := make([]Transaction, 0, len(remote)+len(a.Transactions))
	for _, tx := range a.Transactions {
		if _, ok := known[tx.TxID]; !ok && tx.Pending {
			merged = append(merged, tx)
		}
	}
	a.Transactions = append(merged, remote...)
}

// ResetNetworkState drops the state that depends on the active network.
func (a *Account) ResetNetworkState() {
	a.Balance = decimal.Zero
	a.Transactions = make([]Transaction, 0)
}
