package domain

import "context"

// VaultRepository is the abstraction for any kind of database intended to
// persist the Vault.
type VaultRepository interface {
	// GetVault returns the vault or ErrVaultNotFound.
	GetVault(ctx context.Context) (*Vault, error)
	// AddVault stores a new vault, it fails with ErrVaultAlreadyInitialized
	// if one exists.
	AddVault(ctx context.Context, vault *Vault) error
	// UpdateVault commits the changes made by updateFn in a transactional way.
	UpdateVault(
		ctx context.Context, updateFn func(v *Vault) (*Vault, error),
	) error
	// DeleteVault removes the vault.
	DeleteVault(ctx context.Context) error
}

// AccountRepository is the abstraction for any kind of database intended to
// persist Accounts.
type AccountRepository interface {
	AddAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id int) (*Account, error)
	GetAllAccounts(ctx context.Context) ([]Account, error)
	// GetAccountByOrigin returns the account connected to the given origin.
	GetAccountByOrigin(ctx context.Context, origin string) (*Account, error)
	UpdateAccount(
		ctx context.Context, id int, updateFn func(a *Account) (*Account, error),
	) error
	DeleteAllAccounts(ctx context.Context) error
}

// TokenRepository is the abstraction for any kind of database intended to
// persist the token cache of every account.
type TokenRepository interface {
	// GetWalletTokens returns the cache of the account for the network, or an
	// empty one if not found.
	GetWalletTokens(
		ctx context.Context, accountID int, network string,
	) (*WalletTokens, error)
	UpdateWalletTokens(
		ctx context.Context, accountID int, network string,
		updateFn func(w *WalletTokens) (*WalletTokens, error),
	) error
	DeleteAllWalletTokens(ctx context.Context) error
}

// FlowRepository is the abstraction for any kind of database intended to
// persist TxFlows.
type FlowRepository interface {
	AddFlow(ctx context.Context, flow *TxFlow) error
	GetFlow(ctx context.Context, id string) (*TxFlow, error)
	GetFlowsByAccount(ctx context.Context, accountID int) ([]TxFlow, error)
	// GetPendingFlows returns the flows not yet settled.
	GetPendingFlows(ctx context.Context) ([]TxFlow, error)
	UpdateFlow(
		ctx context.Context, id string, updateFn func(f *TxFlow) (*TxFlow, error),
	) error
}

// ContactRepository is the abstraction for any kind of database intended to
// persist the address book.
type ContactRepository interface {
	AddContact(ctx context.Context, contact *Contact) error
	GetContact(ctx context.Context, id string) (*Contact, error)
	GetAllContacts(ctx context.Context) ([]Contact, error)
	UpdateContact(
		ctx context.Context, id string, updateFn func(c *Contact) (*Contact, error),
	) error
	DeleteContact(ctx context.Context, id string) error
}
