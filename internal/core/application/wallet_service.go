package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/pali-wallet/palid/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

// WalletStatus is the public state of the wallet.
type WalletStatus struct {
	Initialized     bool   `json:"initialized"`
	Unlocked        bool   `json:"unlocked"`
	Network         string `json:"network"`
	ActiveAccountID int    `json:"activeAccountId"`
}

// WalletService manages the vault, the accounts and the session of the
// wallet.
type WalletService interface {
	GenSeed(ctx context.Context) ([]string, error)
	CreateWallet(ctx context.Context, mnemonic []string, passphrase string) error
	ImportWallet(ctx context.Context, mnemonic []string, passphrase string) error
	Unlock(ctx context.Context, passphrase string) error
	Lock(ctx context.Context) error
	ChangePassword(ctx context.Context, currentPassphrase, newPassphrase string) error
	DeleteWallet(ctx context.Context, passphrase string) error
	Status(ctx context.Context) (*WalletStatus, error)

	CreateAccount(ctx context.Context, label string) (*domain.Account, error)
	ImportTrezorAccount(
		ctx context.Context, xpub, label, path string,
	) (*domain.Account, error)
	SwitchAccount(ctx context.Context, accountID int) error
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetAccount(ctx context.Context, accountID int) (*domain.Account, error)
	RenameAccount(ctx context.Context, accountID int, label string) error
	ActiveAccount(ctx context.Context) (*domain.Account, error)

	SwitchNetwork(ctx context.Context, networkID string) error
	Networks() []domain.Network
	ActiveNetwork(ctx context.Context) (domain.Network, error)
	Explorer(ctx context.Context) (explorer.Service, error)

	// Session returns the session of the unlocked wallet or ErrWalletLocked.
	Session() (*Session, error)
	Close()
}

type walletService struct {
	repoManager ports.RepoManager
	networks    domain.Networks
	explorers   ports.ExplorerProvider
	pubsub      PubSubService
	network     string

	rootCtx    context.Context
	rootCancel context.CancelFunc

	lock    sync.RWMutex
	session *Session
}

// NewWalletService returns a new wallet service. network is the Syscoin
// network selected when creating a new wallet.
func NewWalletService(
	repoManager ports.RepoManager,
	networks domain.Networks,
	explorers ports.ExplorerProvider,
	pubsub PubSubService,
	network string,
) (WalletService, error) {
	if _, err := networks.Get(network); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &walletService{
		repoManager: repoManager,
		networks:    networks,
		explorers:   explorers,
		pubsub:      pubsub,
		network:     network,
		rootCtx:     ctx,
		rootCancel:  cancel,
	}, nil
}

func (w *walletService) GenSeed(_ context.Context) ([]string, error) {
	return wallet.NewMnemonic(wallet.NewMnemonicOpts{EntropySize: 128})
}

func (w *walletService) CreateWallet(
	ctx context.Context, mnemonic []string, passphrase string,
) error {
	if _, err := w.repoManager.VaultRepository().GetVault(ctx); err == nil {
		return domain.ErrVaultAlreadyInitialized
	} else if !errors.Is(err, domain.ErrVaultNotFound) {
		return err
	}

	vault, err := domain.NewVault(mnemonic, passphrase, w.network)
	if err != nil {
		return err
	}
	hd, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic: mnemonic,
	})
	if err != nil {
		return err
	}

	id, index := vault.NextAccount()
	account, err := newHDAccount(hd, passphrase, id, index, "")
	if err != nil {
		return err
	}
	vault.ActiveAccountID = account.ID

	if err := w.repoManager.VaultRepository().AddVault(ctx, vault); err != nil {
		return err
	}
	if err := w.repoManager.AccountRepository().AddAccount(ctx, account); err != nil {
		return err
	}

	log.Infof("wallet created with account %d", account.ID)
	return nil
}

// ImportWallet restores the wallet from an existing mnemonic. The history
// of the first account is fetched at first unlock.
func (w *walletService) ImportWallet(
	ctx context.Context, mnemonic []string, passphrase string,
) error {
	if !wallet.IsMnemonicValid(mnemonic) {
		return wallet.ErrInvalidMnemonic
	}
	return w.CreateWallet(ctx, mnemonic, passphrase)
}

func (w *walletService) Unlock(ctx context.Context, passphrase string) error {
	w.lock.Lock()
	if w.session != nil {
		w.lock.Unlock()
		return nil
	}

	vault, err := w.getVault(ctx)
	if err != nil {
		w.lock.Unlock()
		return err
	}
	mnemonic, err := vault.Unlock(passphrase)
	if err != nil {
		w.lock.Unlock()
		return err
	}
	hd, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic: mnemonic,
	})
	if err != nil {
		w.lock.Unlock()
		return err
	}
	w.session = newSession(w.rootCtx, hd, passphrase)
	w.lock.Unlock()

	log.Info("wallet unlocked")
	w.pubsub.Publish(Event{
		Type:      EventWalletUnlocked,
		AccountID: vault.ActiveAccountID,
		Network:   vault.ActiveNetwork,
	})
	return nil
}

func (w *walletService) Lock(ctx context.Context) error {
	w.lock.Lock()
	session := w.session
	w.session = nil
	w.lock.Unlock()

	if session == nil {
		return nil
	}
	session.close()

	log.Info("wallet locked")
	w.pubsub.Publish(Event{Type: EventWalletLocked})
	return nil
}

func (w *walletService) ChangePassword(
	ctx context.Context, currentPassphrase, newPassphrase string,
) error {
	if _, err := w.Session(); err == nil {
		return ErrWalletMustBeLocked
	}

	vault, err := w.getVault(ctx)
	if err != nil {
		return err
	}
	if !vault.IsValidPassphrase(currentPassphrase) {
		return domain.ErrVaultInvalidPassphrase
	}
	if len(newPassphrase) <= 0 {
		return domain.ErrNullMnemonicOrPassphrase
	}

	accounts, err := w.repoManager.AccountRepository().GetAllAccounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if err := w.repoManager.AccountRepository().UpdateAccount(
			ctx, a.ID, func(account *domain.Account) (*domain.Account, error) {
				if err := account.ChangePassphrase(
					currentPassphrase, newPassphrase,
				); err != nil {
					return nil, err
				}
				return account, nil
			},
		); err != nil {
			return err
		}
	}

	return w.repoManager.VaultRepository().UpdateVault(
		ctx, func(v *domain.Vault) (*domain.Vault, error) {
			if err := v.ChangePassphrase(currentPassphrase, newPassphrase); err != nil {
				return nil, err
			}
			return v, nil
		},
	)
}

func (w *walletService) DeleteWallet(ctx context.Context, passphrase string) error {
	vault, err := w.getVault(ctx)
	if err != nil {
		return err
	}
	if !vault.IsValidPassphrase(passphrase) {
		return domain.ErrVaultInvalidPassphrase
	}
	if err := w.Lock(ctx); err != nil {
		return err
	}

	if err := w.repoManager.TokenRepository().DeleteAllWalletTokens(ctx); err != nil {
		return err
	}
	if err := w.repoManager.AccountRepository().DeleteAllAccounts(ctx); err != nil {
		return err
	}
	if err := w.repoManager.VaultRepository().DeleteVault(ctx); err != nil {
		return err
	}

	log.Info("wallet deleted")
	return nil
}

func (w *walletService) Status(ctx context.Context) (*WalletStatus, error) {
	_, sessionErr := w.Session()
	status := &WalletStatus{
		Unlocked: sessionErr == nil,
		Network:  w.network,
	}

	vault, err := w.repoManager.VaultRepository().GetVault(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrVaultNotFound) {
			return status, nil
		}
		return nil, err
	}
	status.Initialized = vault.IsInitialized()
	status.Network = vault.ActiveNetwork
	status.ActiveAccountID = vault.ActiveAccountID
	return status, nil
}

func (w *walletService) CreateAccount(
	ctx context.Context, label string,
) (*domain.Account, error) {
	session, err := w.Session()
	if err != nil {
		return nil, err
	}

	var id int
	var index uint32
	if err := w.repoManager.VaultRepository().UpdateVault(
		ctx, func(v *domain.Vault) (*domain.Vault, error) {
			id, index = v.NextAccount()
			return v, nil
		},
	); err != nil {
		return nil, err
	}

	account, err := newHDAccount(session.wallet, session.passphrase, id, index, label)
	if err != nil {
		return nil, err
	}
	if err := w.repoManager.AccountRepository().AddAccount(ctx, account); err != nil {
		return nil, err
	}

	log.Infof("created account %d", account.ID)
	return account, nil
}

func (w *walletService) ImportTrezorAccount(
	ctx context.Context, xpub, label, path string,
) (*domain.Account, error) {
	network, err := w.ActiveNetwork(ctx)
	if err != nil {
		return nil, err
	}
	if !network.IsSyscoin() {
		return nil, domain.ErrUnsupportedOnNetwork
	}
	// Keys are validated before reserving the id of the account.
	if _, err := domain.NewTrezorAccount(0, label, network.ID, xpub, path); err != nil {
		return nil, err
	}

	var id int
	if err := w.repoManager.VaultRepository().UpdateVault(
		ctx, func(v *domain.Vault) (*domain.Vault, error) {
			id = v.NextHardwareAccountID()
			return v, nil
		},
	); err != nil {
		return nil, err
	}

	account, err := domain.NewTrezorAccount(id, label, network.ID, xpub, path)
	if err != nil {
		return nil, err
	}
	if err := setAddresses(account, network.ID, xpub); err != nil {
		return nil, err
	}
	if err := w.repoManager.AccountRepository().AddAccount(ctx, account); err != nil {
		return nil, err
	}

	log.Infof("imported trezor account %d", account.ID)
	return account, nil
}

func (w *walletService) SwitchAccount(ctx context.Context, accountID int) error {
	if _, err := w.repoManager.AccountRepository().GetAccount(ctx, accountID); err != nil {
		return err
	}
	if err := w.repoManager.VaultRepository().UpdateVault(
		ctx, func(v *domain.Vault) (*domain.Vault, error) {
			v.ActiveAccountID = accountID
			return v, nil
		},
	); err != nil {
		return err
	}

	if session, err := w.Session(); err == nil {
		session.ClearAll()
	}
	w.pubsub.Publish(Event{Type: EventWalletUpdated, AccountID: accountID})
	return nil
}

func (w *walletService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := w.repoManager.AccountRepository().GetAllAccounts(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}

func (w *walletService) GetAccount(
	ctx context.Context, accountID int,
) (*domain.Account, error) {
	return w.repoManager.AccountRepository().GetAccount(ctx, accountID)
}

func (w *walletService) RenameAccount(
	ctx context.Context, accountID int, label string,
) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.ErrInvalidLabel
	}
	return w.repoManager.AccountRepository().UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			a.Label = label
			return a, nil
		},
	)
}

func (w *walletService) ActiveAccount(ctx context.Context) (*domain.Account, error) {
	vault, err := w.getVault(ctx)
	if err != nil {
		return nil, err
	}
	return w.repoManager.AccountRepository().GetAccount(ctx, vault.ActiveAccountID)
}

func (w *walletService) SwitchNetwork(ctx context.Context, networkID string) error {
	network, err := w.networks.Get(networkID)
	if err != nil {
		return err
	}

	var activeAccountID int
	if err := w.repoManager.VaultRepository().UpdateVault(
		ctx, func(v *domain.Vault) (*domain.Vault, error) {
			v.ActiveNetwork = network.ID
			activeAccountID = v.ActiveAccountID
			return v, nil
		},
	); err != nil {
		return err
	}

	accounts, err := w.repoManager.AccountRepository().GetAllAccounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if err := w.repoManager.AccountRepository().UpdateAccount(
			ctx, a.ID, func(account *domain.Account) (*domain.Account, error) {
				account.ResetNetworkState()
				return account, nil
			},
		); err != nil {
			return err
		}
	}

	if session, err := w.Session(); err == nil {
		session.ClearAll()
	}

	log.Infof("switched to network %s", network.ID)
	w.pubsub.Publish(Event{
		Type:      EventNetworkChanged,
		AccountID: activeAccountID,
		Network:   network.ID,
	})
	return nil
}

func (w *walletService) Networks() []domain.Network {
	networks := make([]domain.Network, 0, len(w.networks))
	for _, n := range w.networks {
		networks = append(networks, n)
	}
	sort.Slice(networks, func(i, j int) bool {
		return networks[i].ID < networks[j].ID
	})
	return networks
}

func (w *walletService) ActiveNetwork(ctx context.Context) (domain.Network, error) {
	vault, err := w.getVault(ctx)
	if err != nil {
		return domain.Network{}, err
	}
	return w.networks.Get(vault.ActiveNetwork)
}

func (w *walletService) Explorer(ctx context.Context) (explorer.Service, error) {
	network, err := w.ActiveNetwork(ctx)
	if err != nil {
		return nil, err
	}
	return w.explorers.Explorer(network.ID)
}

func (w *walletService) Session() (*Session, error) {
	w.lock.RLock()
	defer w.lock.RUnlock()

	if w.session == nil {
		return nil, ErrWalletLocked
	}
	return w.session, nil
}

func (w *walletService) Close() {
	if err := w.Lock(context.Background()); err != nil {
		log.WithError(err).Warn("failed to lock wallet")
	}
	w.rootCancel()
}

func (w *walletService) getVault(ctx context.Context) (*domain.Vault, error) {
	vault, err := w.repoManager.VaultRepository().GetVault(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrVaultNotFound) {
			return nil, ErrWalletNotInitialized
		}
		return nil, err
	}
	return vault, nil
}

// newHDAccount derives the keys and the first addresses of the account at
// index for every network.
func newHDAccount(
	hd *wallet.Wallet, passphrase string, id int, index uint32, label string,
) (*domain.Account, error) {
	account := domain.NewAccount(id, index, label)
	for _, network := range []string{domain.NetworkMain, domain.NetworkTestnet} {
		xpub, xprv, err := hd.AccountKeys(wallet.AccountKeysOpts{
			Network: network,
			Account: index,
		})
		if err != nil {
			return nil, err
		}
		if err := account.SetKeys(network, xpub, xprv, passphrase); err != nil {
			return nil, err
		}
		if err := setAddresses(account, network, xpub); err != nil {
			return nil, err
		}
	}

	_, address, err := hd.EVMKey(index)
	if err != nil {
		return nil, err
	}
	account.Web3Address = address
	account.Address[domain.NetworkWeb3] = address
	return account, nil
}

func setAddresses(account *domain.Account, network, xpub string) error {
	return setAddressesAt(account, network, xpub, 0, 0)
}

func setAddressesAt(
	account *domain.Account, network, xpub string, receiveIndex, changeIndex uint32,
) error {
	receive, err := wallet.DeriveAddress(wallet.DeriveAddressOpts{
		ExtendedKey: xpub,
		Network:     network,
		Chain:       wallet.ExternalChain,
		Index:       receiveIndex,
	})
	if err != nil {
		return err
	}
	change, err := wallet.DeriveAddress(wallet.DeriveAddressOpts{
		ExtendedKey: xpub,
		Network:     network,
		Chain:       wallet.InternalChain,
		Index:       changeIndex,
	})
	if err != nil {
		return err
	}
	if account.Address == nil {
		account.Address = map[string]string{}
	}
	if account.ChangeAddress == nil {
		account.ChangeAddress = map[string]string{}
	}
	account.Address[network] = receive.Address
	account.ChangeAddress[network] = change.Address
	return nil
}
