package inmemory

import (
	"context"
	"sync"

	"github.com/pali-wallet/palid/internal/core/domain"
)

// VaultRepositoryImpl represents an in memory storage
type VaultRepositoryImpl struct {
	vault *domain.Vault

	lock *sync.RWMutex
}

// NewVaultRepositoryImpl returns a new empty VaultRepositoryImpl
func NewVaultRepositoryImpl() domain.VaultRepository {
	return &VaultRepositoryImpl{
		lock: &sync.RWMutex{},
	}
}

func (r *VaultRepositoryImpl) GetVault(_ context.Context) (*domain.Vault, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.vault == nil {
		return nil, domain.ErrVaultNotFound
	}
	return copyVault(r.vault), nil
}

func (r *VaultRepositoryImpl) AddVault(_ context.Context, vault *domain.Vault) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.vault != nil {
		return domain.ErrVaultAlreadyInitialized
	}
	r.vault = copyVault(vault)
	return nil
}

// UpdateVault updates data to the Vault passing an update function
func (r *VaultRepositoryImpl) UpdateVault(
	_ context.Context,
	updateFn func(v *domain.Vault) (*domain.Vault, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.vault == nil {
		return domain.ErrVaultNotFound
	}

	updatedVault, err := updateFn(copyVault(r.vault))
	if err != nil {
		return err
	}
	r.vault = copyVault(updatedVault)
	return nil
}

func (r *VaultRepositoryImpl) DeleteVault(_ context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.vault = nil
	return nil
}

func copyVault(v *domain.Vault) *domain.Vault {
	vault := *v
	vault.PassphraseHash = append([]byte(nil), v.PassphraseHash...)
	return &vault
}
