package dbbadger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const vaultKey = "vault"

type vaultRepositoryImpl struct {
	store *badgerhold.Store
}

// NewVaultRepositoryImpl initialize a badger implementation of the
// domain.VaultRepository
func NewVaultRepositoryImpl(store *badgerhold.Store) domain.VaultRepository {
	return vaultRepositoryImpl{store}
}

func (v vaultRepositoryImpl) GetVault(_ context.Context) (*domain.Vault, error) {
	var vault domain.Vault
	if err := v.store.Get(vaultKey, &vault); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrVaultNotFound
		}
		return nil, err
	}
	return &vault, nil
}

func (v vaultRepositoryImpl) AddVault(_ context.Context, vault *domain.Vault) error {
	if err := v.store.Insert(vaultKey, vault); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrVaultAlreadyInitialized
		}
		return err
	}
	return nil
}

func (v vaultRepositoryImpl) UpdateVault(
	_ context.Context,
	updateFn func(v *domain.Vault) (*domain.Vault, error),
) error {
	return update(v.store, func(tx *badger.Txn) error {
		var vault domain.Vault
		if err := v.store.TxGet(tx, vaultKey, &vault); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrVaultNotFound
			}
			return err
		}

		updatedVault, err := updateFn(&vault)
		if err != nil {
			return err
		}
		return v.store.TxUpdate(tx, vaultKey, updatedVault)
	})
}

func (v vaultRepositoryImpl) DeleteVault(_ context.Context) error {
	if err := v.store.Delete(vaultKey, domain.Vault{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}
