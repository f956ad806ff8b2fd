package dbbadger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type accountRepositoryImpl struct {
	store *badgerhold.Store
}

// NewAccountRepositoryImpl initialize a badger implementation of the
// domain.AccountRepository
func NewAccountRepositoryImpl(store *badgerhold.Store) domain.AccountRepository {
	return accountRepositoryImpl{store}
}

func (a accountRepositoryImpl) AddAccount(
	_ context.Context, account *domain.Account,
) error {
	if err := a.store.Insert(account.ID, account); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return ErrAccountAlreadyExists
		}
		return err
	}
	return nil
}

func (a accountRepositoryImpl) GetAccount(
	_ context.Context, id int,
) (*domain.Account, error) {
	var account domain.Account
	if err := a.store.Get(id, &account); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (a accountRepositoryImpl) GetAllAccounts(
	_ context.Context,
) ([]domain.Account, error) {
	var accounts []domain.Account
	query := &badgerhold.Query{}
	if err := a.store.Find(&accounts, query.SortBy("ID")); err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = make([]domain.Account, 0)
	}
	return accounts, nil
}

func (a accountRepositoryImpl) GetAccountByOrigin(
	_ context.Context, origin string,
) (*domain.Account, error) {
	var accounts []domain.Account
	query := badgerhold.Where("ConnectedTo").Contains(origin)
	if err := a.store.Find(&accounts, query); err != nil {
		return nil, err
	}
	if len(accounts) <= 0 {
		return nil, domain.ErrAccountNotFound
	}
	return &accounts[0], nil
}

func (a accountRepositoryImpl) UpdateAccount(
	_ context.Context, id int,
	updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	return update(a.store, func(tx *badger.Txn) error {
		var account domain.Account
		if err := a.store.TxGet(tx, id, &account); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrAccountNotFound
			}
			return err
		}

		updatedAccount, err := updateFn(&account)
		if err != nil {
			return err
		}
		return a.store.TxUpdate(tx, id, updatedAccount)
	})
}

func (a accountRepositoryImpl) DeleteAllAccounts(_ context.Context) error {
	return a.store.DeleteMatching(domain.Account{}, nil)
}
