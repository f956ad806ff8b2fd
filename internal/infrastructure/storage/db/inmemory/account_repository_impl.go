package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/pali-wallet/palid/internal/core/domain"
)

// AccountRepositoryImpl represents an in memory storage
type AccountRepositoryImpl struct {
	accounts map[int]domain.Account

	lock *sync.RWMutex
}

// NewAccountRepositoryImpl returns a new empty AccountRepositoryImpl
func NewAccountRepositoryImpl() domain.AccountRepository {
	return &AccountRepositoryImpl{
		accounts: map[int]domain.Account{},
		lock:     &sync.RWMutex{},
	}
}

func (r *AccountRepositoryImpl) AddAccount(
	_ context.Context, account *domain.Account,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.accounts[account.ID]; ok {
		return ErrAccountAlreadyExists
	}
	r.accounts[account.ID] = copyAccount(*account)
	return nil
}

func (r *AccountRepositoryImpl) GetAccount(
	_ context.Context, id int,
) (*domain.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a := copyAccount(account)
	return &a, nil
}

// GetAllAccounts returns all the accounts sorted by id.
func (r *AccountRepositoryImpl) GetAllAccounts(
	_ context.Context,
) ([]domain.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	accounts := make([]domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		accounts = append(accounts, copyAccount(a))
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}

func (r *AccountRepositoryImpl) GetAccountByOrigin(
	_ context.Context, origin string,
) (*domain.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, account := range r.accounts {
		if account.IsConnectedTo(origin) {
			a := copyAccount(account)
			return &a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *AccountRepositoryImpl) UpdateAccount(
	_ context.Context, id int,
	updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a := copyAccount(account)
	updatedAccount, err := updateFn(&a)
	if err != nil {
		return err
	}
	r.accounts[id] = copyAccount(*updatedAccount)
	return nil
}

func (r *AccountRepositoryImpl) DeleteAllAccounts(_ context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.accounts = map[int]domain.Account{}
	return nil
}

func copyAccount(a domain.Account) domain.Account {
	keys := make(map[string]domain.AccountKeys, len(a.Keys))
	for k, v := range a.Keys {
		keys[k] = v
	}
	a.Keys = keys
	a.Address = copyStringMap(a.Address)
	a.ChangeAddress = copyStringMap(a.ChangeAddress)
	a.Transactions = append(
		make([]domain.Transaction, 0, len(a.Transactions)), a.Transactions...,
	)
	a.ConnectedTo = append(make([]string, 0, len(a.ConnectedTo)), a.ConnectedTo...)
	return a
}

func copyStringMap(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
