package dbbadger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type tokenRepositoryImpl struct {
	store *badgerhold.Store
}

// NewTokenRepositoryImpl initialize a badger implementation of the
// domain.TokenRepository
func NewTokenRepositoryImpl(store *badgerhold.Store) domain.TokenRepository {
	return tokenRepositoryImpl{store}
}

func (t tokenRepositoryImpl) GetWalletTokens(
	_ context.Context, accountID int, network string,
) (*domain.WalletTokens, error) {
	var w domain.WalletTokens
	if err := t.store.Get(tokensKey(accountID, network), &w); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.NewWalletTokens(accountID, network, ""), nil
		}
		return nil, err
	}
	return normalize(&w), nil
}

// UpdateWalletTokens creates an empty cache if none exists for the account.
func (t tokenRepositoryImpl) UpdateWalletTokens(
	_ context.Context, accountID int, network string,
	updateFn func(w *domain.WalletTokens) (*domain.WalletTokens, error),
) error {
	key := tokensKey(accountID, network)
	return update(t.store, func(tx *badger.Txn) error {
		current := domain.NewWalletTokens(accountID, network, "")
		var w domain.WalletTokens
		err := t.store.TxGet(tx, key, &w)
		switch {
		case err == nil:
			current = normalize(&w)
		case !errors.Is(err, badgerhold.ErrNotFound):
			return err
		}

		updated, err := updateFn(current)
		if err != nil {
			return err
		}
		return t.store.TxUpsert(tx, key, updated)
	})
}

func (t tokenRepositoryImpl) DeleteAllWalletTokens(_ context.Context) error {
	return t.store.DeleteMatching(domain.WalletTokens{}, nil)
}

func tokensKey(accountID int, network string) string {
	return fmt.Sprintf("%d:%s", accountID, network)
}

func normalize(w *domain.WalletTokens) *domain.WalletTokens {
	if w.Tokens == nil {
		w.Tokens = map[string]domain.Token{}
	}
	if w.Holdings == nil {
		w.Holdings = make([]domain.Holding, 0)
	}
	return w
}
