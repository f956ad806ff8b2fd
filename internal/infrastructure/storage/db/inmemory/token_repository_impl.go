package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/pali-wallet/palid/internal/core/domain"
)

// TokenRepositoryImpl represents an in memory storage
type TokenRepositoryImpl struct {
	tokens map[string]domain.WalletTokens

	lock *sync.RWMutex
}

// NewTokenRepositoryImpl returns a new empty TokenRepositoryImpl
func NewTokenRepositoryImpl() domain.TokenRepository {
	return &TokenRepositoryImpl{
		tokens: map[string]domain.WalletTokens{},
		lock:   &sync.RWMutex{},
	}
}

func (r *TokenRepositoryImpl) GetWalletTokens(
	_ context.Context, accountID int, network string,
) (*domain.WalletTokens, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	w, ok := r.tokens[tokensKey(accountID, network)]
	if !ok {
		return domain.NewWalletTokens(accountID, network, ""), nil
	}
	wt := copyWalletTokens(w)
	return &wt, nil
}

// UpdateWalletTokens creates an empty cache if none exists for the account.
func (r *TokenRepositoryImpl) UpdateWalletTokens(
	_ context.Context, accountID int, network string,
	updateFn func(w *domain.WalletTokens) (*domain.WalletTokens, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	key := tokensKey(accountID, network)
	current := domain.NewWalletTokens(accountID, network, "")
	if w, ok := r.tokens[key]; ok {
		wt := copyWalletTokens(w)
		current = &wt
	}

	updated, err := updateFn(current)
	if err != nil {
		return err
	}
	r.tokens[key] = copyWalletTokens(*updated)
	return nil
}

func (r *TokenRepositoryImpl) DeleteAllWalletTokens(_ context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.tokens = map[string]domain.WalletTokens{}
	return nil
}

func tokensKey(accountID int, network string) string {
	return fmt.Sprintf("%d:%s", accountID, network)
}

func copyWalletTokens(w domain.WalletTokens) domain.WalletTokens {
	tokens := make(map[string]domain.Token, len(w.Tokens))
	for k, v := range w.Tokens {
		tokens[k] = v
	}
	w.Tokens = tokens
	w.Holdings = append(make([]domain.Holding, 0, len(w.Holdings)), w.Holdings...)
	return w
}
