package inmemory

import (
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
)

type RepoManager struct {
	vaultRepository   domain.VaultRepository
	accountRepository domain.AccountRepository
	tokenRepository   domain.TokenRepository
	flowRepository    domain.FlowRepository
	contactRepository domain.ContactRepository
}

// NewRepoManager returns a repo manager whose repositories live in memory
// only. Stored entities are copied in and out, so that callers never share
// state with the store.
func NewRepoManager() ports.RepoManager {
	return &RepoManager{
		vaultRepository:   NewVaultRepositoryImpl(),
		accountRepository: NewAccountRepositoryImpl(),
		tokenRepository:   NewTokenRepositoryImpl(),
		flowRepository:    NewFlowRepositoryImpl(),
		contactRepository: NewContactRepositoryImpl(),
	}
}

func (d *RepoManager) VaultRepository() domain.VaultRepository {
	return d.vaultRepository
}

func (d *RepoManager) AccountRepository() domain.AccountRepository {
	return d.accountRepository
}

func (d *RepoManager) TokenRepository() domain.TokenRepository {
	return d.tokenRepository
}

func (d *RepoManager) FlowRepository() domain.FlowRepository {
	return d.flowRepository
}

func (d *RepoManager) ContactRepository() domain.ContactRepository {
	return d.contactRepository
}

func (d *RepoManager) Close() {}
