package ports

import "github.com/pali-wallet/palid/internal/core/domain"

// RepoManager interface defines the methods to access every repository.
type RepoManager interface {
	VaultRepository() domain.VaultRepository
	AccountRepository() domain.AccountRepository
	TokenRepository() domain.TokenRepository
	FlowRepository() domain.FlowRepository
	ContactRepository() domain.ContactRepository

	Close()
}
