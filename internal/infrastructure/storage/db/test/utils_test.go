package db_test

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	dbbadger "github.com/pali-wallet/palid/internal/infrastructure/storage/db/badger"
	"github.com/pali-wallet/palid/internal/infrastructure/storage/db/inmemory"
	"github.com/stretchr/testify/require"
)

var (
	mnemonic = []string{
		"leave", "dice", "fine", "decrease", "dune", "ribbon", "ocean", "earn",
		"lunar", "account", "silver", "admit", "cheap", "fringe", "disorder", "trade",
		"because", "trade", "steak", "clock", "grace", "video", "jacket", "equal",
	}
	passphrase = "passphrase"
)

type repoManager struct {
	Name    string
	Manager ports.RepoManager
}

func createRepoManagers(t *testing.T) []repoManager {
	badgerInMemory, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)
	badgerOnDisk, err := dbbadger.NewRepoManager(t.TempDir(), nil)
	require.NoError(t, err)

	managers := []repoManager{
		{"badger_inmemory", badgerInMemory},
		{"badger", badgerOnDisk},
		{"inmemory", inmemory.NewRepoManager()},
	}
	t.Cleanup(func() {
		for _, m := range managers {
			m.Manager.Close()
		}
	})
	return managers
}

func makeRandomAccount(id int) *domain.Account {
	account := domain.NewAccount(id, uint32(id), "")
	account.Keys[domain.NetworkMain] = domain.AccountKeys{
		Xpub:          "zpub" + randomHex(32),
		EncryptedXprv: randomHex(32),
	}
	account.Address[domain.NetworkMain] = "sys1q" + randomHex(16)
	return account
}

func randomHex(len int) string {
	return hex.EncodeToString(randomBytes(len))
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	_, _ = rand.Read(b)
	return b
}
