package dbbadger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	maxTxRetries  = 20
	gcInterval    = 30 * time.Minute
	gcDiscardRate = 0.5
)

// RepoManager holds the badgerhold store shared by all the repositories.
type RepoManager struct {
	store *badgerhold.Store
	stop  chan struct{}

	vaultRepository   domain.VaultRepository
	accountRepository domain.AccountRepository
	tokenRepository   domain.TokenRepository
	flowRepository    domain.FlowRepository
	contactRepository domain.ContactRepository
}

// NewRepoManager opens (or creates if not exists) the badger store in
// baseDbDir. An empty baseDbDir makes the store live in memory only.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, "wallet")
	}

	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening wallet db: %w", err)
	}

	rm := &RepoManager{
		store: store,
		stop:  make(chan struct{}),
	}
	rm.vaultRepository = NewVaultRepositoryImpl(store)
	rm.accountRepository = NewAccountRepositoryImpl(store)
	rm.tokenRepository = NewTokenRepositoryImpl(store)
	rm.flowRepository = NewFlowRepositoryImpl(store)
	rm.contactRepository = NewContactRepositoryImpl(store)

	if len(dbDir) > 0 {
		go rm.runValueLogGC()
	}
	return rm, nil
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

func (d *RepoManager) Close() {
	close(d.stop)
	if err := d.store.Close(); err != nil {
		log.WithError(err).Warn("failed to close wallet db")
	}
}

func (d *RepoManager) runValueLogGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if err := d.store.Badger().RunValueLogGC(gcDiscardRate); err != nil &&
				!errors.Is(err, badger.ErrNoRewrite) {
				log.WithError(err).Warn("value log gc failed")
			}
		}
	}
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	return json.NewDecoder(bytes.NewReader(data)).Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}

// update runs fn in a read-write badger transaction, retrying on conflicts
// with concurrent transactions.
func update(store *badgerhold.Store, fn func(tx *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = store.Badger().Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
