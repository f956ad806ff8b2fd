package webhookpubsub

import (
	"errors"
	"path/filepath"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

// store persists subscriptions, indexed by topic.
type store struct {
	db *badgerhold.Store
}

func newStore(baseDir string, logger badger.Logger) (*store, error) {
	opts := badger.DefaultOptions("")
	if len(baseDir) > 0 {
		opts = badger.DefaultOptions(filepath.Join(baseDir, "pubsub"))
	} else {
		opts.InMemory = true
	}
	opts.Logger = logger

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}
	return &store{db}, nil
}

func (s *store) add(sub Subscription) error {
	return s.db.Insert(sub.ID, sub)
}

func (s *store) get(id string) (*Subscription, error) {
	sub := Subscription{}
	if err := s.db.Get(id, &sub); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *store) remove(id string) error {
	if err := s.db.Delete(id, Subscription{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	return nil
}

// list returns the subscriptions of the given topics, or all of them if
// none is given, sorted by id.
func (s *store) list(topics ...string) (subscriptions, error) {
	var query *badgerhold.Query
	if len(topics) > 0 {
		values := make([]interface{}, 0, len(topics))
		for _, t := range topics {
			if t == ports.UnspecifiedTopic {
				values = nil
				break
			}
			values = append(values, t)
		}
		if values != nil {
			query = badgerhold.Where("Event").In(values...).Index("Event")
		}
	}

	subs := make(subscriptions, 0)
	if err := s.db.Find(&subs, query); err != nil {
		return nil, err
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

func (s *store) close() error {
	return s.db.Close()
}
