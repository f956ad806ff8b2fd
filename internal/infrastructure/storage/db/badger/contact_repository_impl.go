package dbbadger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type contactRepositoryImpl struct {
	store *badgerhold.Store
}

// NewContactRepositoryImpl initialize a badger implementation of the
// domain.ContactRepository
func NewContactRepositoryImpl(store *badgerhold.Store) domain.ContactRepository {
	return contactRepositoryImpl{store}
}

func (c contactRepositoryImpl) AddContact(
	_ context.Context, contact *domain.Contact,
) error {
	if err := c.store.Insert(contact.ID, contact); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return ErrContactAlreadyExists
		}
		return err
	}
	return nil
}

func (c contactRepositoryImpl) GetContact(
	_ context.Context, id string,
) (*domain.Contact, error) {
	var contact domain.Contact
	if err := c.store.Get(id, &contact); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	return &contact, nil
}

func (c contactRepositoryImpl) GetAllContacts(
	_ context.Context,
) ([]domain.Contact, error) {
	var contacts []domain.Contact
	if err := c.store.Find(&contacts, nil); err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = make([]domain.Contact, 0)
	}
	return contacts, nil
}

func (c contactRepositoryImpl) UpdateContact(
	_ context.Context, id string,
	updateFn func(c *domain.Contact) (*domain.Contact, error),
) error {
	return update(c.store, func(tx *badger.Txn) error {
		var contact domain.Contact
		if err := c.store.TxGet(tx, id, &contact); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrContactNotFound
			}
			return err
		}

		updated, err := updateFn(&contact)
		if err != nil {
			return err
		}
		return c.store.TxUpdate(tx, id, updated)
	})
}

func (c contactRepositoryImpl) DeleteContact(_ context.Context, id string) error {
	if err := c.store.Delete(id, domain.Contact{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrContactNotFound
		}
		return err
	}
	return nil
}
