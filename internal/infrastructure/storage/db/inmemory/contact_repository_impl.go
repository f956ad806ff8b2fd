package inmemory

import (
	"context"
	"sync"

	"github.com/pali-wallet/palid/internal/core/domain"
)

// ContactRepositoryImpl represents an in memory storage
type ContactRepositoryImpl struct {
	contacts map[string]domain.Contact

	lock *sync.RWMutex
}

// NewContactRepositoryImpl returns a new empty ContactRepositoryImpl
func NewContactRepositoryImpl() domain.ContactRepository {
	return &ContactRepositoryImpl{
		contacts: map[string]domain.Contact{},
		lock:     &sync.RWMutex{},
	}
}

func (r *ContactRepositoryImpl) AddContact(
	_ context.Context, contact *domain.Contact,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.contacts[contact.ID]; ok {
		return ErrContactAlreadyExists
	}
	r.contacts[contact.ID] = *contact
	return nil
}

func (r *ContactRepositoryImpl) GetContact(
	_ context.Context, id string,
) (*domain.Contact, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	contact, ok := r.contacts[id]
	if !ok {
		return nil, domain.ErrContactNotFound
	}
	return &contact, nil
}

func (r *ContactRepositoryImpl) GetAllContacts(
	_ context.Context,
) ([]domain.Contact, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	contacts := make([]domain.Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func (r *ContactRepositoryImpl) UpdateContact(
	_ context.Context, id string,
	updateFn func(c *domain.Contact) (*domain.Contact, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	contact, ok := r.contacts[id]
	if !ok {
		return domain.ErrContactNotFound
	}
	updated, err := updateFn(&contact)
	if err != nil {
		return err
	}
	r.contacts[id] = *updated
	return nil
}

func (r *ContactRepositoryImpl) DeleteContact(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.contacts[id]; !ok {
		return domain.ErrContactNotFound
	}
	delete(r.contacts, id)
	return nil
}
