package application

import (
	"context"
	"sort"
	"strings"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
)

// ContactsService manages the address book.
type ContactsService interface {
	// Add validates address against the given network and stores a new
	// contact.
	Add(ctx context.Context, label, address, network string) (*domain.Contact, error)
	Update(ctx context.Context, id, label, address string) (*domain.Contact, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Contact, error)
	Get(ctx context.Context, id string) (*domain.Contact, error)
}

type contactsService struct {
	repoManager ports.RepoManager
	networks    domain.Networks
}

func NewContactsService(
	repoManager ports.RepoManager, networks domain.Networks,
) ContactsService {
	return &contactsService{repoManager, networks}
}

func (c *contactsService) Add(
	ctx context.Context, label, address, network string,
) (*domain.Contact, error) {
	n, err := c.networks.Get(network)
	if err != nil {
		return nil, err
	}
	contact, err := domain.NewContact(label, address, n)
	if err != nil {
		return nil, err
	}
	if err := c.repoManager.ContactRepository().AddContact(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// Update changes label and/or address of a contact. Empty values are left
// unchanged.
func (c *contactsService) Update(
	ctx context.Context, id, label, address string,
) (*domain.Contact, error) {
	var updated domain.Contact
	if err := c.repoManager.ContactRepository().UpdateContact(
		ctx, id, func(contact *domain.Contact) (*domain.Contact, error) {
			if l := strings.TrimSpace(label); l != "" {
				contact.Label = l
			}
			if a := strings.TrimSpace(address); a != "" {
				contact.Address = a
			}
			network, err := c.networks.Get(contact.Network)
			if err != nil {
				return nil, err
			}
			if err := contact.Validate(network); err != nil {
				return nil, err
			}
			updated = *contact
			return contact, nil
		},
	); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *contactsService) Remove(ctx context.Context, id string) error {
	return c.repoManager.ContactRepository().DeleteContact(ctx, id)
}

func (c *contactsService) List(ctx context.Context) ([]domain.Contact, error) {
	contacts, err := c.repoManager.ContactRepository().GetAllContacts(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(contacts, func(i, j int) bool {
		return strings.ToLower(contacts[i].Label) < strings.ToLower(contacts[j].Label)
	})
	return contacts, nil
}

func (c *contactsService) Get(ctx context.Context, id string) (*domain.Contact, error) {
	return c.repoManager.ContactRepository().GetContact(ctx, id)
}
