package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Contact is an entry of the address book.
type Contact struct {
	ID      string
	Label   string
	Address string
	Network string
}

// NewContact returns a contact after validating its address for network.
func NewContact(label, address string, network Network) (*Contact, error) {
	c := &Contact{
		ID:      uuid.New().String(),
		Label:   strings.TrimSpace(label),
		Address: strings.TrimSpace(address),
		Network: network.ID,
	}
	if err := c.Validate(network); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks label and address of the contact.
func (c *Contact) Validate(network Network) error {
	if c.Label == "" {
		return ErrInvalidLabel
	}
	if !isValidAddress(c.Address, network) {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, c.Address)
	}
	return nil
}
