package application

import (
	"fmt"
	"sync"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/explorer"
)

// ExplorerFactory creates the indexer client of a Syscoin network.
type ExplorerFactory func(network domain.Network) (explorer.Service, error)

type explorerRegistry struct {
	networks domain.Networks
	factory  ExplorerFactory

	lock      sync.Mutex
	explorers map[string]explorer.Service
}

// NewExplorerRegistry returns a provider that lazily creates, and then
// reuses, one indexer client per Syscoin network.
func NewExplorerRegistry(
	networks domain.Networks, factory ExplorerFactory,
) ports.ExplorerProvider {
	return &explorerRegistry{
		networks:  networks,
		factory:   factory,
		explorers: make(map[string]explorer.Service),
	}
}

func (r *explorerRegistry) Explorer(networkID string) (explorer.Service, error) {
	network, err := r.networks.Get(networkID)
	if err != nil {
		return nil, err
	}
	if !network.IsSyscoin() {
		return nil, fmt.Errorf("%w: no indexer for %s", domain.ErrUnsupportedOnNetwork, network.ID)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if svc, ok := r.explorers[network.ID]; ok {
		return svc, nil
	}
	svc, err := r.factory(network)
	if err != nil {
		return nil, unavailable(err)
	}
	r.explorers[network.ID] = svc
	return svc, nil
}
