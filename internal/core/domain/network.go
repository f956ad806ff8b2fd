package domain

import (
	"fmt"

	"github.com/pali-wallet/palid/pkg/sysaddress"
)

const (
	NetworkMain    = "main"
	NetworkTestnet = "testnet"
	NetworkWeb3    = "web3"
)

// NetworkKind is the model of the chain.
type NetworkKind int

const (
	// NetworkKindSyscoin is the UTXO chain with SPT tokens.
	NetworkKindSyscoin NetworkKind = iota
	// NetworkKindWeb3 is an account-model EVM chain.
	NetworkKindWeb3
)

func (k NetworkKind) String() string {
	switch k {
	case NetworkKindSyscoin:
		return "syscoin"
	case NetworkKindWeb3:
		return "web3"
	default:
		return "unknown"
	}
}

// Network is a chain the wallet can be connected to.
type Network struct {
	ID          string
	Label       string
	Kind        NetworkKind
	ExplorerURL string
	ChainID     int64
}

// IsSyscoin returns whether the network is the UTXO chain.
func (n Network) IsSyscoin() bool {
	return n.Kind == NetworkKindSyscoin
}

// IsValidAddress returns whether address can receive funds on the network.
func (n Network) IsValidAddress(address string) bool {
	if n.IsSyscoin() {
		return sysaddress.IsValidSYSAddress(address, n.ID)
	}
	return sysaddress.IsValidEVMAddress(address)
}

// Networks is the set of networks known by the wallet.
type Networks map[string]Network

// NewNetworks returns the Syscoin networks and, if rpcURL is not empty, the
// web3 one.
func NewNetworks(mainURL, testnetURL, rpcURL string, chainID int64) Networks {
	networks := Networks{
		NetworkMain: {
			ID:          NetworkMain,
			Label:       "Syscoin Mainnet",
			Kind:        NetworkKindSyscoin,
			ExplorerURL: mainURL,
		},
		NetworkTestnet: {
			ID:          NetworkTestnet,
			Label:       "Syscoin Testnet",
			Kind:        NetworkKindSyscoin,
			ExplorerURL: testnetURL,
		},
	}
	if rpcURL != "" {
		networks[NetworkWeb3] = Network{
			ID:          NetworkWeb3,
			Label:       fmt.Sprintf("Web3 (chain %d)", chainID),
			Kind:        NetworkKindWeb3,
			ExplorerURL: rpcURL,
			ChainID:     chainID,
		}
	}
	return networks
}

// Get returns the network with the given id.
func (n Networks) Get(id string) (Network, error) {
	network, ok := n[id]
	if !ok {
		return Network{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, id)
	}
	return network, nil
}
