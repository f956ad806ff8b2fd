package crawler

import (
	"context"

	"github.com/pali-wallet/palid/pkg/explorer"
	"golang.org/x/time/rate"
)

// Event are emitted through a channel during observation.
type Event interface {
	Type() EventType
}

// Observable represent object that can be observe on the blockchain.
// observe returns true when the observable doesn't need to be polled anymore.
type Observable interface {
	observe(
		ctx context.Context,
		errChan chan<- error,
		eventChan chan<- Event,
		rateLimiter *rate.Limiter,
	) bool
	Key() string
}

// ConfirmationSource returns the number of confirmations of a tx. Both the
// Syscoin indexer and the web3 client implement it.
type ConfirmationSource interface {
	GetConfirmations(ctx context.Context, txid string) (int, error)
}

// AccountSource returns the state of an xpub.
type AccountSource interface {
	GetAccount(
		ctx context.Context, xpubOrAddress string, opts explorer.AccountOpts,
	) (*explorer.Account, error)
}

// Service is the interface for Crawler
type Service interface {
	Start()
	Stop()
	AddObservable(observable Observable)
	RemoveObservable(observable Observable)
	IsObserving(key string) bool
	GetEventChannel() chan Event
}
