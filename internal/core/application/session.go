package application

import (
	"context"
	"sync"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/pkg/wallet"
)

// Session is the state of an unlocked wallet. It's created by Unlock and
// discarded by Lock, which cancels its context and therefore every flow and
// watcher started within it.
//
// The session holds one slot per request kind. A slot contains the request
// staged by a page and not yet confirmed, staging overwrites it. Confirming
// takes the request out of the slot and marks the kind in flight until the
// request is broadcasted or fails.
type Session struct {
	wallet     *wallet.Wallet
	passphrase string

	ctx    context.Context
	cancel context.CancelFunc

	lock     sync.Mutex
	slots    map[domain.TxKind]domain.TxRequest
	inFlight map[domain.TxKind]bool
}

func newSession(
	parent context.Context, w *wallet.Wallet, passphrase string,
) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		wallet:     w,
		passphrase: passphrase,
		ctx:        ctx,
		cancel:     cancel,
		slots:      make(map[domain.TxKind]domain.TxRequest),
		inFlight:   make(map[domain.TxKind]bool),
	}
}

// Context is done when the wallet gets locked.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Wallet returns the decrypted HD wallet.
func (s *Session) Wallet() *wallet.Wallet {
	return s.wallet
}

// Stage writes req in the slot of its kind, replacing any request staged
// and not yet confirmed.
func (s *Session) Stage(req domain.TxRequest) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.slots[req.Kind()] = req
}

// Staged returns the request staged for kind, or nil.
func (s *Session) Staged(kind domain.TxKind) domain.TxRequest {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.slots[kind]
}

// Snapshot returns all the staged requests by kind.
func (s *Session) Snapshot() map[domain.TxKind]domain.TxRequest {
	s.lock.Lock()
	defer s.lock.Unlock()

	snapshot := make(map[domain.TxKind]domain.TxRequest, len(s.slots))
	for k, v := range s.slots {
		snapshot[k] = v
	}
	return snapshot
}

// SupplyWalletParams merges the fee and rbf chosen in the popup into the
// request staged for kind.
func (s *Session) SupplyWalletParams(
	kind domain.TxKind, params domain.WalletParams,
) error {
	if params.Fee.IsNegative() {
		return domain.ErrInvalidFee
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	req, ok := s.slots[kind]
	if !ok {
		return ErrNoStagedRequest
	}
	req.SetWalletParams(params)
	return nil
}

// Clear empties the slot of kind.
func (s *Session) Clear(kind domain.TxKind) {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.slots, kind)
}

// ClearAll empties every slot.
func (s *Session) ClearAll() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.slots = make(map[domain.TxKind]domain.TxRequest)
}

// IsInFlight returns whether a confirmed request of kind is being
// processed.
func (s *Session) IsInFlight(kind domain.TxKind) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.inFlight[kind]
}

// take atomically moves the request of kind out of its slot and marks the
// kind in flight. release must be called once the request leaves the
// wallet.
func (s *Session) take(kind domain.TxKind) (domain.TxRequest, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.inFlight[kind] {
		return nil, ErrRequestInFlight
	}
	req, ok := s.slots[kind]
	if !ok {
		return nil, ErrNoStagedRequest
	}
	delete(s.slots, kind)
	s.inFlight[kind] = true
	return req, nil
}

func (s *Session) release(kind domain.TxKind) {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.inFlight, kind)
}

func (s *Session) accountKeys(network string, index uint32) (string, string, error) {
	return s.wallet.AccountKeys(wallet.AccountKeysOpts{
		Network: network,
		Account: index,
	})
}

func (s *Session) close() {
	s.cancel()
	s.ClearAll()
}
