package application

import (
	"context"
	"sync"

	"github.com/pali-wallet/palid/pkg/crawler"
	log "github.com/sirupsen/logrus"
)

// BlockchainListener routes the events of the crawler to the flows waiting
// for confirmations and to the account watchers.
type BlockchainListener interface {
	StartObservation()
	StopObservation()
	// WaitForConfirmations blocks until the tx reaches minConfirmations or
	// ctx is done. Waiters of the same tx share its polling, which stops
	// once the last of them returns.
	WaitForConfirmations(
		ctx context.Context, txid string, minConfirmations int,
		source crawler.ConfirmationSource,
	) (int, error)
	ObserveAccount(accountID string, xpub string, source crawler.AccountSource)
	StopObserveAccount(accountID string)
	// OnAccountUpdated sets the handler of account changes.
	OnAccountUpdated(handler func(event crawler.AccountEvent))
}

type blockchainListener struct {
	crawlerSvc crawler.Service

	lock           sync.Mutex
	started        bool
	watches        map[string]*txWatch
	accountHandler func(event crawler.AccountEvent)
}

// txWatch groups the waiters of a tx. The tx is polled until its
// observable, whose threshold is the highest of the waiters', completes or
// the last waiter leaves.
type txWatch struct {
	waiters    []*txWaiter
	observable *crawler.TransactionObservable
}

type txWaiter struct {
	ch               chan int
	minConfirmations int
}

// NewBlockchainListener returns a listener for the given crawler.
func NewBlockchainListener(crawlerSvc crawler.Service) BlockchainListener {
	return &blockchainListener{
		crawlerSvc: crawlerSvc,
		watches:    make(map[string]*txWatch),
	}
}

func (b *blockchainListener) StartObservation() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.started {
		return
	}
	b.started = true

	log.Debug("start observing blockchain")
	go b.crawlerSvc.Start()
	go b.listenToEventChannel()
}

func (b *blockchainListener) StopObservation() {
	log.Debug("stop observing blockchain")
	b.crawlerSvc.Stop()
}

func (b *blockchainListener) WaitForConfirmations(
	ctx context.Context, txid string, minConfirmations int,
	source crawler.ConfirmationSource,
) (int, error) {
	if minConfirmations <= 0 {
		minConfirmations = 1
	}
	w := &txWaiter{make(chan int, 1), minConfirmations}
	b.addWaiter(txid, w, source)
	defer b.removeWaiter(txid, w)

	select {
	case confirmations := <-w.ch:
		return confirmations, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (b *blockchainListener) ObserveAccount(
	accountID, xpub string, source crawler.AccountSource,
) {
	b.crawlerSvc.AddObservable(crawler.NewAccountObservable(accountID, xpub, source))
}

func (b *blockchainListener) StopObserveAccount(accountID string) {
	b.crawlerSvc.RemoveObservable(&crawler.AccountObservable{AccountID: accountID})
}

func (b *blockchainListener) OnAccountUpdated(handler func(event crawler.AccountEvent)) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.accountHandler = handler
}

func (b *blockchainListener) listenToEventChannel() {
	for event := range b.crawlerSvc.GetEventChannel() {
		switch e := event.(type) {
		case crawler.QuitEvent:
			log.Debug("crawler stopped, blockchain listener quits")
			return

		case crawler.TransactionEvent:
			log.Debugf("tx %s has %d confirmations", e.TxID, e.Confirmations)
			b.notify(e.TxID, e.Confirmations)

		case crawler.AccountEvent:
			b.lock.Lock()
			handler := b.accountHandler
			b.lock.Unlock()

			if handler != nil {
				go handler(e)
			}
		}
	}
}

// notify wakes the waiters of the tx whose threshold is reached.
func (b *blockchainListener) notify(txid string, confirmations int) {
	b.lock.Lock()
	defer b.lock.Unlock()

	watch, ok := b.watches[txid]
	if !ok {
		return
	}
	for _, w := range watch.waiters {
		if confirmations < w.minConfirmations {
			continue
		}
		select {
		case w.ch <- confirmations:
		default:
		}
	}
}

// addWaiter registers w and makes sure the tx is polled at least until w's
// threshold is reached.
func (b *blockchainListener) addWaiter(
	txid string, w *txWaiter, source crawler.ConfirmationSource,
) {
	b.lock.Lock()
	defer b.lock.Unlock()

	watch, ok := b.watches[txid]
	if !ok {
		watch = &txWatch{}
		b.watches[txid] = watch
	}
	watch.waiters = append(watch.waiters, w)

	key := crawler.TransactionKey(txid)
	if watch.observable != nil &&
		watch.observable.MinConfirmations >= w.minConfirmations &&
		b.crawlerSvc.IsObserving(key) {
		return
	}

	minConfirmations := w.minConfirmations
	if watch.observable != nil {
		if watch.observable.MinConfirmations > minConfirmations {
			minConfirmations = watch.observable.MinConfirmations
		}
		b.crawlerSvc.RemoveObservable(watch.observable)
	}
	watch.observable = crawler.NewTransactionObservable(txid, minConfirmations, source)
	b.crawlerSvc.AddObservable(watch.observable)
}

// removeWaiter drops w and stops polling the tx once no one waits for it.
func (b *blockchainListener) removeWaiter(txid string, w *txWaiter) {
	b.lock.Lock()
	defer b.lock.Unlock()

	watch, ok := b.watches[txid]
	if !ok {
		return
	}
	for i, ww := range watch.waiters {
		if ww == w {
			watch.waiters = append(watch.waiters[:i], watch.waiters[i+1:]...)
			break
		}
	}
	if len(watch.waiters) > 0 {
		return
	}
	delete(b.watches, txid)
	b.crawlerSvc.RemoveObservable(watch.observable)
}
