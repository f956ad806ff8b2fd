package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pali-wallet/palid/pkg/explorer"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	txKeyPrefix      = "tx:"
	accountKeyPrefix = "account:"
)

// TransactionObservable polls the confirmations of a tx until they reach
// MinConfirmations.
type TransactionObservable struct {
	TxID             string
	MinConfirmations int
	Source           ConfirmationSource
}

// NewTransactionObservable returns an observable for the given tx.
func NewTransactionObservable(
	txid string, minConfirmations int, source ConfirmationSource,
) *TransactionObservable {
	if minConfirmations <= 0 {
		minConfirmations = 1
	}
	return &TransactionObservable{txid, minConfirmations, source}
}

// TransactionKey returns the key of the observable for the given tx.
func TransactionKey(txid string) string {
	return txKeyPrefix + txid
}

func (t *TransactionObservable) observe(
	ctx context.Context,
	errChan chan<- error,
	eventChan chan<- Event,
	rateLimiter *rate.Limiter,
) bool {
	if err := rateLimiter.Wait(ctx); err != nil {
		sendErr(ctx, errChan, err)
		return false
	}

	confirmations, err := t.Source.GetConfirmations(ctx, t.TxID)
	if err != nil {
		sendErr(ctx, errChan, fmt.Errorf("tx %s: %w", t.TxID, err))
		return false
	}

	eventType := TransactionUnconfirmed
	if confirmations >= t.MinConfirmations {
		eventType = TransactionConfirmed
	}
	sendEvent(ctx, eventChan, TransactionEvent{
		EventType:     eventType,
		TxID:          t.TxID,
		Confirmations: confirmations,
	})

	return eventType == TransactionConfirmed
}

func (t *TransactionObservable) Key() string {
	return TransactionKey(t.TxID)
}

// AccountObservable polls the state of an xpub and notifies whenever either
// balance or number of txs change.
type AccountObservable struct {
	AccountID string
	Xpub      string
	Source    AccountSource

	initialized   bool
	balance       uint64
	unconfirmed   int64
	txs           int
	unconfirmedTx int
}

// NewAccountObservable returns an observable for the given account.
func NewAccountObservable(
	accountID, xpub string, source AccountSource,
) *AccountObservable {
	return &AccountObservable{
		AccountID: accountID,
		Xpub:      xpub,
		Source:    source,
	}
}

// AccountKey returns the key of the observable for the given account.
func AccountKey(accountID string) string {
	return accountKeyPrefix + accountID
}

func (a *AccountObservable) observe(
	ctx context.Context,
	errChan chan<- error,
	eventChan chan<- Event,
	rateLimiter *rate.Limiter,
) bool {
	if err := rateLimiter.Wait(ctx); err != nil {
		sendErr(ctx, errChan, err)
		return false
	}

	account, err := a.Source.GetAccount(ctx, a.Xpub, explorer.AccountOpts{
		Details: explorer.DetailsBasic,
	})
	if err != nil {
		sendErr(ctx, errChan, fmt.Errorf("account %s: %w", a.AccountID, err))
		return false
	}

	changed := a.initialized && (account.Balance.Uint64() != a.balance ||
		account.UnconfirmedDelta() != a.unconfirmed ||
		account.Txs != a.txs ||
		account.UnconfirmedTxs != a.unconfirmedTx)

	a.initialized = true
	a.balance = account.Balance.Uint64()
	a.unconfirmed = account.UnconfirmedDelta()
	a.txs = account.Txs
	a.unconfirmedTx = account.UnconfirmedTxs

	if changed {
		sendEvent(ctx, eventChan, AccountEvent{
			AccountID: a.AccountID,
			Xpub:      a.Xpub,
			Account:   account,
		})
	}
	return false
}

func (a *AccountObservable) Key() string {
	return AccountKey(a.AccountID)
}

func sendErr(ctx context.Context, errChan chan<- error, err error) {
	// Errors caused by the observation being stopped are not reported.
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	select {
	case errChan <- err:
	case <-ctx.Done():
	default:
		log.WithError(err).Warn("crawler error queue is full, dropping error")
	}
}

func sendEvent(ctx context.Context, eventChan chan<- Event, event Event) {
	select {
	case eventChan <- event:
	case <-ctx.Done():
	}
}

type observableHandler struct {
	observable  Observable
	interval    time.Duration
	eventChan   chan<- Event
	errChan     chan<- error
	rateLimiter *rate.Limiter
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	onComplete  func(oh *observableHandler)
}

func newObservableHandler(
	observable Observable,
	interval time.Duration,
	eventChan chan<- Event,
	errChan chan<- error,
	rateLimiter *rate.Limiter,
	onComplete func(oh *observableHandler),
) *observableHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &observableHandler{
		observable:  observable,
		interval:    interval,
		eventChan:   eventChan,
		errChan:     errChan,
		rateLimiter: rateLimiter,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		onComplete:  onComplete,
	}
}

func (oh *observableHandler) start() {
	oh.logAction("start")
	defer close(oh.done)

	ticker := time.NewTicker(oh.interval)
	defer ticker.Stop()

	for {
		if done := oh.observable.observe(
			oh.ctx, oh.errChan, oh.eventChan, oh.rateLimiter,
		); done {
			oh.logAction("done")
			oh.onComplete(oh)
			return
		}

		select {
		case <-oh.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// stop cancels the observation and waits for any in-flight poll to return.
func (oh *observableHandler) stop() {
	oh.logAction("stop")
	oh.cancel()
	<-oh.done
}

func (oh *observableHandler) logAction(action string) {
	obs := oh.observable
	switch o := obs.(type) {
	case *AccountObservable:
		log.Debugf("%s observing account: %v", action, o.AccountID)
	case *TransactionObservable:
		log.Debugf("%s observing tx: %v", action, o.TxID)
	}
}

func observableType(obs Observable) string {
	switch obs.(type) {
	case *AccountObservable:
		return "account"
	case *TransactionObservable:
		return "transaction"
	default:
		return "unknown"
	}
}
