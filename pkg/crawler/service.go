package crawler

import (
	"sync"
	"time"

	"github.com/pali-wallet/palid/pkg/stats"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	eventQueueMaxSize = 100
	errorQueueMaxSize = 10

	// DefaultInterval is the default polling interval of every observable.
	DefaultInterval = 16 * time.Second
	// DefaultExplorerLimit is the default max number of polls per second.
	DefaultExplorerLimit = 10
	// DefaultExplorerTokenBurst is the default burst of the rate limiter.
	DefaultExplorerTokenBurst = 1
)

type blockchainCrawler struct {
	interval     time.Duration
	errChan      chan error
	eventChan    chan Event
	observables  map[string]*observableHandler
	errorHandler func(err error)
	rateLimiter  *rate.Limiter
	stopped      bool
	mutex        *sync.RWMutex
}

// Opts defines the parameters needed for creating a crawler service with
// NewService method.
type Opts struct {
	Interval           time.Duration
	ExplorerLimit      int
	ExplorerTokenBurst int
	ErrorHandler       func(err error)
}

// NewService returns a crawler that is ready to watch for blockchain
// activities. Use Start and Stop methods to manage it.
func NewService(opts Opts) Service {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	limit := opts.ExplorerLimit
	if limit <= 0 {
		limit = DefaultExplorerLimit
	}
	burst := opts.ExplorerTokenBurst
	if burst <= 0 {
		burst = DefaultExplorerTokenBurst
	}
	errorHandler := opts.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(err error) {
			log.WithError(err).Warn("crawler")
		}
	}

	return &blockchainCrawler{
		interval:     interval,
		errChan:      make(chan error, errorQueueMaxSize),
		eventChan:    make(chan Event, eventQueueMaxSize),
		observables:  map[string]*observableHandler{},
		errorHandler: errorHandler,
		rateLimiter:  rate.NewLimiter(rate.Limit(limit), burst),
		mutex:        &sync.RWMutex{},
	}
}

// Start starts crawler which forwards the errors occurred while observing to
// the error handler. It returns once the crawler is stopped.
func (bc *blockchainCrawler) Start() {
	for err := range bc.errChan {
		go bc.errorHandler(err)
	}
}

// Stop stops all observations and the crawler.
func (bc *blockchainCrawler) Stop() {
	bc.mutex.Lock()
	if bc.stopped {
		bc.mutex.Unlock()
		return
	}
	bc.stopped = true
	handlers := bc.observables
	bc.observables = map[string]*observableHandler{}
	bc.mutex.Unlock()

	wg := &sync.WaitGroup{}
	for _, obsHandler := range handlers {
		wg.Add(1)
		go func(oh *observableHandler) {
			defer wg.Done()
			oh.stop()
			stats.ObservedItems.WithLabelValues(observableType(oh.observable)).Dec()
		}(obsHandler)
	}
	wg.Wait()

	bc.eventChan <- QuitEvent{}
	close(bc.errChan)
}

// GetEventChannel returns Event channel which can be used to "listen" to
// blockchain events
func (bc *blockchainCrawler) GetEventChannel() chan Event {
	return bc.eventChan
}

// AddObservable adds new Observable to the list of Observables to be "watched
// over" only if the same Observable is not already in the list
func (bc *blockchainCrawler) AddObservable(observable Observable) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if bc.stopped {
		log.Warnf("crawler stopped, skip observing %s", observable.Key())
		return
	}
	if _, ok := bc.observables[observable.Key()]; ok {
		return
	}

	obsHandler := newObservableHandler(
		observable,
		bc.interval,
		bc.eventChan,
		bc.errChan,
		bc.rateLimiter,
		bc.complete,
	)
	bc.observables[observable.Key()] = obsHandler
	stats.ObservedItems.WithLabelValues(observableType(observable)).Inc()
	go obsHandler.start()
}

// RemoveObservable stops "watching" given Observable. Once returned, no more
// polls are made for it.
func (bc *blockchainCrawler) RemoveObservable(observable Observable) {
	bc.mutex.Lock()
	obsHandler, ok := bc.observables[observable.Key()]
	if ok {
		delete(bc.observables, observable.Key())
	}
	bc.mutex.Unlock()

	if !ok {
		return
	}
	obsHandler.stop()
	stats.ObservedItems.WithLabelValues(observableType(observable)).Dec()
}

// IsObserving returns whether an observable with the given key is polled.
func (bc *blockchainCrawler) IsObserving(key string) bool {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	_, ok := bc.observables[key]
	return ok
}

// complete drops an observable that doesn't need to be polled anymore.
func (bc *blockchainCrawler) complete(oh *observableHandler) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	key := oh.observable.Key()
	if current, ok := bc.observables[key]; ok && current == oh {
		delete(bc.observables, key)
		stats.ObservedItems.WithLabelValues(observableType(oh.observable)).Dec()
	}
}
