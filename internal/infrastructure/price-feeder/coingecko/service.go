package coingeckofeeder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/circuitbreaker"
	"github.com/pali-wallet/palid/pkg/httputil"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	// DefaultBaseURL is the base url of the public coingecko api.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	coinID         = "syscoin"

	requestTimeout = 15 * time.Second
)

type service struct {
	baseURL    string
	currencies []string
	interval   time.Duration
	cb         *gobreaker.CircuitBreaker

	lock     *sync.Mutex
	started  bool
	stopped  bool
	feedChan chan ports.PriceFeed
	quitChan chan struct{}
}

// NewCoinGeckoPriceFeeder returns a feeder that polls the SYS price in the
// given fiat currencies every interval.
func NewCoinGeckoPriceFeeder(
	baseURL string, currencies []string, interval time.Duration,
) (ports.PriceFeeder, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid price api url: %w", err)
	}
	if len(currencies) <= 0 {
		return nil, fmt.Errorf("missing fiat currencies")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be greater than zero")
	}

	normalized := make([]string, 0, len(currencies))
	for _, c := range currencies {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(c)))
	}

	return &service{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		currencies: normalized,
		interval:   interval,
		cb:         circuitbreaker.NewCircuitBreaker("coingecko"),
		lock:       &sync.Mutex{},
		feedChan:   make(chan ports.PriceFeed),
		quitChan:   make(chan struct{}),
	}, nil
}

// Start starts polling in background. The feed channel is closed once the
// feeder is stopped.
func (s *service) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.started || s.stopped {
		return fmt.Errorf("price feeder already started")
	}
	s.started = true

	go s.start()
	return nil
}

func (s *service) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.started || s.stopped {
		return
	}
	s.stopped = true
	close(s.quitChan)
}

func (s *service) FeedChan() chan ports.PriceFeed {
	return s.feedChan
}

func (s *service) start() {
	defer close(s.feedChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if !s.poll() {
			return
		}
		select {
		case <-s.quitChan:
			return
		case <-ticker.C:
		}
	}
}

// poll fetches the latest prices and writes them to the feed channel. It
// returns false if the feeder has been stopped meanwhile.
func (s *service) poll() bool {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	feeds, err := s.fetchPrices(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to fetch fiat prices")
		return true
	}
	for _, feed := range feeds {
		select {
		case <-s.quitChan:
			return false
		case s.feedChan <- feed:
		}
	}
	return true
}

func (s *service) fetchPrices(ctx context.Context) ([]ports.PriceFeed, error) {
	query := url.Values{}
	query.Set("ids", coinID)
	query.Set("vs_currencies", strings.Join(s.currencies, ","))
	endpoint := fmt.Sprintf("%s/simple/price?%s", s.baseURL, query.Encode())

	res, err := s.cb.Execute(func() (interface{}, error) {
		status, body, err := httputil.NewHTTPRequest(
			ctx, http.MethodGet, endpoint, "", nil,
		)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("price api returned status %d", status)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	prices := map[string]map[string]decimal.Decimal{}
	if err := json.Unmarshal([]byte(res.(string)), &prices); err != nil {
		return nil, fmt.Errorf("failed to parse prices: %w", err)
	}

	now := time.Now()
	feeds := make([]ports.PriceFeed, 0, len(s.currencies))
	for _, currency := range s.currencies {
		price, ok := prices[coinID][currency]
		if !ok {
			continue
		}
		feeds = append(feeds, &priceFeed{
			currency: currency,
			price:    price,
			time:     now,
		})
	}
	return feeds, nil
}
