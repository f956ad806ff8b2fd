package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/mathutil"
	"github.com/pali-wallet/palid/pkg/stats"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ErrPriceNotAvailable is returned before the first price is received.
var ErrPriceNotAvailable = errors.New("fiat price not available yet")

// FiatPrice is the price of SYS in a fiat currency.
type FiatPrice struct {
	Currency  string          `json:"currency"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// FiatBalance is the balance of an account valued in fiat.
type FiatBalance struct {
	AccountID int             `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Value     decimal.Decimal `json:"value"`
}

// PriceService keeps the latest fiat prices of SYS fed by a price feeder.
type PriceService interface {
	Start() error
	Stop()
	GetPrice(currency string) (FiatPrice, error)
	FiatBalance(ctx context.Context, accountID int) (*FiatBalance, error)
}

type priceService struct {
	feeder      ports.PriceFeeder
	repoManager ports.RepoManager
	currency    string

	lock   sync.RWMutex
	prices map[string]FiatPrice
}

// NewPriceService returns a price service valuing balances in the given
// currency.
func NewPriceService(
	feeder ports.PriceFeeder, repoManager ports.RepoManager, currency string,
) PriceService {
	return &priceService{
		feeder:      feeder,
		repoManager: repoManager,
		currency:    strings.ToLower(currency),
		prices:      make(map[string]FiatPrice),
	}
}

// Start starts the feeder and a goroutine that reads from its feed channel
// until the feeder is stopped.
func (s *priceService) Start() error {
	if err := s.feeder.Start(); err != nil {
		return err
	}

	go func() {
		log.Debug("reading price feed chan started")

		for feed := range s.feeder.FeedChan() {
			currency := strings.ToLower(feed.GetCurrency())
			price := FiatPrice{
				Currency:  currency,
				Price:     feed.GetPrice(),
				UpdatedAt: feed.GetTime(),
			}
			s.lock.Lock()
			s.prices[currency] = price
			s.lock.Unlock()

			f, _ := price.Price.Float64()
			stats.FiatPrice.WithLabelValues(currency).Set(f)
		}

		log.Debug("reading price feed chan stopped")
	}()
	return nil
}

func (s *priceService) Stop() {
	s.feeder.Stop()
}

func (s *priceService) GetPrice(currency string) (FiatPrice, error) {
	if currency == "" {
		currency = s.currency
	}
	s.lock.RLock()
	defer s.lock.RUnlock()

	price, ok := s.prices[strings.ToLower(currency)]
	if !ok {
		return FiatPrice{}, ErrPriceNotAvailable
	}
	return price, nil
}

func (s *priceService) FiatBalance(
	ctx context.Context, accountID int,
) (*FiatBalance, error) {
	account, err := s.repoManager.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	price, err := s.GetPrice(s.currency)
	if err != nil {
		return nil, err
	}
	return fiatBalance(account, price), nil
}

func fiatBalance(account *domain.Account, price FiatPrice) *FiatBalance {
	return &FiatBalance{
		AccountID: account.ID,
		Balance:   account.Balance,
		Currency:  price.Currency,
		Value:     mathutil.FiatValue(account.Balance, price.Price),
	}
}
