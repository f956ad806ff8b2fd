package ports

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceFeed is the price of SYS in a fiat currency.
type PriceFeed interface {
	GetCurrency() string
	GetPrice() decimal.Decimal
	GetTime() time.Time
}

type PriceFeeder interface {
	Start() error
	Stop()

	FeedChan() chan PriceFeed
}
