package coingeckofeeder

import (
	"time"

	"github.com/shopspring/decimal"
)

type priceFeed struct {
	currency string
	price    decimal.Decimal
	time     time.Time
}

func (p *priceFeed) GetCurrency() string {
	return p.currency
}

func (p *priceFeed) GetPrice() decimal.Decimal {
	return p.price
}

func (p *priceFeed) GetTime() time.Time {
	return p.time
}
