package mathutil

import (
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// SysPrecision is the number of decimals of the SYS coin.
const SysPrecision = 8

var (
	// BigOne represents a single unit of SYS in satoshis
	BigOne = uint64(math.Pow10(SysPrecision))
	// BigOneDecimal represents a single unit of SYS as decimal.Decimal
	BigOneDecimal = decimal.NewFromInt(int64(BigOne))

	// ErrNegativeAmount ...
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrTooManyDecimals ...
	ErrTooManyDecimals = errors.New("amount has more decimals than allowed by precision")
	// ErrAmountOverflow ...
	ErrAmountOverflow = errors.New("amount overflows 64 bits")
)

// ToSatoshis converts a decimal amount into its integer representation for
// the given precision. Amounts with more decimals than precision are
// rejected rather than truncated.
func ToSatoshis(amount decimal.Decimal, precision int32) (uint64, error) {
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	shifted := amount.Shift(precision)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrTooManyDecimals
	}
	bi := shifted.BigInt()
	if !bi.IsUint64() {
		return 0, ErrAmountOverflow
	}
	return bi.Uint64(), nil
}

// FromSatoshis converts an integer amount into its decimal representation.
func FromSatoshis(amount uint64, precision int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -precision)
}

// FeeRateFromKB converts a fee rate expressed in coins per kilobyte into
// satoshis per virtual byte, rounding up and never going below 1.
func FeeRateFromKB(feePerKB decimal.Decimal) uint64 {
	if !feePerKB.IsPositive() {
		return 1
	}
	satPerByte := feePerKB.Shift(SysPrecision).Div(decimal.NewFromInt(1000)).Ceil()
	rate := satPerByte.IntPart()
	if rate < 1 {
		return 1
	}
	return uint64(rate)
}

// FiatValue returns the amount valued at the given unit price, rounded to
// cents.
func FiatValue(amount, price decimal.Decimal) decimal.Decimal {
	return amount.Mul(price).Round(2)
}
