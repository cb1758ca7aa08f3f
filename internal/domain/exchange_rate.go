package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RateScale is the number of fractional digits kept for stored rates.
const RateScale = 4

// CurrencyPair is an ordered key: (USD, PLN) and (PLN, USD) are different pairs.
type CurrencyPair struct {
	Base    string
	Counter string
}

func NewCurrencyPair(base, counter string) CurrencyPair {
	return CurrencyPair{Base: strings.ToUpper(base), Counter: strings.ToUpper(counter)}
}

// Reverse returns the reciprocal pair.
func (p CurrencyPair) Reverse() CurrencyPair {
	return CurrencyPair{Base: p.Counter, Counter: p.Base}
}

// Key is the persisted form, "BASE-COUNTER".
func (p CurrencyPair) Key() string {
	return p.Base + "-" + p.Counter
}

func (p CurrencyPair) String() string { return p.Key() }

func ParseCurrencyPair(key string) (CurrencyPair, error) {
	base, counter, ok := strings.Cut(key, "-")
	if !ok || len(base) != 3 || len(counter) != 3 {
		return CurrencyPair{}, fmt.Errorf("malformed currency pair %q", key)
	}
	return NewCurrencyPair(base, counter), nil
}

// ExchangeRate is one append-only observation of a pair's rate.
type ExchangeRate struct {
	ID        int64           `json:"id"`
	Pair      CurrencyPair    `json:"pair"`
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewExchangeRate(pair CurrencyPair, rate decimal.Decimal, at time.Time) *ExchangeRate {
	return &ExchangeRate{
		Pair:      pair,
		Rate:      rate.Round(RateScale),
		Timestamp: at,
	}
}

// IsFresh reports whether the observation is younger than maxAge at now.
func (r *ExchangeRate) IsFresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(r.Timestamp) < maxAge
}

type ExchangeRateRepository interface {
	// GetLatestRate returns the newest observation for pair, or nil if none exists.
	GetLatestRate(pair CurrencyPair) (*ExchangeRate, error)
	// SaveRate appends an observation; existing ones are never overwritten.
	SaveRate(rate *ExchangeRate) error
}
