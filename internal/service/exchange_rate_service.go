package service

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"minibank/internal/domain"
	"minibank/internal/errors"
	"minibank/internal/observability"
)

// DefaultRateMaxAge is how long a stored observation may be used before a
// fresh one is fetched.
const DefaultRateMaxAge = 5 * time.Minute

// ForexProvider returns the spot rate of a currency against the provider's
// reference currency.
type ForexProvider interface {
	GetSpotRate(code string) (decimal.Decimal, error)
}

type ExchangeRateService struct {
	rates    domain.ExchangeRateRepository
	provider ForexProvider
	maxAge   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewExchangeRateService(
	rates domain.ExchangeRateRepository,
	provider ForexProvider,
	maxAge time.Duration,
	logger *slog.Logger,
) *ExchangeRateService {
	if maxAge <= 0 {
		maxAge = DefaultRateMaxAge
	}
	return &ExchangeRateService{
		rates:    rates,
		provider: provider,
		maxAge:   maxAge,
		now:      time.Now,
		logger:   logger,
	}
}

// Convert returns amount expressed in pair.Counter, rounded half-up to two
// decimals.
//
// A fresh forward observation is multiplied in; when there is no forward
// observation at all a fresh reverse one is divided out. Otherwise both spot
// rates are fetched, the cross rate is stored and used. If the only thing
// found was a stale reverse observation, the refreshed rate is stored under
// the reverse key so that series keeps being extended.
func (s *ExchangeRateService) Convert(amount decimal.Decimal, pair domain.CurrencyPair) (decimal.Decimal, error) {
	now := s.now()
	reverse := pair.Reverse()

	latest, err := s.rates.GetLatestRate(pair)
	if err != nil {
		return decimal.Zero, err
	}
	if latest != nil && latest.IsFresh(now, s.maxAge) {
		observability.RateLookups.WithLabelValues(observability.RateHitForward).Inc()
		return amount.Mul(latest.Rate).Round(domain.MoneyScale), nil
	}

	if latest == nil {
		latest, err = s.rates.GetLatestRate(reverse)
		if err != nil {
			return decimal.Zero, err
		}
		if latest != nil && latest.IsFresh(now, s.maxAge) {
			observability.RateLookups.WithLabelValues(observability.RateHitReverse).Inc()
			return amount.DivRound(latest.Rate, domain.MoneyScale), nil
		}
	}

	baseRate, err := s.provider.GetSpotRate(pair.Base)
	if err != nil {
		return decimal.Zero, asExternal(err)
	}
	counterRate, err := s.provider.GetSpotRate(pair.Counter)
	if err != nil {
		return decimal.Zero, asExternal(err)
	}
	if !baseRate.IsPositive() || !counterRate.IsPositive() {
		return decimal.Zero, errors.ErrExternalDependency.WithDetails("provider returned a non-positive rate")
	}
	observability.RateLookups.WithLabelValues(observability.RateFetched).Inc()

	if latest != nil && latest.Pair == reverse {
		reverseCross := counterRate.DivRound(baseRate, domain.RateScale)
		if err := s.save(reverse, reverseCross, now); err != nil {
			return decimal.Zero, err
		}
		return amount.DivRound(reverseCross, domain.MoneyScale), nil
	}

	cross := baseRate.DivRound(counterRate, domain.RateScale)
	if err := s.save(pair, cross, now); err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(cross).Round(domain.MoneyScale), nil
}

func (s *ExchangeRateService) save(pair domain.CurrencyPair, rate decimal.Decimal, at time.Time) error {
	if rate.IsZero() {
		return errors.ErrExternalDependency.WithDetails("cross rate rounds to zero for " + pair.Key())
	}
	observation := domain.NewExchangeRate(pair, rate, at)
	if err := s.rates.SaveRate(observation); err != nil {
		return err
	}
	s.logger.Info("Stored exchange rate", "pair", pair.Key(), "rate", observation.Rate)
	return nil
}

func asExternal(err error) error {
	if errors.IsExternalDependency(err) {
		return err
	}
	return errors.ErrExternalDependency.Wrap(err)
}
