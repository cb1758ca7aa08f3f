package repository

import (
	"database/sql"
	"log/slog"

	"github.com/shopspring/decimal"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

type exchangeRateRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewExchangeRateRepository(db SQLExecutor, logger *slog.Logger) domain.ExchangeRateRepository {
	return &exchangeRateRepository{
		db:     db,
		logger: logger,
	}
}

func (r *exchangeRateRepository) GetLatestRate(pair domain.CurrencyPair) (*domain.ExchangeRate, error) {
	query := `
		SELECT id, rate, created_at
		FROM exchange_rates
		WHERE pair_key = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	rate := domain.ExchangeRate{Pair: pair}
	var rateStr string

	err := r.db.QueryRow(query, pair.Key()).Scan(&rate.ID, &rateStr, &rate.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get latest rate", "pair", pair.Key(), "error", err)
		return nil, errors.Internal("failed to get exchange rate", err)
	}

	rate.Rate, err = decimal.NewFromString(rateStr)
	if err != nil {
		return nil, errors.Internal("failed to parse exchange rate", err)
	}
	return &rate, nil
}

func (r *exchangeRateRepository) SaveRate(rate *domain.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (pair_key, rate, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.QueryRow(query, rate.Pair.Key(), rate.Rate.StringFixed(domain.RateScale), rate.Timestamp).Scan(&rate.ID)
	if err != nil {
		r.logger.Error("Failed to save rate", "pair", rate.Pair.Key(), "rate", rate.Rate, "error", err)
		return errors.Internal("failed to save exchange rate", err)
	}

	r.logger.Info("Exchange rate saved", "pair", rate.Pair.Key(), "rate", rate.Rate)
	return nil
}
