package domain

// Store is the ledger unit of work. Repositories obtained from the Store
// passed to WithTransaction's callback share one atomic transaction: either
// every write made through them commits or none does.
type Store interface {
	Account() AccountRepository
	Transaction() TransactionRepository
	ExchangeRate() ExchangeRateRepository
	Owner() OwnerRepository
	WithTransaction(fn func(Store) error) error
}
