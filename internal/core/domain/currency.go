package domain

// CurrencyID identifies a currency kind. It is the ledger key.
type CurrencyID string

type CurrencyKind struct {
	ID            CurrencyID
	DisplayName   string
	InitialAmount int // balance applied at startup
}

// CostLine is one (currency, amount) pair of a price. Amount is positive.
type CostLine struct {
	Currency CurrencyID
	Amount   int
}

// BalanceChange is published after every balance write.
type BalanceChange struct {
	Currency CurrencyID
	Amount   int
}
