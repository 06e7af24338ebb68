package port

import "github.com/rl1809/shop-economy/internal/core/domain"

type CurrencyDebitor interface {
	// TryDebitAll debits every line or none
	TryDebitAll(lines []domain.CostLine) bool
}

type ItemCreditor interface {
	// Add stores units up to the stack cap and returns the discarded remainder
	Add(kind domain.ItemKind, amount int) int
}
