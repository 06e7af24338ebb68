// Package ledger holds the authoritative in-memory currency balances and
// item stacks of a player.
package ledger

import (
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/shop-economy/internal/core/domain"
	"github.com/rl1809/shop-economy/internal/core/notify"
)

// CurrencyLedger maps currency ids to balances. All writes go through
// SetBalance; TryDebitAll validates and commits under one lock.
type CurrencyLedger struct {
	mu       sync.Mutex
	balances map[domain.CurrencyID]int
	changes  notify.Hub[domain.BalanceChange]
	log      *zap.Logger
}

func NewCurrencyLedger(log *zap.Logger) *CurrencyLedger {
	if log == nil {
		log = zap.NewNop()
	}
	return &CurrencyLedger{
		balances: make(map[domain.CurrencyID]int),
		log:      log,
	}
}

// Initialize sets every kind to its configured initial amount.
func (l *CurrencyLedger) Initialize(kinds []domain.CurrencyKind) {
	for _, k := range kinds {
		l.SetBalance(k.ID, k.InitialAmount)
	}
}

// Balance returns 0 for currencies never referenced.
func (l *CurrencyLedger) Balance(id domain.CurrencyID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[id]
}

// SetBalance overwrites unconditionally. Negative amounts are stored as is.
func (l *CurrencyLedger) SetBalance(id domain.CurrencyID, amount int) {
	l.mu.Lock()
	l.balances[id] = amount
	l.mu.Unlock()

	l.changes.Publish(domain.BalanceChange{Currency: id, Amount: amount})
}

// Credit adds delta, which may be negative.
func (l *CurrencyLedger) Credit(id domain.CurrencyID, delta int) {
	l.mu.Lock()
	amount := l.balances[id] + delta
	l.balances[id] = amount
	l.mu.Unlock()

	l.changes.Publish(domain.BalanceChange{Currency: id, Amount: amount})
}

func (l *CurrencyLedger) HasAtLeast(id domain.CurrencyID, amount int) bool {
	return l.Balance(id) >= amount
}

// TryDebitAll debits every line or none. Lines naming the same currency
// are summed before the sufficiency check.
func (l *CurrencyLedger) TryDebitAll(lines []domain.CostLine) bool {
	l.mu.Lock()

	if missing := l.shortfallLocked(lines); len(missing) > 0 || !positive(lines) {
		l.mu.Unlock()
		l.log.Debug("debit rejected", zap.Int("lines", len(lines)), zap.Int("short", len(missing)))
		return false
	}

	events := make([]domain.BalanceChange, 0, len(lines))
	for _, line := range lines {
		amount := l.balances[line.Currency] - line.Amount
		l.balances[line.Currency] = amount
		events = append(events, domain.BalanceChange{Currency: line.Currency, Amount: amount})
	}
	l.mu.Unlock()

	l.changes.Publish(events...)
	return true
}

// Shortfall lists, per under-funded currency, how much is missing to cover
// lines. Currencies appear in first-seen order.
func (l *CurrencyLedger) Shortfall(lines []domain.CostLine) []domain.CostLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shortfallLocked(lines)
}

func (l *CurrencyLedger) shortfallLocked(lines []domain.CostLine) []domain.CostLine {
	required := make(map[domain.CurrencyID]int, len(lines))
	order := make([]domain.CurrencyID, 0, len(lines))
	for _, line := range lines {
		if _, seen := required[line.Currency]; !seen {
			order = append(order, line.Currency)
		}
		required[line.Currency] += line.Amount
	}

	var missing []domain.CostLine
	for _, id := range order {
		if have := l.balances[id]; have < required[id] {
			missing = append(missing, domain.CostLine{Currency: id, Amount: required[id] - have})
		}
	}
	return missing
}

// Snapshot returns a copy of every referenced balance.
func (l *CurrencyLedger) Snapshot() map[domain.CurrencyID]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[domain.CurrencyID]int, len(l.balances))
	for id, amount := range l.balances {
		out[id] = amount
	}
	return out
}

func (l *CurrencyLedger) Subscribe(fn func(domain.BalanceChange)) notify.Subscription {
	return l.changes.Subscribe(fn)
}

func (l *CurrencyLedger) Unsubscribe(sub notify.Subscription) bool {
	return l.changes.Unsubscribe(sub)
}

func positive(lines []domain.CostLine) bool {
	for _, line := range lines {
		if line.Amount <= 0 {
			return false
		}
	}
	return true
}
