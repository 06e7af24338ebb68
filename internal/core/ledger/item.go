package ledger

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/shop-economy/internal/core/domain"
	"github.com/rl1809/shop-economy/internal/core/notify"
)

type stack struct {
	kind  domain.ItemKind
	count int
}

// ItemLedger maps item ids to a single capped stack. An entry exists only
// while its count is positive.
type ItemLedger struct {
	mu      sync.Mutex
	stacks  map[domain.ItemID]*stack
	changes notify.Hub[domain.StackChange]
	log     *zap.Logger
}

func NewItemLedger(log *zap.Logger) *ItemLedger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ItemLedger{
		stacks: make(map[domain.ItemID]*stack),
		log:    log,
	}
}

func (l *ItemLedger) Count(id domain.ItemID) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.stacks[id]; ok {
		return s.count
	}
	return 0
}

// Add stores up to kind.MaxStack units and returns how many were discarded.
// The held stack adopts kind as its definition.
// Units beyond the cap are dropped rather than opening a second stack.
func (l *ItemLedger) Add(kind domain.ItemKind, amount int) int {
	if amount <= 0 || !kind.Valid() {
		return 0
	}

	l.mu.Lock()
	s, ok := l.stacks[kind.ID]
	if !ok {
		s = &stack{}
	}
	// the latest definition of a kind wins, so the cap and the reported
	// metadata always agree
	s.kind = kind

	spare := kind.MaxStack - s.count
	if spare <= 0 {
		l.mu.Unlock()
		l.log.Warn("stack full, items discarded",
			zap.String("item", string(kind.ID)),
			zap.Int("discarded", amount))
		return amount
	}

	accepted := min(amount, spare)
	s.count += accepted
	l.stacks[kind.ID] = s
	count := s.count
	l.mu.Unlock()

	overflow := amount - accepted
	if overflow > 0 {
		l.log.Warn("stack capped, items discarded",
			zap.String("item", string(kind.ID)),
			zap.Int("max_stack", kind.MaxStack),
			zap.Int("discarded", overflow))
	}

	l.changes.Publish(domain.StackChange{Item: kind, Count: count})
	return overflow
}

// Remove takes amount units away. It returns false, changing nothing, when
// fewer than amount are held.
func (l *ItemLedger) Remove(id domain.ItemID, amount int) bool {
	if amount <= 0 {
		return false
	}

	l.mu.Lock()
	s, ok := l.stacks[id]
	if !ok || s.count < amount {
		l.mu.Unlock()
		return false
	}

	s.count -= amount
	count := s.count
	if count == 0 {
		delete(l.stacks, id)
	}
	l.mu.Unlock()

	l.changes.Publish(domain.StackChange{Item: s.kind, Count: count})
	return true
}

// Snapshot returns a point-in-time copy of every held count.
func (l *ItemLedger) Snapshot() map[domain.ItemID]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[domain.ItemID]int, len(l.stacks))
	for id, s := range l.stacks {
		out[id] = s.count
	}
	return out
}

// Kinds returns the kinds currently held, ordered by id.
func (l *ItemLedger) Kinds() []domain.ItemKind {
	l.mu.Lock()
	kinds := make([]domain.ItemKind, 0, len(l.stacks))
	for _, s := range l.stacks {
		kinds = append(kinds, s.kind)
	}
	l.mu.Unlock()

	sort.Slice(kinds, func(i, j int) bool { return kinds[i].ID < kinds[j].ID })
	return kinds
}

func (l *ItemLedger) Subscribe(fn func(domain.StackChange)) notify.Subscription {
	return l.changes.Subscribe(fn)
}

func (l *ItemLedger) Unsubscribe(sub notify.Subscription) bool {
	return l.changes.Unsubscribe(sub)
}
