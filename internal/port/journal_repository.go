package port

import (
	"context"

	"github.com/rl1809/shop-economy/internal/core/domain"
)

type JournalRepository interface {
	// RecordPurchase appends a committed purchase with its cost lines
	RecordPurchase(ctx context.Context, receipt domain.Receipt) error

	// ListPurchases returns the most recent purchases, newest first
	ListPurchases(ctx context.Context, limit int) ([]domain.Receipt, error)
}
