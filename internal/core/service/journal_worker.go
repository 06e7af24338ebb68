package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/shop-economy/internal/core/domain"
	"github.com/rl1809/shop-economy/internal/port"
)

const journalWriteTimeout = 5 * time.Second

// DrainReceipts writes receipts to the journal until queue is closed.
// A failed write is logged; ledger state is never rolled back for it.
func DrainReceipts(id int, queue <-chan domain.Receipt, journal port.JournalRepository, log *zap.Logger) {
	for receipt := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)

		if err := journal.RecordPurchase(ctx, receipt); err != nil {
			log.Error("failed to journal purchase",
				zap.Int("worker", id),
				zap.String("receipt", receipt.ID),
				zap.Error(err))
		} else {
			log.Debug("journaled purchase",
				zap.Int("worker", id),
				zap.String("receipt", receipt.ID))
		}

		cancel()
	}
}
