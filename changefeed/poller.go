package changefeed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Techyana/RWP-Pilot/models"
	"github.com/Techyana/RWP-Pilot/repository"
)

// Poller tails the ledger at a fixed interval, emitting entries newer than
// the last one seen. The cursor is the max createdAt observed; ids seen at
// the cursor timestamp are remembered so equal-timestamp entries are not
// replayed.
type Poller struct {
	ledger   repository.LedgerRepository
	interval time.Duration
	logger   *zap.Logger
	out      chan Event

	cursor   time.Time
	atCursor map[string]struct{}
}

func NewPoller(ledger repository.LedgerRepository, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Poller{
		ledger:   ledger,
		interval: interval,
		logger:   logger,
		out:      make(chan Event, 64),
		cursor:   time.Now().UTC(),
		atCursor: make(map[string]struct{}),
	}
}

func (p *Poller) Events() <-chan Event { return p.out }

func (p *Poller) Run(ctx context.Context) {
	defer close(p.out)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("ledger poller started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("ledger poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	// One-hour lookback comfortably covers any poll gap; the cursor trims it.
	entries, err := p.ledger.QueryRecent(ctx, repository.LedgerQuery{Hours: 1})
	if err != nil {
		p.logger.Warn("ledger poll failed", zap.Error(err))
		return
	}

	// QueryRecent returns newest first; emit oldest first.
	var fresh []models.Transaction
	for _, entry := range entries {
		if entry.CreatedAt.Before(p.cursor) {
			break
		}
		if _, seen := p.atCursor[entry.ID]; seen {
			continue
		}
		fresh = append(fresh, entry)
	}

	for i := len(fresh) - 1; i >= 0; i-- {
		entry := fresh[i]
		if entry.CreatedAt.After(p.cursor) {
			p.cursor = entry.CreatedAt
			p.atCursor = make(map[string]struct{})
		}
		p.atCursor[entry.ID] = struct{}{}

		select {
		case p.out <- Event{Entry: entry}:
		case <-ctx.Done():
			return
		}
	}
}
