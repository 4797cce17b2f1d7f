// Package changefeed delivers ledger activity to in-process consumers (cache
// invalidation, live dashboards) behind one interface with two backends: a
// ledger poller and an SQS consumer. Delivery is at-least-once; consumers
// must tolerate duplicates, and both backends deduplicate by entry id on a
// best-effort basis.
package changefeed

import (
	"context"

	"github.com/Techyana/RWP-Pilot/models"
)

// Event wraps one ledger entry observed by the feed.
type Event struct {
	Entry models.Transaction
}

// Feed is the abstract change feed. Run blocks until the context is
// cancelled; Events is closed when Run returns.
type Feed interface {
	Run(ctx context.Context)
	Events() <-chan Event
}
