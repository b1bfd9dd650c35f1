// Package billing notifies an external billing system about edit fees.
package billing

import (
	"context"
	"log/slog"
)

// Event describes one fee movement on a document lineage.
type Event struct {
	LineageID  string
	DocumentID string
	FeeCents   int
	Cycle      string
}

// Notifier receives fee events. Notifications are fire-and-forget:
// implementations must not block the caller, and a failed notification
// never rolls back the edit that triggered it.
type Notifier interface {
	EditCharged(ctx context.Context, ev Event)
	FeeRefunded(ctx context.Context, ev Event)
}

// LogNotifier records fee events to structured logs. It stands in for a
// real billing integration; the ledger in the database remains the source
// of truth.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

func (n *LogNotifier) EditCharged(_ context.Context, ev Event) {
	n.logger().Info("edit fee charged",
		"lineage", ev.LineageID, "document", ev.DocumentID,
		"fee_cents", ev.FeeCents, "cycle", ev.Cycle)
}

func (n *LogNotifier) FeeRefunded(_ context.Context, ev Event) {
	n.logger().Info("edit fee refunded",
		"lineage", ev.LineageID, "document", ev.DocumentID,
		"fee_cents", ev.FeeCents, "cycle", ev.Cycle)
}
