package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/store"
)

// Audit persists one receipt per gated invocation.
type Audit struct {
	receipts store.ReceiptStore
	logger   *slog.Logger
	timeout  time.Duration
}

// NewAudit returns an observer writing receipts to rs.
func NewAudit(rs store.ReceiptStore, logger *slog.Logger) *Audit {
	if logger == nil {
		logger = slog.Default()
	}
	return &Audit{receipts: rs, logger: logger, timeout: 2 * time.Second}
}

// Receipt converts an outcome to its stored form.
func Receipt(o gate.Outcome) store.Receipt {
	return store.Receipt{
		ID:         o.ID,
		Tool:       o.Tool,
		Group:      string(o.Group),
		Category:   string(o.Category),
		Profile:    string(o.Profile),
		Outcome:    o.Outcome,
		Status:     o.Status,
		DurationMS: o.Duration.Milliseconds(),
		CreatedAt:  o.Started.UTC(),
	}
}

// Observe implements gate.Observer. Write failures are logged, never
// surfaced to the caller.
func (a *Audit) Observe(ctx context.Context, o gate.Outcome) {
	if a == nil || a.receipts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	if err := a.receipts.AppendReceipt(ctx, Receipt(o)); err != nil {
		a.logger.Warn("append receipt", slog.String("tool", o.Tool), slog.Any("err", err))
	}
}
