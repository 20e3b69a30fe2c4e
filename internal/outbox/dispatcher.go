// Package outbox delivers queued remote writes. Intents are enqueued in
// the same local transaction as the state change they mirror; this
// dispatcher pushes them to the ERP in the background so request
// handlers never block on, or fail because of, ERP availability.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"erp-conference-api/internal/client"
	"erp-conference-api/internal/model"
	"erp-conference-api/internal/repository"

	"github.com/rs/zerolog"
)

type Dispatcher struct {
	repo        repository.OutboxRepository
	erp         client.ErpGateway
	account     string
	interval    time.Duration
	batchSize   int
	maxAttempts int
	logger      zerolog.Logger
}

func NewDispatcher(
	repo repository.OutboxRepository,
	erp client.ErpGateway,
	account string,
	interval time.Duration,
	batchSize, maxAttempts int,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		erp:         erp,
		account:     account,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Run loops until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce pushes one batch of pending entries. Failures bump the
// attempt counter; an entry that exhausts its attempts is marked failed
// and left for manual repair.
func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	entries, err := d.repo.ListPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error().Err(err).Msg("outbox: list pending failed")
		return
	}

	for i := range entries {
		entry := &entries[i]
		if err := d.push(ctx, entry); err != nil {
			attempts := entry.Attempts + 1
			terminal := attempts >= d.maxAttempts
			if markErr := d.repo.MarkAttempt(ctx, entry.ID, attempts, err.Error(), terminal); markErr != nil {
				d.logger.Error().Err(markErr).Str("entry_id", entry.ID).Msg("outbox: mark attempt failed")
			}
			evt := d.logger.Warn()
			if terminal {
				evt = d.logger.Error()
			}
			evt.Err(err).
				Str("entry_id", entry.ID).
				Int64("order_id", entry.OrderID).
				Int("attempts", attempts).
				Bool("terminal", terminal).
				Msg("outbox: push failed")
			continue
		}
		if err := d.repo.MarkSent(ctx, entry.ID); err != nil {
			d.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("outbox: mark sent failed")
		}
	}
}

func (d *Dispatcher) push(ctx context.Context, entry *model.OutboxEntry) error {
	switch entry.Kind {
	case model.OutboxKindStatusPush:
		var payload model.StatusPushPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return err
		}
		return d.erp.UpdateOrderStatus(ctx, d.account, entry.OrderID, payload.StatusID)
	default:
		return fmt.Errorf("unknown outbox entry kind %q", entry.Kind)
	}
}
