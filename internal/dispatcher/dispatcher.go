package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/boardlab/notify-api/pkg/logger"
	"github.com/boardlab/notify-api/pkg/metrics"

	"github.com/boardlab/notify-api/internal/model"
	"github.com/boardlab/notify-api/internal/repository"
	"github.com/boardlab/notify-api/internal/sender"
)

type Config struct {
	RetryCeiling int
	PollInterval time.Duration
	SendTimeout  time.Duration
	WorkerPool   int
}

// Dispatcher drives delivery attempts on a fixed interval, independent of
// request traffic. Each tick selects the eligible PENDING items and dispatches
// them concurrently through the Sender, bounded by the worker pool. Every
// attempt's result is persisted before the next tick begins, so the same item
// is never attempted twice at once within a process.
type Dispatcher struct {
	queue   repository.DeliveryQueueRepository
	users   repository.UserRepository
	sender  sender.Sender
	config  Config
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(
	queue repository.DeliveryQueueRepository,
	users repository.UserRepository,
	snd sender.Sender,
	config Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Dispatcher {
	if config.RetryCeiling <= 0 {
		config.RetryCeiling = 5
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}
	if config.WorkerPool <= 0 {
		config.WorkerPool = 10
	}

	return &Dispatcher{
		queue:   queue,
		users:   users,
		sender:  snd,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

// Start runs the tick loop until ctx is cancelled. A failed tick is logged
// and the loop carries on to the next one.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	d.logger.Info("starting delivery dispatcher",
		"poll_interval", d.config.PollInterval.String(),
		"retry_ceiling", d.config.RetryCeiling,
		"worker_pool", d.config.WorkerPool)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down delivery dispatcher")
			return
		case <-ticker.C:
			if err := d.ProcessPending(ctx); err != nil {
				d.logger.Error(err, "failed to process pending deliveries")
			}
		}
	}
}

// ProcessPending runs one dispatch cycle. Exported so tests and operators can
// trigger a tick without waiting on the timer.
func (d *Dispatcher) ProcessPending(ctx context.Context) error {
	timer := prometheus.NewTimer(d.metrics.DispatchLatency)
	defer timer.ObserveDuration()

	items, err := d.queue.SelectPending(ctx, d.config.RetryCeiling)
	if err != nil {
		return fmt.Errorf("failed to select pending deliveries: %w", err)
	}
	d.metrics.PendingQueueSize.Set(float64(len(items)))

	if len(items) == 0 {
		return nil
	}

	// One task per item, bounded by the pool. Joining every task before
	// returning guarantees all results are persisted before the next tick.
	sem := make(chan struct{}, d.config.WorkerPool)
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(item *model.DeliveryQueueItem) {
			defer wg.Done()
			defer func() { <-sem }()
			d.dispatchItem(ctx, item)
		}(item)
	}
	wg.Wait()

	return nil
}

// dispatchItem runs a single attempt. Any failure is contained here and
// recorded as queue state, it never propagates into the tick loop.
func (d *Dispatcher) dispatchItem(ctx context.Context, item *model.DeliveryQueueItem) {
	if err := d.attempt(ctx, item); err != nil {
		d.metrics.DeliveriesFailed.WithLabelValues(string(item.Method)).Inc()
		d.logger.Warn("delivery attempt failed",
			"item_id", item.ID.String(),
			"method", string(item.Method),
			"retry_count", item.RetryCount,
			"error", err.Error())

		if err := d.queue.MarkFailed(ctx, item, d.config.RetryCeiling); err != nil {
			d.logger.Error(err, "failed to record failed attempt", "item_id", item.ID.String())
			return
		}
		if item.Status == model.DeliveryStatusFailed {
			d.metrics.DeliveriesExhausted.Inc()
			d.logger.Error(nil, "delivery retries exhausted",
				"item_id", item.ID.String(),
				"method", string(item.Method),
				"retry_count", item.RetryCount)
		}
		return
	}

	if err := d.queue.MarkSent(ctx, item); err != nil {
		d.logger.Error(err, "failed to record sent delivery", "item_id", item.ID.String())
		return
	}
	d.metrics.DeliveriesSent.Inc()
}

func (d *Dispatcher) attempt(ctx context.Context, item *model.DeliveryQueueItem) error {
	user, err := d.users.Get(ctx, item.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve target user: %w", err)
	}

	address := user.Address(item.Method)
	if address == "" {
		return fmt.Errorf("user %s has no %s address", item.UserID, item.Method)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.config.SendTimeout)
	defer cancel()

	return d.sender.Send(sendCtx, item.Method, address, item.Payload)
}
