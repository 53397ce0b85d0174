package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pokerbank/internal/logger"
	"pokerbank/internal/metrics"
	"pokerbank/internal/models"
)

type ViewLoader interface {
	GetView(ctx context.Context, groupID string) (models.SessionView, error)
}

// Broadcaster pushes full session views to one viewer: once on connect, then
// every interval and whenever the hub is notified.
type Broadcaster struct {
	loader   ViewLoader
	hub      *Hub
	interval time.Duration
	metrics  *metrics.SettlementMetrics
	logger   *logger.Logger

	closed    chan struct{}
	closeOnce sync.Once
}

func NewBroadcaster(loader ViewLoader, hub *Hub, interval time.Duration, m *metrics.SettlementMetrics, log *logger.Logger) *Broadcaster {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	if hub == nil {
		hub = NewHub()
	}
	return &Broadcaster{loader: loader, hub: hub, interval: interval, metrics: m, logger: log, closed: make(chan struct{})}
}

// Close ends every running stream. Requests outside Run are unaffected.
func (b *Broadcaster) Close() {
	b.closeOnce.Do(func() { close(b.closed) })
}

// Run blocks until ctx is done, the broadcaster is closed or send fails. A failed load skips that tick.
func (b *Broadcaster) Run(ctx context.Context, groupID string, send func([]byte) error) error {
	sub := b.hub.Subscribe(groupID)
	defer b.hub.Unsubscribe(groupID, sub)
	b.metrics.StreamOpened()
	defer b.metrics.StreamClosed()

	ctx = b.logger.WithSession(ctx, groupID)
	if err := b.push(ctx, groupID, send); err != nil {
		return err
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.closed:
			return nil
		case <-ticker.C:
		case <-sub.Wake():
		}
		if err := b.push(ctx, groupID, send); err != nil {
			return err
		}
	}
}

func (b *Broadcaster) push(ctx context.Context, groupID string, send func([]byte) error) error {
	loadCtx, cancel := context.WithTimeout(ctx, b.interval)
	view, err := b.loader.GetView(loadCtx, groupID)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			b.logger.Debug(b.logger.WithField(ctx, "error", err.Error()), "skipping stream tick")
		}
		return nil
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return send(payload)
}
