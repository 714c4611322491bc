package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
	"golang.org/x/sync/semaphore"
)

// AlertSink delivers one alert to a downstream system.
type AlertSink interface {
	Name() string
	Submit(ctx context.Context, alert domain.Alert) error
}

// Dispatcher sends alerts to every sink without blocking the caller. Each
// Dispatch call runs on one background goroutine that sends its alerts in
// order; failures are logged and counted, never retried.
type Dispatcher struct {
	sinks   []AlertSink
	timeout time.Duration
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewDispatcher creates a Dispatcher. timeout bounds each individual send and
// maxInFlight caps the number of concurrent dispatch goroutines.
func NewDispatcher(sinks []AlertSink, timeout time.Duration, maxInFlight int, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		logger:  logger,
		metrics: metrics,
	}
}

// Dispatch hands alerts off for delivery and returns immediately. The sends
// outlive ctx cancellation but keep its values. When the in-flight cap is
// reached the alerts are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts ...domain.Alert) {
	if len(alerts) == 0 || len(d.sinks) == 0 {
		return
	}
	if !d.sem.TryAcquire(1) {
		d.metrics.AlertsDropped.Add(float64(len(alerts)))
		d.logger.Warn("dispatcher saturated, dropping alerts", "count", len(alerts))
		return
	}

	d.wg.Add(1)
	d.metrics.DispatchInFlight.Inc()
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)
		defer d.metrics.DispatchInFlight.Dec()

		for _, alert := range alerts {
			for _, sink := range d.sinks {
				d.send(ctx, sink, alert)
			}
		}
	}()
}

func (d *Dispatcher) send(ctx context.Context, sink AlertSink, alert domain.Alert) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := sink.Submit(ctx, alert)
	d.metrics.SinkRequestDuration.WithLabelValues(sink.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		d.metrics.AlertsDispatched.WithLabelValues(sink.Name(), "error").Inc()
		d.logger.Warn("alert delivery failed",
			"sink", sink.Name(),
			"alert_id", alert.AlertID,
			"user_id", alert.UserID,
			"level", alert.Level,
			"error", err,
		)
		return
	}
	d.metrics.AlertsDispatched.WithLabelValues(sink.Name(), "success").Inc()
	d.logger.Debug("alert delivered", "sink", sink.Name(), "alert_id", alert.AlertID, "user_id", alert.UserID)
}

// Wait blocks until every in-flight dispatch has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
