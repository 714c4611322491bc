package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
)

// AlertDispatcher hands alerts off for delivery without blocking.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alerts ...domain.Alert)
}

// Pipeline runs pings through enrich, filter and dispatch. It keeps no state
// between calls apart from the optional cooldown.
type Pipeline struct {
	enricher   *Enricher
	dispatcher AlertDispatcher
	cooldown   *Cooldown
	logger     *slog.Logger
	metrics    *observability.Metrics
	draining   atomic.Bool
}

// New creates a Pipeline. A nil cooldown disables suppression of repeat alerts.
func New(enricher *Enricher, dispatcher AlertDispatcher, cooldown *Cooldown, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		enricher:   enricher,
		dispatcher: dispatcher,
		cooldown:   cooldown,
		logger:     logger,
		metrics:    metrics,
	}
}

// Process assesses pings in order and dispatches the hazardous ones as a
// single ordered batch. It returns the number of alerts handed off.
func (p *Pipeline) Process(ctx context.Context, pings []domain.Ping) int {
	var alerts []domain.Alert
	for _, ping := range pings {
		enriched := p.enricher.Enrich(ping)
		p.metrics.PingsReceived.Inc()
		p.metrics.Assessments.WithLabelValues(enriched.Level.String()).Inc()

		if !Passes(enriched) {
			continue
		}
		alert, _ := domain.NewAlert(enriched)
		if p.cooldown != nil && !p.cooldown.Allow(alert) {
			p.metrics.AlertsSuppressed.Inc()
			p.logger.Debug("alert suppressed by cooldown", "user_id", alert.UserID, "level", alert.Level)
			continue
		}
		alerts = append(alerts, alert)
	}

	if len(alerts) > 0 {
		p.dispatcher.Dispatch(ctx, alerts...)
	}
	return len(alerts)
}

// CheckReadiness returns nil until Drain is called.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.draining.Load() {
		return errors.New("pipeline is shutting down")
	}
	return nil
}

// Drain marks the pipeline as shutting down so readiness probes fail.
func (p *Pipeline) Drain() {
	p.draining.Store(true)
}
