package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// PingProcessor runs decoded pings through the alert pipeline.
type PingProcessor interface {
	Process(ctx context.Context, pings []domain.Ping) int
}

// Stream consumes ping messages from a broker and feeds them to the pipeline.
// Each message value uses the same body format as the HTTP endpoint.
type Stream struct {
	extractor BatchExtractor
	processor PingProcessor
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
}

// NewStream creates a Stream reading batchSize messages at a time.
func NewStream(e BatchExtractor, p PingProcessor, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Stream {
	return &Stream{
		extractor: e,
		processor: p,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Run executes the consume loop until the context is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	s.logger.Info("ping stream started", "batch_size", s.batchSize)
	s.metrics.StreamRunning.Set(1)
	defer s.metrics.StreamRunning.Set(0)

	// Start at 200ms, double each retry, cap at 5s.
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ping stream stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !s.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-decode-process cycle. Returns false if the stream should stop.
func (s *Stream) processBatch(ctx context.Context, backoff *time.Duration) bool {
	batch, err := s.extractor.ExtractBatch(ctx, s.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		s.logger.Error("extract batch failed", "error", err)
		return s.backoffOrStop(ctx, backoff)
	}

	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	s.metrics.BatchSize.Observe(float64(len(batch)))
	*backoff = initialBackoff

	for _, raw := range batch {
		s.handle(ctx, raw)
	}
	return true
}

// handle decodes and processes one message, then commits it. Undecodable
// messages are committed too so they are not redelivered.
func (s *Stream) handle(ctx context.Context, raw domain.RawEvent) {
	defer s.commitOffset(ctx, raw)

	res, err := domain.DecodePings(raw.Value)
	if err != nil {
		s.metrics.PingsRejected.Inc()
		s.logger.Warn("undecodable ping message, skipping",
			"error", err,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
		return
	}

	for _, r := range res.Rejected {
		s.metrics.PingsRejected.Inc()
		s.logger.Warn("invalid ping skipped", "error", r.Err, "index", r.Index, "offset", raw.Offset)
	}
	if len(res.Pings) > 0 {
		s.processor.Process(ctx, res.Pings)
	}
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the stream should stop.
func (s *Stream) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (s *Stream) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		s.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
