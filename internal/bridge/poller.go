package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/koorda/internal/telemetry"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FeedSource returns the next bounded batch of backend events.
type FeedSource interface {
	PollEventFeed(ctx context.Context) ([]koordinator.InboundEvent, error)
}

// DefaultPollInterval is the pause between two feed polls.
const DefaultPollInterval = 500 * time.Millisecond

// PollerConfig configures a Poller.
type PollerConfig struct {
	Interval time.Duration
	// AcceptedTypes lists the event types routed to conversations.
	// Empty means only "text".
	AcceptedTypes []string
	// CorrelationAttribute names the attribute holding the conversation id.
	// Empty means "alexa_sessionId".
	CorrelationAttribute string
}

// Poller drains a FeedSource on a fixed interval and delivers events to the
// bridge. Iterations run sequentially: a slow fetch delays the next tick
// instead of overlapping with it.
type Poller struct {
	source   FeedSource
	bridge   *Bridge
	interval time.Duration
	accepted map[string]struct{}
	attr     string

	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

// NewPoller creates a poller. metrics may be nil.
func NewPoller(source FeedSource, b *Bridge, cfg PollerConfig, logger zerolog.Logger, metrics *telemetry.Metrics) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	types := cfg.AcceptedTypes
	if len(types) == 0 {
		types = []string{koordinator.EventTypeText}
	}
	accepted := make(map[string]struct{}, len(types))
	for _, t := range types {
		accepted[t] = struct{}{}
	}

	attr := cfg.CorrelationAttribute
	if attr == "" {
		attr = koordinator.CorrelationAttribute
	}

	return &Poller{
		source:   source,
		bridge:   b,
		interval: interval,
		accepted: accepted,
		attr:     attr,
		logger:   telemetry.Component(logger, "poller").With().Str("poller_id", uuid.NewString()[:8]).Logger(),
		metrics:  metrics,
	}
}

// Run polls until ctx is cancelled. A failed iteration is logged and the
// loop carries on with the next tick. Always returns nil.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().
		Str("event", "poller_started").
		Dur("interval", p.interval).
		Msg("event feed poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.iterate(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info().Str("event", "poller_stopped").Msg("event feed poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// iterate runs one poll and contains any failure, panics included.
func (p *Poller) iterate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.RecordPoll("panic")
			p.logger.Error().
				Str("event", "poll_panic").
				Interface("panic", r).
				Msg("recovered from panic in poll iteration")
		}
	}()

	if ctx.Err() != nil {
		return
	}

	delivered, err := p.PollOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.metrics.RecordPoll("error")
		p.logger.Warn().
			Err(err).
			Str("event", "poll_failed").
			Msg("event feed poll failed, retrying next tick")
		return
	}

	p.metrics.RecordPoll("ok")
	if delivered > 0 {
		p.logger.Debug().
			Str("event", "events_delivered").
			Int("count", delivered).
			Msg("delivered feed events")
	}
}

// PollOnce fetches one batch and delivers every accepted event carrying a
// correlation key. Returns the number of events delivered.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	events, err := p.source.PollEventFeed(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch event feed: %w", err)
	}

	delivered := 0
	for _, e := range events {
		if _, ok := p.accepted[e.Type]; !ok {
			p.metrics.RecordSkipped("type")
			continue
		}

		conversationID := e.Attribute(p.attr)
		if conversationID == "" {
			p.metrics.RecordSkipped("no_key")
			p.logger.Warn().
				Str("event", "event_without_key").
				Str("type", e.Type).
				Msg("feed event has no correlation key, skipping")
			continue
		}

		p.bridge.Deliver(conversationID, e)
		delivered++
	}
	return delivered, nil
}
