// Package skill routes voice utterances. Notification, launch and status
// intents are answered by the dialogue package; every other intent is relayed
// to the Koordinator bot and answered through the correlation bridge.
package skill

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/koorda/internal/bridge"
	"github.com/dyluth/koorda/internal/dialogue"
	"github.com/dyluth/koorda/internal/intent"
	"github.com/dyluth/koorda/internal/telemetry"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/rs/zerolog"
)

// DefaultReplyTimeout bounds the wait for a relayed intent's reply.
const DefaultReplyTimeout = 7 * time.Second

// Config wires a Service.
type Config struct {
	Dialogue *dialogue.Dialogue
	Bridge   *bridge.Bridge
	Relay    Relay

	ReplyTimeout time.Duration
	// SkillID and Stream identify the skill and the default device stream on
	// relayed requests.
	SkillID string
	Stream  string
	// CorrelationAttribute names the request attribute carrying the
	// conversation id. Defaults to koordinator.CorrelationAttribute.
	CorrelationAttribute string
	// RelayLifecycle also sends START and STOP events to the bot.
	RelayLifecycle bool

	Logger  zerolog.Logger
	Metrics *telemetry.Metrics
}

// Service is the skill entry point. It is safe for concurrent use; turns of
// one conversation are expected to arrive one at a time.
type Service struct {
	dialogue *dialogue.Dialogue
	bridge   *bridge.Bridge
	relayer  Relay
	phrases  dialogue.Phrasebook

	replyTimeout    time.Duration
	skillID         string
	stream          string
	correlationAttr string
	relayLifecycle  bool

	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Dialogue == nil {
		return nil, fmt.Errorf("dialogue is required")
	}
	if cfg.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}
	if cfg.Relay == nil {
		return nil, fmt.Errorf("relay is required")
	}

	s := &Service{
		dialogue:        cfg.Dialogue,
		bridge:          cfg.Bridge,
		relayer:         cfg.Relay,
		phrases:         cfg.Dialogue.Phrases(),
		replyTimeout:    cfg.ReplyTimeout,
		skillID:         cfg.SkillID,
		stream:          cfg.Stream,
		correlationAttr: cfg.CorrelationAttribute,
		relayLifecycle:  cfg.RelayLifecycle,
		logger:          telemetry.Component(cfg.Logger, "skill"),
		metrics:         cfg.Metrics,
	}
	if s.replyTimeout <= 0 {
		s.replyTimeout = DefaultReplyTimeout
	}
	if s.correlationAttr == "" {
		s.correlationAttr = koordinator.CorrelationAttribute
	}
	return s, nil
}

// HandleUtterance answers one user turn. It never fails: backend problems are
// spoken as "try again later". A statement ends the conversation and releases
// everything held for it.
func (s *Service) HandleUtterance(ctx context.Context, ev intent.Event) dialogue.Response {
	if ev.ConversationID == "" {
		s.logger.Warn().Str("event", "utterance_rejected").Str("intent", ev.Name).Msg("utterance without conversation id")
		return dialogue.Statement(s.phrases.NotUnderstood)
	}

	resp := s.route(ctx, ev)

	kind := "question"
	if !resp.ExpectsFollowUp {
		kind = "statement"
		if err := s.HandleSessionEnd(ctx, ev.ConversationID); err != nil {
			s.logger.Warn().Err(err).
				Str("event", "session_cleanup_failed").
				Str("conversation_id", ev.ConversationID).
				Msg("failed to clean up ended conversation")
		}
	}
	s.metrics.RecordUtterance(ev.Name, kind)

	s.logger.Info().
		Str("event", "utterance_handled").
		Str("conversation_id", ev.ConversationID).
		Str("intent", ev.Name).
		Bool("expects_follow_up", resp.ExpectsFollowUp).
		Msg("utterance handled")
	return resp
}

func (s *Service) route(ctx context.Context, ev intent.Event) dialogue.Response {
	d := s.dialogue
	conv := ev.ConversationID

	switch ev.Name {
	case intent.Launch:
		s.notifyLifecycle(ctx, ev, koordinator.RequestEventStart)
		return dialogue.Question(s.phrases.Welcome)

	case intent.Stop:
		s.notifyLifecycle(ctx, ev, koordinator.RequestEventStop)
		return dialogue.Statement(s.phrases.Goodbye)

	case intent.No:
		return dialogue.Statement(s.phrases.NoThanks)

	case intent.CheckNotification:
		return d.CheckNotifications(ctx, conv, ev.Slot(intent.SlotWorkflowName))

	case intent.ManualTaskValidation:
		return d.ActOnTask(ctx, conv, dialogue.Validate, taskQuery(ev))

	case intent.ManualTaskCancellation:
		return d.ActOnTask(ctx, conv, dialogue.Cancel, taskQuery(ev))

	case intent.LaunchWorkflow:
		return d.LaunchWorkflow(ctx, conv, ev.Slot(intent.SlotWorkflowName))

	case intent.WorkflowStatus:
		return d.WorkflowStatus(ctx, conv, dialogue.StatusQuery{
			WorkflowName: ev.Slot(intent.SlotWorkflowName),
			Time:         ev.RawSlot(intent.SlotTime),
			Status:       ev.Slot(intent.SlotInstanceStatus),
		})

	default:
		return s.relay(ctx, ev)
	}
}

func taskQuery(ev intent.Event) dialogue.TaskQuery {
	return dialogue.TaskQuery{
		WorkflowName: ev.Slot(intent.SlotWorkflowName),
		TaskName:     ev.Slot(intent.SlotTaskName),
		Time:         ev.RawSlot(intent.SlotTime),
	}
}

// HandleSessionEnd releases the conversation's bridge queue and deletes its
// snapshot stages.
func (s *Service) HandleSessionEnd(ctx context.Context, conversationID string) error {
	if dropped := s.bridge.Release(conversationID); dropped > 0 {
		s.logger.Debug().
			Str("event", "queue_released").
			Str("conversation_id", conversationID).
			Int("dropped_events", dropped).
			Msg("discarded undelivered events")
	}
	return s.dialogue.EndConversation(ctx, conversationID)
}
