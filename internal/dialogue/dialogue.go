// Package dialogue drives the multi-turn conversations of the skill: the
// narrowing of pending manual-task notifications down to one task, workflow
// launches and workflow status questions.
//
// Between turns, the only state is the set of snapshot stages stored for the
// conversation. The current state of the notification conversation is
// derived from which stages exist, so a lost or corrupt stage simply sends the
// conversation back to an earlier state.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/koorda/internal/bridge"
	"github.com/dyluth/koorda/internal/resolver"
	"github.com/dyluth/koorda/internal/telemetry"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/dyluth/koorda/pkg/snapshot"
	"github.com/rs/zerolog"
)

// Response is what the skill speaks back. A question keeps the conversation
// open; a statement ends it.
type Response struct {
	Text            string `json:"text"`
	ExpectsFollowUp bool   `json:"expects_follow_up"`
}

// Question builds a response that waits for the user's answer.
func Question(text string) Response {
	return Response{Text: text, ExpectsFollowUp: true}
}

// Statement builds a response that ends the conversation.
func Statement(text string) Response {
	return Response{Text: text}
}

// Backend is the part of the Koordinator client the dialogues use.
type Backend interface {
	PendingNotifications(ctx context.Context, namespace string) ([]koordinator.Notification, error)
	WorkflowDefinitions(ctx context.Context) ([]koordinator.WorkflowDefinition, error)
	StartWorkflow(ctx context.Context, id string, version int) (int, error)
	RunningAndFinished(ctx context.Context, workflowName string) (running, finished []koordinator.ScenarioInstance, err error)
	CompleteTask(ctx context.Context, taskInstanceID string) (bool, error)
	CancelTask(ctx context.Context, taskInstanceID string) (bool, error)
}

// Config wires a Dialogue.
type Config struct {
	Backend Backend
	Store   snapshot.Store
	// Namespace is the catalog namespace manual tasks are read from.
	Namespace string
	// Location converts backend UTC timestamps to spoken local times.
	Location *time.Location
	Phrases  Phrasebook
	Resolver resolver.Resolver

	// Bridge and ReplyTimeout are used when AwaitLaunchConfirmation is set.
	Bridge                  *bridge.Bridge
	ReplyTimeout            time.Duration
	AwaitLaunchConfirmation bool

	Logger  zerolog.Logger
	Metrics *telemetry.Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Dialogue handles the notification, launch and status conversations.
// It keeps no per-conversation state in memory.
type Dialogue struct {
	backend   Backend
	store     snapshot.Store
	namespace string
	loc       *time.Location
	phrases   Phrasebook
	resolver  resolver.Resolver

	bridge       *bridge.Bridge
	replyTimeout time.Duration
	awaitLaunch  bool

	logger  zerolog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// New validates cfg and creates a Dialogue.
func New(cfg Config) (*Dialogue, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	if cfg.AwaitLaunchConfirmation && cfg.Bridge == nil {
		return nil, fmt.Errorf("bridge is required to await launch confirmations")
	}

	d := &Dialogue{
		backend:      cfg.Backend,
		store:        cfg.Store,
		namespace:    cfg.Namespace,
		loc:          cfg.Location,
		phrases:      cfg.Phrases,
		resolver:     cfg.Resolver,
		bridge:       cfg.Bridge,
		replyTimeout: cfg.ReplyTimeout,
		awaitLaunch:  cfg.AwaitLaunchConfirmation,
		logger:       telemetry.Component(cfg.Logger, "dialogue"),
		metrics:      cfg.Metrics,
		now:          cfg.Now,
	}
	if d.loc == nil {
		d.loc = time.Local
	}
	if d.phrases.And == "" {
		d.phrases = French
	}
	if d.replyTimeout <= 0 {
		d.replyTimeout = 7 * time.Second
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Phrases returns the phrasebook in use.
func (d *Dialogue) Phrases() Phrasebook {
	return d.phrases
}

// EndConversation deletes every snapshot stage of the conversation.
func (d *Dialogue) EndConversation(ctx context.Context, conversationID string) error {
	if err := d.store.Purge(ctx, conversationID); err != nil {
		return fmt.Errorf("failed to purge conversation %s: %w", conversationID, err)
	}
	return nil
}

func (d *Dialogue) tryLater(operation string, err error) Response {
	d.metrics.RecordBackendError(operation)
	event := d.logger.Warn()
	if !errors.Is(err, koordinator.ErrUnavailable) {
		event = d.logger.Error()
	}
	event.Err(err).
		Str("event", "backend_call_failed").
		Str("operation", operation).
		Msg("backend call failed, asking user to retry later")
	return Statement(d.phrases.TryLater)
}

func (d *Dialogue) notUnderstood() Response {
	return Question(d.phrases.NotUnderstood)
}

// load reads a stage, treating absent and unreadable stages alike.
func (d *Dialogue) load(ctx context.Context, conversationID string, stage snapshot.Stage, out any) bool {
	err := d.store.Get(ctx, conversationID, stage, out)
	if err == nil {
		return true
	}
	if !snapshot.IsNotFound(err) {
		d.logger.Warn().
			Err(err).
			Str("event", "snapshot_unreadable").
			Str("conversation_id", conversationID).
			Str("stage", string(stage)).
			Msg("ignoring unreadable snapshot stage")
	}
	return false
}
