// Package snapshot persists per-conversation narrowing state between dialogue
// turns. A conversation owns a handful of named stages; each stage holds one
// JSON document that is replaced wholesale on every write.
//
// Two backends are provided: RedisStore (instance-namespaced keys with a TTL)
// and FileStore (one JSON file per conversation and stage).
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Stage names one persisted narrowing step of a conversation.
type Stage string

const (
	// StageAll holds the flat list of today's notifications.
	StageAll Stage = "all"
	// StageByWorkflow holds the notifications grouped by workflow, in order.
	StageByWorkflow Stage = "by-workflow"
	// StageByTask holds the single selected notification.
	StageByTask Stage = "by-task"
	// StageByWorkflowByTask holds an ambiguous set of candidate notifications.
	StageByWorkflowByTask Stage = "by-workflow-by-task"
	// StageInstances holds the workflow instances of the last status question.
	StageInstances Stage = "instances"
)

// Stages lists every stage a conversation can own.
var Stages = []Stage{StageAll, StageByWorkflow, StageByTask, StageByWorkflowByTask, StageInstances}

var (
	// ErrNotFound is returned by Get when the stage has never been written,
	// was deleted, or expired.
	ErrNotFound = errors.New("snapshot not found")
	// ErrCorrupt is returned by Get when the stored document cannot be decoded.
	ErrCorrupt = errors.New("corrupt snapshot")
)

// Store is a per-conversation snapshot cache.
type Store interface {
	// Put replaces the stage document with v encoded as JSON.
	Put(ctx context.Context, conversationID string, stage Stage, v any) error
	// Get decodes the stage document into out. Returns ErrNotFound or ErrCorrupt.
	Get(ctx context.Context, conversationID string, stage Stage, out any) error
	// Exists reports whether the stage has a document.
	Exists(ctx context.Context, conversationID string, stage Stage) (bool, error)
	// Delete removes the given stages. Missing stages are ignored.
	Delete(ctx context.Context, conversationID string, stages ...Stage) error
	// Purge removes every stage of the conversation.
	Purge(ctx context.Context, conversationID string) error
}

// IsNotFound reports whether err means the stage is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func validate(conversationID string, stage Stage) error {
	if conversationID == "" {
		return fmt.Errorf("conversation id cannot be empty")
	}
	for _, s := range Stages {
		if s == stage {
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", stage)
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
