package dialogue

import (
	"context"
	"errors"

	"github.com/dyluth/koorda/internal/bridge"
	"github.com/dyluth/koorda/internal/resolver"
	"github.com/dyluth/koorda/pkg/koordinator"
)

// LaunchWorkflow starts the latest version of the workflow the user named.
func (d *Dialogue) LaunchWorkflow(ctx context.Context, conversationID, workflowName string) Response {
	if workflowName == "" {
		return Question(d.phrases.LaunchWhich)
	}

	definitions, err := d.backend.WorkflowDefinitions(ctx)
	if err != nil {
		return d.tryLater("workflow_definitions", err)
	}

	out := d.resolver.Resolve(workflowName, definitionCandidates(definitions))
	switch out.Kind {
	case resolver.Ambiguous:
		return Question(d.phrases.f(d.phrases.LaunchAmbiguous, len(out.Options), d.phrases.List(out.Options)))
	case resolver.NotFound:
		return Question(d.phrases.f(d.phrases.LaunchUnknown, workflowName))
	}

	target := out.Match
	log := d.logger.With().
		Str("conversation_id", conversationID).
		Str("workflow", target.Name).
		Str("definition_id", target.ID).
		Int("version", target.Version).
		Logger()

	// register before starting so the confirmation cannot arrive unobserved
	var q *bridge.Queue
	if d.awaitLaunch {
		q = d.bridge.Register(conversationID)
	}

	status, err := d.backend.StartWorkflow(ctx, target.ID, target.Version)
	var apiErr *koordinator.APIError
	switch {
	case errors.As(err, &apiErr):
		d.metrics.RecordBackendError("workflow_start")
		log.Warn().Err(err).Str("event", "workflow_start_rejected").Int("status", status).Msg("backend refused to start workflow")
		return Statement(d.phrases.f(d.phrases.LaunchFailed, target.Name))
	case err != nil:
		return d.tryLater("workflow_start", err)
	}

	log.Info().Str("event", "workflow_started").Int("status", status).Msg("workflow started")

	if !d.awaitLaunch {
		return Question(d.phrases.f(d.phrases.Launched, target.Name))
	}

	event, err := d.bridge.Await(ctx, q, d.replyTimeout)
	if err != nil {
		log.Warn().Err(err).Str("event", "workflow_start_unconfirmed").Msg("no confirmation received for workflow start")
		return Statement(d.phrases.f(d.phrases.LaunchUnconfirmed, target.Name))
	}
	if text := event.Text(); text != "" {
		return Question(d.phrases.f(d.phrases.LaunchConfirmed, text))
	}
	return Question(d.phrases.f(d.phrases.Launched, target.Name))
}

func definitionCandidates(definitions []koordinator.WorkflowDefinition) []resolver.Candidate {
	candidates := make([]resolver.Candidate, 0, len(definitions))
	for _, def := range definitions {
		candidates = append(candidates, resolver.Candidate{ID: def.ID, Name: def.Name, Version: def.VersionNumber})
	}
	return candidates
}
