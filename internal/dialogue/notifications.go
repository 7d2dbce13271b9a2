package dialogue

import (
	"context"
	"fmt"

	"github.com/dyluth/koorda/internal/resolver"
	"github.com/dyluth/koorda/internal/timespec"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/dyluth/koorda/pkg/snapshot"
)

// State is the narrowing stage reached by a notification conversation.
type State int

const (
	// Start means nothing has been fetched yet.
	Start State = iota
	// AllFetched means today's notifications are cached, grouped by workflow.
	AllFetched
	// ByWorkflowNarrowed means a set of candidate tasks is selected.
	ByWorkflowNarrowed
	// ByTaskSelected means exactly one task is selected.
	ByTaskSelected
)

func (s State) String() string {
	switch s {
	case AllFetched:
		return "all_fetched"
	case ByWorkflowNarrowed:
		return "by_workflow_narrowed"
	case ByTaskSelected:
		return "by_task_selected"
	default:
		return "start"
	}
}

// Action is what the user wants done with the selected task.
type Action int

const (
	Validate Action = iota
	Cancel
)

func (a Action) String() string {
	if a == Cancel {
		return "cancel"
	}
	return "validate"
}

// TaskQuery holds the entities a validate/cancel utterance may carry.
type TaskQuery struct {
	WorkflowName string
	TaskName     string
	// Time is a local "HH:MM" creation time.
	Time string
}

func (q TaskQuery) empty() bool {
	return q.WorkflowName == "" && q.TaskName == "" && q.Time == ""
}

// notificationStages are the stages owned by the notification conversation.
var notificationStages = []snapshot.Stage{
	snapshot.StageAll,
	snapshot.StageByWorkflow,
	snapshot.StageByTask,
	snapshot.StageByWorkflowByTask,
}

// session is one turn's view of the conversation's stored stages.
type session struct {
	all        []koordinator.Notification
	groups     []WorkflowGroup
	candidates []koordinator.Notification
	selected   *koordinator.Notification
}

func (s session) state() State {
	switch {
	case s.selected != nil:
		return ByTaskSelected
	case s.candidates != nil:
		return ByWorkflowNarrowed
	case s.groups != nil:
		return AllFetched
	default:
		return Start
	}
}

// State derives the conversation's state from its stored stages.
func (d *Dialogue) State(ctx context.Context, conversationID string) State {
	return d.loadSession(ctx, conversationID).state()
}

func (d *Dialogue) loadSession(ctx context.Context, conversationID string) session {
	var s session

	var groups []WorkflowGroup
	if d.load(ctx, conversationID, snapshot.StageByWorkflow, &groups) {
		s.groups = nonNil(groups)
	}
	var all []koordinator.Notification
	if d.load(ctx, conversationID, snapshot.StageAll, &all) {
		s.all = all
	}
	var candidates []koordinator.Notification
	if d.load(ctx, conversationID, snapshot.StageByWorkflowByTask, &candidates) && len(candidates) > 0 {
		s.candidates = candidates
	}
	var selected koordinator.Notification
	if d.load(ctx, conversationID, snapshot.StageByTask, &selected) && selected.ID != "" {
		s.selected = &selected
	}

	// a flat list is derivable from the groups and vice versa
	if s.all == nil && s.groups != nil {
		for _, g := range s.groups {
			s.all = append(s.all, g.Notifications...)
		}
	}
	if s.groups == nil && s.all != nil {
		s.groups = nonNil(GroupByWorkflow(s.all))
	}
	return s
}

func nonNil(groups []WorkflowGroup) []WorkflowGroup {
	if groups == nil {
		return []WorkflowGroup{}
	}
	return groups
}

// fetch refreshes today's notifications, replacing every stored stage.
func (d *Dialogue) fetch(ctx context.Context, conversationID string) (session, error) {
	notifications, err := d.backend.PendingNotifications(ctx, d.namespace)
	if err != nil {
		return session{}, err
	}

	now := d.now()
	today := make([]koordinator.Notification, 0, len(notifications))
	for _, n := range notifications {
		if timespec.SameDay(n.CreationDate, now, d.loc) {
			today = append(today, n)
		}
	}

	if err := d.store.Delete(ctx, conversationID, notificationStages...); err != nil {
		return session{}, err
	}

	s := session{all: today, groups: nonNil(GroupByWorkflow(today))}
	if len(today) == 0 {
		return s, nil
	}
	if err := d.store.Put(ctx, conversationID, snapshot.StageAll, s.all); err != nil {
		return session{}, err
	}
	if err := d.store.Put(ctx, conversationID, snapshot.StageByWorkflow, s.groups); err != nil {
		return session{}, err
	}

	d.logger.Debug().
		Str("event", "notifications_fetched").
		Str("conversation_id", conversationID).
		Int("total", len(notifications)).
		Int("today", len(today)).
		Int("workflows", len(s.groups)).
		Msg("fetched pending notifications")
	return s, nil
}

// narrow persists a narrower selection. A single notification becomes the
// selected task; several become the candidate set. The other stage is removed
// so the derived state always reflects the latest narrowing.
func (d *Dialogue) narrow(ctx context.Context, conversationID string, selection []koordinator.Notification) error {
	if len(selection) == 1 {
		if err := d.store.Put(ctx, conversationID, snapshot.StageByTask, selection[0]); err != nil {
			return err
		}
		return d.store.Delete(ctx, conversationID, snapshot.StageByWorkflowByTask)
	}
	if err := d.store.Put(ctx, conversationID, snapshot.StageByWorkflowByTask, selection); err != nil {
		return err
	}
	return d.store.Delete(ctx, conversationID, snapshot.StageByTask)
}

// CheckNotifications answers "do I have notifications?" and "what about
// workflow X?".
func (d *Dialogue) CheckNotifications(ctx context.Context, conversationID, workflowName string) Response {
	s := d.loadSession(ctx, conversationID)

	if workflowName == "" {
		if s.state() == ByTaskSelected {
			return Question(d.phrases.ValidateOrCancel)
		}

		fresh, err := d.fetch(ctx, conversationID)
		if err != nil {
			return d.tryLater("notifications", err)
		}

		ov := d.composeOverview(fresh.groups)
		if ov.stage != "" {
			if err := d.narrow(ctx, conversationID, ov.selection); err != nil {
				return d.tryLater("snapshot", err)
			}
		}
		if len(fresh.groups) == 0 {
			return Statement(ov.text)
		}
		return Question(ov.text)
	}

	if s.state() == Start {
		fresh, err := d.fetch(ctx, conversationID)
		if err != nil {
			return d.tryLater("notifications", err)
		}
		if len(fresh.groups) == 0 {
			return Statement(d.phrases.NoNotifications)
		}
		s = fresh
	}

	group, resp, ok := d.resolveGroup(s.groups, workflowName)
	if !ok {
		return resp
	}

	ov := d.describeGroup(group)
	if err := d.narrow(ctx, conversationID, ov.selection); err != nil {
		return d.tryLater("snapshot", err)
	}
	return Question(ov.text)
}

// resolveGroup matches a spoken workflow name against the cached groups.
// When ok is false, resp is the question or statement to return.
func (d *Dialogue) resolveGroup(groups []WorkflowGroup, spoken string) (WorkflowGroup, Response, bool) {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Workflow)
	}

	out := d.resolver.Resolve(spoken, resolver.FromNames(names))
	switch out.Kind {
	case resolver.Unique:
		for _, g := range groups {
			if g.Workflow == out.Match.Name {
				return g, Response{}, true
			}
		}
		return WorkflowGroup{}, d.notUnderstood(), false
	case resolver.Ambiguous:
		return WorkflowGroup{}, Question(d.phrases.f(d.phrases.AmbiguousWorkflow, len(out.Options), d.phrases.List(out.Options))), false
	default:
		return WorkflowGroup{}, d.notUnderstood(), false
	}
}

// ActOnTask validates or cancels the task the utterance points at. The task
// is picked, in order of precedence, by task name, by creation time, by
// workflow name, or as the already selected task.
func (d *Dialogue) ActOnTask(ctx context.Context, conversationID string, action Action, query TaskQuery) Response {
	s := d.loadSession(ctx, conversationID)

	if s.state() == Start && !query.empty() {
		fresh, err := d.fetch(ctx, conversationID)
		if err != nil {
			return d.tryLater("notifications", err)
		}
		if len(fresh.groups) == 0 {
			return Statement(d.phrases.NoNotifications)
		}
		s = fresh
	}

	var task koordinator.Notification
	switch {
	case query.TaskName != "":
		picked, resp, ok := d.pickByTaskName(ctx, conversationID, s, query.TaskName)
		if !ok {
			return resp
		}
		task = picked

	case query.Time != "":
		picked, resp, ok := d.pickByTime(s, query.Time)
		if !ok {
			return resp
		}
		task = picked

	case query.WorkflowName != "":
		group, resp, ok := d.resolveGroup(s.groups, query.WorkflowName)
		if !ok {
			return resp
		}
		if len(group.Notifications) > 1 {
			ov := d.describeGroup(group)
			if err := d.narrow(ctx, conversationID, ov.selection); err != nil {
				return d.tryLater("snapshot", err)
			}
			return Question(ov.text)
		}
		task = group.Notifications[0]

	case s.selected != nil:
		task = *s.selected

	default:
		return d.notUnderstood()
	}

	return d.act(ctx, conversationID, action, task)
}

// pickByTaskName resolves a task name over the candidate set, or over all of
// today's notifications when nothing is narrowed yet.
func (d *Dialogue) pickByTaskName(ctx context.Context, conversationID string, s session, spoken string) (koordinator.Notification, Response, bool) {
	pool := s.candidates
	if pool == nil {
		pool = s.all
	}
	if len(pool) == 0 {
		return koordinator.Notification{}, d.notUnderstood(), false
	}

	candidates := make([]resolver.Candidate, 0, len(pool))
	for _, n := range pool {
		candidates = append(candidates, resolver.Candidate{ID: n.ID, Name: n.TaskName()})
	}

	out := d.resolver.Resolve(spoken, candidates)
	switch out.Kind {
	case resolver.Unique:
		var same []koordinator.Notification
		for _, n := range pool {
			if n.TaskName() == out.Match.Name {
				same = append(same, n)
			}
		}
		if len(same) == 1 {
			return same[0], Response{}, true
		}
		// several tasks share the name: keep them and list their times
		if err := d.narrow(ctx, conversationID, same); err != nil {
			return koordinator.Notification{}, d.tryLater("snapshot", err), false
		}
		return koordinator.Notification{}, Question(d.describeCandidates(same)), false

	case resolver.Ambiguous:
		return koordinator.Notification{}, Question(d.phrases.f(d.phrases.AmbiguousTask, d.phrases.List(out.Options))), false

	default:
		return koordinator.Notification{}, d.notUnderstood(), false
	}
}

// pickByTime matches a spoken "HH:MM" against local creation times.
func (d *Dialogue) pickByTime(s session, spoken string) (koordinator.Notification, Response, bool) {
	pool := s.candidates
	if pool == nil {
		pool = s.all
	}

	var matches []koordinator.Notification
	for _, n := range pool {
		if d.clock(n.CreationDate) == spoken {
			matches = append(matches, n)
		}
	}

	switch len(matches) {
	case 0:
		return koordinator.Notification{}, d.notUnderstood(), false
	case 1:
		return matches[0], Response{}, true
	default:
		names := make([]string, 0, len(matches))
		for _, n := range matches {
			names = append(names, n.TaskName())
		}
		return koordinator.Notification{}, Question(d.phrases.f(d.phrases.AmbiguousTask, d.phrases.List(names))), false
	}
}

// describeCandidates speaks an arbitrary candidate set, grouped by workflow.
func (d *Dialogue) describeCandidates(candidates []koordinator.Notification) string {
	groups := GroupByWorkflow(candidates)
	if len(groups) == 2 {
		return d.composeTwoWorkflows(groups[0], groups[1])
	}
	parts := make([]string, 0, len(groups)+1)
	for i, g := range groups {
		clause := d.singleClause(g)
		if len(g.Notifications) > 1 {
			clause = d.manyClause(g)
		}
		if i == 0 {
			parts = append(parts, d.phrases.f(d.phrases.YouHave, clause))
		} else {
			parts = append(parts, d.phrases.f(d.phrases.AndYouHave, clause))
		}
	}
	return Sentences(append(parts, d.phrases.ActOnOneOf)...)
}

func (d *Dialogue) act(ctx context.Context, conversationID string, action Action, task koordinator.Notification) Response {
	var (
		ok  bool
		err error
	)
	switch action {
	case Cancel:
		ok, err = d.backend.CancelTask(ctx, task.ID)
	default:
		ok, err = d.backend.CompleteTask(ctx, task.ID)
	}
	if err != nil {
		return d.tryLater("task_"+action.String(), err)
	}
	if !ok {
		return d.tryLater("task_"+action.String(), fmt.Errorf("task %s was not updated", task.ID))
	}

	d.logger.Info().
		Str("event", "task_"+action.String()).
		Str("conversation_id", conversationID).
		Str("task_instance_id", task.ID).
		Str("workflow", task.WorkflowName()).
		Msg("manual task updated")

	// the conversation is back at Start
	if err := d.store.Delete(ctx, conversationID, notificationStages...); err != nil {
		d.logger.Warn().Err(err).
			Str("event", "snapshot_purge_failed").
			Str("conversation_id", conversationID).
			Msg("failed to purge notification snapshots")
	}

	template := d.phrases.Validated
	if action == Cancel {
		template = d.phrases.Cancelled
	}
	return Question(d.phrases.f(template, task.TaskName(), task.WorkflowName()))
}
