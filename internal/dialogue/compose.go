package dialogue

import (
	"github.com/dyluth/koorda/internal/timespec"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/dyluth/koorda/pkg/snapshot"
)

// WorkflowGroup is the list of notifications of one workflow. Groups keep the
// order in which their workflow first appeared in the backend list.
type WorkflowGroup struct {
	Workflow      string                     `json:"workflow"`
	Notifications []koordinator.Notification `json:"notifications"`
}

// GroupByWorkflow partitions notifications by workflow name.
func GroupByWorkflow(notifications []koordinator.Notification) []WorkflowGroup {
	index := make(map[string]int)
	var groups []WorkflowGroup
	for _, n := range notifications {
		i, ok := index[n.WorkflowName()]
		if !ok {
			i = len(groups)
			index[n.WorkflowName()] = i
			groups = append(groups, WorkflowGroup{Workflow: n.WorkflowName()})
		}
		groups[i].Notifications = append(groups[i].Notifications, n)
	}
	return groups
}

// overview is the outcome of composing the first answer after a fetch: the
// sentence to speak and the narrower stage to persist, if any.
type overview struct {
	text      string
	stage     snapshot.Stage // empty when nothing narrower is persisted
	selection []koordinator.Notification
}

// composeOverview picks the phrasing branch from the number of workflows and
// the number of tasks in each:
//
//	1 workflow x 1 task   -> describe it, select it (by-task)
//	1 workflow x n tasks  -> list tasks, keep them as candidates
//	2 workflows           -> describe both groups, keep all tasks as candidates
//	3+ workflows          -> counts per workflow, ask which one
func (d *Dialogue) composeOverview(groups []WorkflowGroup) overview {
	switch len(groups) {
	case 0:
		return overview{text: d.phrases.NoNotifications}

	case 1:
		return d.describeGroup(groups[0])

	case 2:
		var all []koordinator.Notification
		for _, g := range groups {
			all = append(all, g.Notifications...)
		}
		return overview{
			text:      d.composeTwoWorkflows(groups[0], groups[1]),
			stage:     snapshot.StageByWorkflowByTask,
			selection: all,
		}

	default:
		counts := make([]string, 0, len(groups))
		for _, g := range groups {
			if len(g.Notifications) == 1 {
				counts = append(counts, d.phrases.f(d.phrases.CountOne, g.Workflow))
			} else {
				counts = append(counts, d.phrases.f(d.phrases.CountMany, len(g.Notifications), g.Workflow))
			}
		}
		return overview{text: d.phrases.f(d.phrases.WhichWorkflow, d.phrases.List(counts))}
	}
}

// describeGroup speaks one workflow's notifications and selects them.
func (d *Dialogue) describeGroup(g WorkflowGroup) overview {
	if len(g.Notifications) == 1 {
		return overview{
			text:      Sentences(d.phrases.f(d.phrases.YouHave, d.singleClause(g)), d.phrases.ActOnThis),
			stage:     snapshot.StageByTask,
			selection: g.Notifications,
		}
	}
	return overview{
		text:      Sentences(d.phrases.f(d.phrases.YouHave, d.manyClause(g)), d.phrases.ActOnOneOf),
		stage:     snapshot.StageByWorkflowByTask,
		selection: g.Notifications,
	}
}

// composeTwoWorkflows covers the four (1|n, 1|n) shapes of two groups.
func (d *Dialogue) composeTwoWorkflows(first, second WorkflowGroup) string {
	var a, b string
	switch {
	case len(first.Notifications) == 1 && len(second.Notifications) == 1:
		a, b = d.singleClause(first), d.singleClause(second)
	case len(first.Notifications) == 1:
		a, b = d.singleClause(first), d.manyClause(second)
	case len(second.Notifications) == 1:
		a, b = d.manyClause(first), d.singleClause(second)
	default:
		a, b = d.manyClause(first), d.manyClause(second)
	}
	return Sentences(
		d.phrases.f(d.phrases.YouHave, a),
		d.phrases.f(d.phrases.AndYouHave, b),
		d.phrases.ActOnOneOf,
	)
}

func (d *Dialogue) singleClause(g WorkflowGroup) string {
	n := g.Notifications[0]
	return d.phrases.f(d.phrases.OneNotification, n.TaskName(), g.Workflow, n.UserName, d.clock(n.CreationDate))
}

func (d *Dialogue) manyClause(g WorkflowGroup) string {
	tasks := make([]string, 0, len(g.Notifications))
	times := make([]string, 0, len(g.Notifications))
	var users []string
	seen := make(map[string]struct{})
	for _, n := range g.Notifications {
		tasks = append(tasks, n.TaskName())
		times = append(times, d.clock(n.CreationDate))
		if _, ok := seen[n.UserName]; !ok {
			seen[n.UserName] = struct{}{}
			users = append(users, n.UserName)
		}
	}
	return d.phrases.f(d.phrases.ManyNotification,
		len(g.Notifications), g.Workflow, d.phrases.List(tasks), d.phrases.List(times), d.phrases.List(users))
}

func (d *Dialogue) clock(utc string) string {
	return timespec.Clock(utc, d.loc)
}
