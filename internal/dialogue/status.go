package dialogue

import (
	"context"
	"strings"

	"github.com/dyluth/koorda/internal/resolver"
	"github.com/dyluth/koorda/internal/timespec"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/dyluth/koorda/pkg/snapshot"
)

// Instance states kept in an InstanceSnapshot.
const (
	InstanceRunning = "running"
	InstanceError   = "error"
)

// InstanceSummary is one of today's instances as spoken to the user.
type InstanceSummary struct {
	ID        string   `json:"id"`
	State     string   `json:"state"`
	StartTime string   `json:"start_time"` // local HH:MM
	Tasks     []string `json:"tasks"`      // running or failed tasks, by State
}

// InstanceSnapshot is persisted after a status answer so the user can ask
// about one instance by start time or by state.
type InstanceSnapshot struct {
	Workflow  string            `json:"workflow"`
	Instances []InstanceSummary `json:"instances"`
}

func (s InstanceSnapshot) byState(state string) []InstanceSummary {
	var out []InstanceSummary
	for _, i := range s.Instances {
		if i.State == state {
			out = append(out, i)
		}
	}
	return out
}

// StatusQuery holds the entities a workflow status utterance may carry.
type StatusQuery struct {
	WorkflowName string
	// Time is a local "HH:MM" start time of a previously listed instance.
	Time string
	// Status is the spoken instance state ("exécution", "erreur").
	Status string
}

// WorkflowStatus reports today's running and failed instances of a workflow.
// A workflow name refreshes the instance snapshot; a time or status then
// narrows the answer to one instance's tasks, the status taking precedence.
func (d *Dialogue) WorkflowStatus(ctx context.Context, conversationID string, query StatusQuery) Response {
	if query.WorkflowName == "" && query.Time == "" && query.Status == "" {
		return Question(d.phrases.StatusWhich)
	}

	var resp Response
	if query.WorkflowName != "" {
		var done bool
		resp, done = d.refreshStatus(ctx, conversationID, query.WorkflowName)
		if done {
			return resp
		}
	}

	if query.Time == "" && query.Status == "" {
		return resp
	}

	var snap InstanceSnapshot
	if !d.load(ctx, conversationID, snapshot.StageInstances, &snap) {
		snap = InstanceSnapshot{}
	}

	if query.Status != "" {
		state := InstanceError
		if isRunningWord(query.Status) {
			state = InstanceRunning
		}
		matches := snap.byState(state)
		if len(matches) == 0 {
			return Question(Sentences(d.phrases.StatusNoInstanceIn, d.phrases.AnotherWorkflow))
		}
		return Question(Sentences(d.instanceTasks(matches[0]), d.phrases.AnotherWorkflow))
	}

	for _, i := range snap.Instances {
		if i.StartTime == query.Time {
			return Question(Sentences(d.instanceTasks(i), d.phrases.AnotherWorkflow))
		}
	}
	return Question(Sentences(d.phrases.StatusNoInstanceAt, d.phrases.AnotherWorkflow))
}

// refreshStatus resolves the workflow, fetches its instances and composes the
// headline. done is true when the answer must be returned as is (ambiguity,
// unknown workflow, backend failure).
func (d *Dialogue) refreshStatus(ctx context.Context, conversationID, spoken string) (Response, bool) {
	definitions, err := d.backend.WorkflowDefinitions(ctx)
	if err != nil {
		return d.tryLater("workflow_definitions", err), true
	}

	out := d.resolver.Resolve(spoken, definitionCandidates(definitions))
	switch out.Kind {
	case resolver.Ambiguous:
		return Question(d.phrases.f(d.phrases.StatusAmbiguous, len(out.Options), d.phrases.List(out.Options))), true
	case resolver.NotFound:
		return Statement(d.phrases.StatusUnknown), true
	}
	workflow := out.Match.Name

	running, finished, err := d.backend.RunningAndFinished(ctx, workflow)
	if err != nil {
		return d.tryLater("scenario_instances", err), true
	}

	snap, finishedToday := d.summarize(workflow, running, finished)
	if len(snap.Instances) == 0 {
		if err := d.store.Delete(ctx, conversationID, snapshot.StageInstances); err != nil {
			return d.tryLater("snapshot", err), true
		}
	} else if err := d.store.Put(ctx, conversationID, snapshot.StageInstances, snap); err != nil {
		return d.tryLater("snapshot", err), true
	}

	d.logger.Debug().
		Str("event", "instances_fetched").
		Str("conversation_id", conversationID).
		Str("workflow", workflow).
		Int("running", len(snap.byState(InstanceRunning))).
		Int("error", len(snap.byState(InstanceError))).
		Int("finished_today", finishedToday).
		Msg("fetched workflow instances")

	return Question(d.composeStatus(snap, finishedToday)), false
}

// summarize keeps today's running instances and today's finished instances
// that ended with failed tasks.
func (d *Dialogue) summarize(workflow string, running, finished []koordinator.ScenarioInstance) (InstanceSnapshot, int) {
	now := d.now()
	snap := InstanceSnapshot{Workflow: workflow}
	for _, inst := range running {
		if !timespec.SameDay(inst.StartDate, now, d.loc) {
			continue
		}
		snap.Instances = append(snap.Instances, InstanceSummary{
			ID:        inst.ID,
			State:     InstanceRunning,
			StartTime: d.clock(inst.StartDate),
			Tasks:     inst.RunningTaskNames(),
		})
	}

	finishedToday := 0
	for _, inst := range finished {
		if !timespec.SameDay(inst.StartDate, now, d.loc) {
			continue
		}
		finishedToday++
		if !inst.HasErrors() {
			continue
		}
		snap.Instances = append(snap.Instances, InstanceSummary{
			ID:        inst.ID,
			State:     InstanceError,
			StartTime: d.clock(inst.StartDate),
			Tasks:     inst.ErrorTaskNames(),
		})
	}
	return snap, finishedToday
}

// composeStatus picks the headline from the (running, error) counts.
func (d *Dialogue) composeStatus(snap InstanceSnapshot, finishedToday int) string {
	run, fail := snap.byState(InstanceRunning), snap.byState(InstanceError)
	runTimes, failTimes := startTimes(run), startTimes(fail)
	p := d.phrases

	switch {
	case len(run) == 0 && len(fail) == 0:
		if finishedToday > 0 {
			return p.f(p.StatusAllSucceeded, snap.Workflow)
		}
		return p.f(p.StatusNoneToday, snap.Workflow)

	case len(run) > 1 && len(fail) > 1:
		return Sentences(p.f(p.StatusManyRunManyErr, len(run), snap.Workflow, p.List(runTimes), len(fail), p.List(failTimes)), p.MoreDetails)
	case len(run) > 1 && len(fail) == 1:
		return Sentences(p.f(p.StatusManyRunOneErr, len(run), snap.Workflow, p.List(runTimes), failTimes[0]), p.MoreDetails)
	case len(run) == 1 && len(fail) > 1:
		return Sentences(p.f(p.StatusOneRunManyErr, snap.Workflow, runTimes[0], len(fail), p.List(failTimes)), p.MoreDetails)
	case len(run) > 1:
		return Sentences(p.f(p.StatusManyRun, len(run), p.List(runTimes)), p.MoreDetails)
	case len(fail) > 1:
		return Sentences(p.f(p.StatusManyErr, len(fail), p.List(failTimes)), p.MoreDetails)
	case len(run) == 1 && len(fail) == 1:
		return Sentences(p.f(p.StatusOneRunOneErr, runTimes[0], failTimes[0]), p.MoreDetails)

	case len(run) == 1:
		inst := run[0]
		switch len(inst.Tasks) {
		case 0:
			return Sentences(p.f(p.StatusOneRun, inst.StartTime), p.InstanceNoTaskDetails, p.AnotherWorkflow)
		case 1:
			return Sentences(p.f(p.StatusOneRunTask, inst.StartTime, inst.Tasks[0]), p.AnotherWorkflow)
		default:
			return Sentences(p.f(p.StatusOneRunTasks, inst.StartTime, p.List(inst.Tasks)), p.AnotherWorkflow)
		}

	default:
		inst := fail[0]
		switch len(inst.Tasks) {
		case 0:
			return Sentences(p.f(p.StatusOneErr, inst.StartTime), p.InstanceNoTaskDetails, p.AnotherWorkflow)
		case 1:
			return Sentences(p.f(p.StatusOneErrTask, inst.StartTime, inst.Tasks[0]), p.AnotherWorkflow)
		default:
			return Sentences(p.f(p.StatusOneErrTasks, inst.StartTime, p.List(inst.Tasks)), p.AnotherWorkflow)
		}
	}
}

// instanceTasks describes the running or failed tasks of one instance.
func (d *Dialogue) instanceTasks(inst InstanceSummary) string {
	p := d.phrases
	if len(inst.Tasks) == 0 {
		return p.InstanceNoTaskDetails
	}
	if inst.State == InstanceRunning {
		if len(inst.Tasks) == 1 {
			return p.f(p.InstanceRunningTask, inst.Tasks[0])
		}
		return p.f(p.InstanceRunningTasks, p.List(inst.Tasks))
	}
	if len(inst.Tasks) == 1 {
		return p.f(p.InstanceErrorTask, inst.Tasks[0])
	}
	return p.f(p.InstanceErrorTasks, p.List(inst.Tasks))
}

func startTimes(instances []InstanceSummary) []string {
	times := make([]string, 0, len(instances))
	for _, i := range instances {
		times = append(times, i.StartTime)
	}
	return times
}

// isRunningWord reports whether a spoken instance state designates running
// instances ("exécution", "s'exécuter", "en cours") rather than failed ones.
func isRunningWord(word string) bool {
	w := strings.ToLower(word)
	return strings.Contains(w, "exécut") || strings.Contains(w, "execut") || strings.Contains(w, "cours")
}
