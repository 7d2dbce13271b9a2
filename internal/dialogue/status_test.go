package dialogue

import (
	"context"
	"testing"

	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/dyluth/koorda/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instance(id, start string, running, failed []string) koordinator.ScenarioInstance {
	inst := koordinator.ScenarioInstance{ID: id, Name: "Payroll", StartDate: start}
	for _, t := range running {
		inst.RunningTasks = append(inst.RunningTasks, koordinator.TaskRef{Description: t})
	}
	for _, t := range failed {
		inst.ErrorTasks = append(inst.ErrorTasks, koordinator.TaskRef{Description: t})
	}
	return inst
}

func statusFixture(t *testing.T, running, finished []koordinator.ScenarioInstance) *fixture {
	t.Helper()
	f := newFixture(t)
	f.fake.SetDefinitions(koordinator.WorkflowDefinition{ID: "def-1", Name: "Payroll", VersionNumber: 1})
	f.fake.SetInstances("Payroll", koordinator.StatusRunning, running...)
	f.fake.SetInstances("Payroll", koordinator.StatusFinished, finished...)
	return f
}

func TestWorkflowStatus_NoEntities(t *testing.T) {
	f := newFixture(t)
	resp := f.d.WorkflowStatus(context.Background(), conv, StatusQuery{})
	assert.Equal(t, Question(French.StatusWhich), resp)
}

func TestWorkflowStatus_UnknownWorkflow(t *testing.T) {
	f := newFixture(t)
	resp := f.d.WorkflowStatus(context.Background(), conv, StatusQuery{WorkflowName: "Payroll"})
	assert.Equal(t, Statement(French.StatusUnknown), resp)
}

func TestWorkflowStatus_Headlines(t *testing.T) {
	var (
		run1     = instance("r1", "2026-10-16T08:00:00Z", []string{"Extract"}, nil)
		run2     = instance("r2", "2026-10-16T09:00:00Z", []string{"Load"}, nil)
		runMany  = instance("r3", "2026-10-16T08:00:00Z", []string{"Extract", "Load", "Extract"}, nil)
		runNone  = instance("r4", "2026-10-16T08:00:00Z", nil, nil)
		err1     = instance("e1", "2026-10-16T07:15:00Z", nil, []string{"Transform"})
		err2     = instance("e2", "2026-10-16T07:45:00Z", nil, []string{"Publish"})
		ok1      = instance("ok", "2026-10-16T06:00:00Z", nil, nil)
		old      = instance("old", "2026-10-15T08:00:00Z", []string{"Extract"}, nil)
		oldError = instance("olde", "2026-10-15T08:00:00Z", nil, []string{"Transform"})
	)

	tests := []struct {
		name     string
		running  []koordinator.ScenarioInstance
		finished []koordinator.ScenarioInstance
		want     string
	}{
		{
			name:     "nothing today",
			running:  []koordinator.ScenarioInstance{old},
			finished: []koordinator.ScenarioInstance{oldError},
			want:     "Aucune instance du scénario Payroll n'a été lancée aujourd'hui. Etes-vous intéressé par un autre scénario?",
		},
		{
			name:     "only successful instances",
			finished: []koordinator.ScenarioInstance{ok1},
			want:     "Les instances du scénario Payroll lancées aujourd'hui sont terminées sans erreur. Etes-vous intéressé par un autre scénario?",
		},
		{
			name:    "one running with one task",
			running: []koordinator.ScenarioInstance{run1},
			want: "Il y a une instance de ce scénario en cours d'exécution. Elle a été lancée aujourd'hui à 08:00. " +
				"Et la tâche de cette instance qui est en cours d'exécution est : Extract. Etes-vous intéressé par un autre scénario?",
		},
		{
			name:    "one running with several tasks",
			running: []koordinator.ScenarioInstance{runMany},
			want: "Il y a une instance de ce scénario en cours d'exécution. Elle a été lancée aujourd'hui à 08:00. " +
				"Et les tâches de cette instance qui sont en cours d'exécution sont : Extract et Load. Etes-vous intéressé par un autre scénario?",
		},
		{
			name:    "one running without task details",
			running: []koordinator.ScenarioInstance{runNone},
			want: "Il y a une instance de ce scénario en cours d'exécution. Elle a été lancée aujourd'hui à 08:00. " +
				"Je n'ai pas de détail sur les tâches de cette instance. Etes-vous intéressé par un autre scénario?",
		},
		{
			name:     "one failed",
			finished: []koordinator.ScenarioInstance{ok1, err1},
			want: "Il y a une instance de ce scénario en état d'erreur. Elle a été lancée aujourd'hui à 07:15. " +
				"Et la tâche de cette instance qui est en état d'erreur est : Transform. Etes-vous intéressé par un autre scénario?",
		},
		{
			name:     "one running and one failed",
			running:  []koordinator.ScenarioInstance{run1},
			finished: []koordinator.ScenarioInstance{err1},
			want: "Il y a une instance de ce scénario en cours d'exécution qui a été lancée aujourd'hui à 08:00 " +
				"et une instance finie en état d'erreur lancée aujourd'hui à 07:15. " + French.MoreDetails,
		},
		{
			name:    "several running",
			running: []koordinator.ScenarioInstance{run1, run2},
			want: "Il y a 2 instances de ce scénario en cours d'exécution. Elles ont été lancées aujourd'hui à 08:00 et 09:00. " +
				French.MoreDetails,
		},
		{
			name:     "several failed",
			finished: []koordinator.ScenarioInstance{err1, err2},
			want: "Il y a 2 instances de ce scénario en état d'erreur. Elles ont été lancées aujourd'hui à 07:15 et 07:45. " +
				French.MoreDetails,
		},
		{
			name:     "several running and one failed",
			running:  []koordinator.ScenarioInstance{run1, run2},
			finished: []koordinator.ScenarioInstance{err1},
			want: "Il y a 2 instances du scénario Payroll en cours d'exécution. Elles ont été lancées aujourd'hui à 08:00 et 09:00. " +
				"Et il y a une instance de ce scénario finie en état d'erreur. Elle a été lancée aujourd'hui à 07:15. " + French.MoreDetails,
		},
		{
			name:     "one running and several failed",
			running:  []koordinator.ScenarioInstance{run1},
			finished: []koordinator.ScenarioInstance{err1, err2},
			want: "Il y a une instance du scénario Payroll en cours d'exécution. Elle a été lancée aujourd'hui à 08:00. " +
				"Et il y a 2 instances de ce scénario finies en état d'erreur. Ces instances ont été lancées aujourd'hui à 07:15 et 07:45. " +
				French.MoreDetails,
		},
		{
			name:     "several running and several failed",
			running:  []koordinator.ScenarioInstance{run1, run2},
			finished: []koordinator.ScenarioInstance{err1, err2},
			want: "Il y a 2 instances du scénario Payroll en cours d'exécution. Elles ont été lancées aujourd'hui à 08:00 et 09:00. " +
				"Et il y a 2 instances de ce scénario finies en état d'erreur. Ces instances ont été lancées aujourd'hui à 07:15 et 07:45. " +
				French.MoreDetails,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := statusFixture(t, tt.running, tt.finished)

			resp := f.d.WorkflowStatus(context.Background(), conv, StatusQuery{WorkflowName: "payroll"})

			assert.Equal(t, Question(tt.want), resp)
		})
	}
}

func TestWorkflowStatus_FollowUps(t *testing.T) {
	f := statusFixture(t,
		[]koordinator.ScenarioInstance{
			instance("r1", "2026-10-16T08:00:00Z", []string{"Extract", "Load"}, nil),
			instance("r2", "2026-10-16T09:00:00Z", []string{"Load"}, nil),
		},
		[]koordinator.ScenarioInstance{
			instance("e1", "2026-10-16T07:15:00Z", nil, []string{"Transform"}),
		},
	)
	ctx := context.Background()

	f.d.WorkflowStatus(ctx, conv, StatusQuery{WorkflowName: "Payroll"})

	var snap InstanceSnapshot
	require.NoError(t, f.store.Get(ctx, conv, snapshot.StageInstances, &snap))
	assert.Equal(t, "Payroll", snap.Workflow)
	assert.Len(t, snap.Instances, 3)

	tests := []struct {
		name  string
		query StatusQuery
		want  string
	}{
		{
			name:  "by start time",
			query: StatusQuery{Time: "08:00"},
			want:  "Les tâches en cours d'exécution de cette instance sont : Extract et Load. " + French.AnotherWorkflow,
		},
		{
			name:  "by start time with one task",
			query: StatusQuery{Time: "09:00"},
			want:  "C'est la tâche Load de cette instance qui est en cours d'exécution. " + French.AnotherWorkflow,
		},
		{
			name:  "unknown start time",
			query: StatusQuery{Time: "23:59"},
			want:  French.StatusNoInstanceAt + " " + French.AnotherWorkflow,
		},
		{
			name:  "by error status",
			query: StatusQuery{Status: "erreur"},
			want:  "La tâche qui est en état d'erreur de cette instance est : Transform. " + French.AnotherWorkflow,
		},
		{
			name:  "by running status",
			query: StatusQuery{Status: "encours"},
			want:  "Les tâches en cours d'exécution de cette instance sont : Extract et Load. " + French.AnotherWorkflow,
		},
		{
			name:  "status wins over time",
			query: StatusQuery{Time: "08:00", Status: "s'exécuter"},
			want:  "Les tâches en cours d'exécution de cette instance sont : Extract et Load. " + French.AnotherWorkflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Question(tt.want), f.d.WorkflowStatus(ctx, conv, tt.query))
		})
	}
}

func TestWorkflowStatus_FollowUpWithoutSnapshot(t *testing.T) {
	f := newFixture(t)

	resp := f.d.WorkflowStatus(context.Background(), conv, StatusQuery{Status: "erreur"})

	assert.Equal(t, Question(French.StatusNoInstanceIn+" "+French.AnotherWorkflow), resp)
}

func TestWorkflowStatus_Ambiguous(t *testing.T) {
	f := newFixture(t)
	f.fake.SetDefinitions(payrollDefinitions()...)

	resp := f.d.WorkflowStatus(context.Background(), conv, StatusQuery{WorkflowName: "Facture"})

	assert.True(t, resp.ExpectsFollowUp)
	assert.Contains(t, resp.Text, "Facture1 et Facture2")
}

func TestWorkflowStatus_BackendDown(t *testing.T) {
	f := statusFixture(t, nil, nil)
	f.fake.FailReads(true)

	resp := f.d.WorkflowStatus(context.Background(), conv, StatusQuery{WorkflowName: "Payroll"})

	assert.Equal(t, Statement(French.TryLater), resp)
}

func TestIsRunningWord(t *testing.T) {
	for _, w := range []string{"exécution", "s'exécuter", "d'exécution", "encours", "Execution"} {
		assert.True(t, isRunningWord(w), w)
	}
	for _, w := range []string{"erreur", "échec", ""} {
		assert.False(t, isRunningWord(w), w)
	}
}
