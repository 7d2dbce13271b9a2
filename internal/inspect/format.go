package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/koorda/internal/resolver"
	"github.com/dyluth/koorda/internal/timespec"
	"github.com/dyluth/koorda/pkg/koordinator"
)

// FormatNotifications writes notifications as a table with columns ID,
// WORKFLOW, TASK, USER and CREATED (local clock time).
// Returns the number of notifications formatted.
func FormatNotifications(w io.Writer, notifications []koordinator.Notification, namespace string, loc *time.Location) int {
	if len(notifications) == 0 {
		fmt.Fprintf(w, "No pending notifications in namespace '%s'\n", namespace)
		return 0
	}

	fmt.Fprintf(w, "Pending notifications in namespace '%s':\n\n", namespace)
	fmt.Fprintf(w, "%-10s %-24s %-24s %-12s %s\n", "ID", "WORKFLOW", "TASK", "USER", "CREATED")
	fmt.Fprintf(w, "%-10s %-24s %-24s %-12s %s\n",
		"----------", "------------------------", "------------------------", "------------", "-------")

	for _, n := range notifications {
		fmt.Fprintf(w, "%-10s %-24s %-24s %-12s %s\n",
			formatID(n.ID),
			truncate(n.WorkflowName(), 24),
			truncate(n.TaskName(), 24),
			dash(n.UserName),
			formatClock(n.CreationDate, loc),
		)
	}

	fmt.Fprintf(w, "\n%d %s\n", len(notifications), plural(len(notifications), "notification"))
	return len(notifications)
}

// FormatDefinitions writes workflow definitions as a table sorted as given.
func FormatDefinitions(w io.Writer, definitions []koordinator.WorkflowDefinition) int {
	if len(definitions) == 0 {
		fmt.Fprintln(w, "No workflow definitions found")
		return 0
	}

	fmt.Fprintf(w, "%-10s %-32s %s\n", "ID", "NAME", "VER")
	fmt.Fprintf(w, "%-10s %-32s %s\n", "----------", "--------------------------------", "---")
	for _, d := range definitions {
		fmt.Fprintf(w, "%-10s %-32s %s\n", formatID(d.ID), truncate(d.Name, 32), formatVersion(d.VersionNumber))
	}

	fmt.Fprintf(w, "\n%d %s\n", len(definitions), plural(len(definitions), "definition"))
	return len(definitions)
}

// FormatInstances writes a workflow's running and finished instances.
// Finished instances are flagged when they ended with failed tasks.
func FormatInstances(w io.Writer, workflow string, running, finished []koordinator.ScenarioInstance, loc *time.Location) int {
	total := len(running) + len(finished)
	if total == 0 {
		fmt.Fprintf(w, "No instances of '%s'\n", workflow)
		return 0
	}

	fmt.Fprintf(w, "Instances of '%s':\n\n", workflow)
	fmt.Fprintf(w, "%-10s %-9s %-8s %s\n", "ID", "STATE", "STARTED", "TASKS")
	fmt.Fprintf(w, "%-10s %-9s %-8s %s\n", "----------", "---------", "--------", "-----")

	for _, inst := range running {
		fmt.Fprintf(w, "%-10s %-9s %-8s %s\n",
			formatID(inst.ID), "running", formatClock(inst.StartDate, loc), joinTasks(inst.RunningTaskNames()))
	}
	for _, inst := range finished {
		state, tasks := "finished", "-"
		if inst.HasErrors() {
			state, tasks = "error", joinTasks(inst.ErrorTaskNames())
		}
		fmt.Fprintf(w, "%-10s %-9s %-8s %s\n", formatID(inst.ID), state, formatClock(inst.StartDate, loc), tasks)
	}

	fmt.Fprintf(w, "\n%d %s\n", total, plural(total, "instance"))
	return total
}

// FormatOutcome explains how a spoken name resolved against the candidates.
func FormatOutcome(w io.Writer, spoken string, outcome resolver.Outcome) {
	switch outcome.Kind {
	case resolver.Unique:
		m := outcome.Match
		fmt.Fprintf(w, "'%s' → %s", spoken, m.Name)
		if m.Version > 0 {
			fmt.Fprintf(w, " (%s, id %s)", formatVersion(m.Version), m.ID)
		}
		fmt.Fprintln(w)
	case resolver.Ambiguous:
		fmt.Fprintf(w, "'%s' is ambiguous between:\n", spoken)
		for _, name := range outcome.Options {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	default:
		fmt.Fprintf(w, "'%s' matched nothing: no candidates\n", spoken)
	}
}

// FormatJSONL writes items as line-delimited JSON, one item per line.
func FormatJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatID truncates backend IDs to 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return dash(id)
}

func formatVersion(version int) string {
	if version <= 0 {
		return "-"
	}
	return fmt.Sprintf("v%d", version)
}

func formatClock(utc string, loc *time.Location) string {
	return dash(timespec.Clock(utc, loc))
}

func joinTasks(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return truncate(strings.Join(names, ", "), 48)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return dash(s)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
