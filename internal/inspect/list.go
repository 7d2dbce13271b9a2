// Package inspect lists what the Koordinator holds for the voice skill:
// pending notifications, workflow definitions and scenario instances.
package inspect

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dyluth/koorda/internal/timespec"
	"github.com/dyluth/koorda/pkg/koordinator"
)

// OutputFormat specifies how listings are written.
type OutputFormat string

const (
	// OutputFormatDefault is a human-readable table
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL writes complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(value string) (OutputFormat, error) {
	switch OutputFormat(value) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(value), nil
	}
	return "", fmt.Errorf("unknown output format: %s", value)
}

// Source is the part of the Koordinator client listings read from.
type Source interface {
	PendingNotifications(ctx context.Context, namespace string) ([]koordinator.Notification, error)
	WorkflowDefinitions(ctx context.Context) ([]koordinator.WorkflowDefinition, error)
	RunningAndFinished(ctx context.Context, workflowName string) (running, finished []koordinator.ScenarioInstance, err error)
}

// NotificationFilter narrows a notification listing. All filters are ANDed.
type NotificationFilter struct {
	WorkflowGlob string // glob on the workflow name, case-insensitive; empty = no filter
	User         string // exact user name; empty = no filter
	TodayOnly    bool   // keep notifications created today in Location
	Now          time.Time
	Location     *time.Location
}

func (f NotificationFilter) matches(n koordinator.Notification) bool {
	if f.WorkflowGlob != "" {
		matched, err := filepath.Match(strings.ToLower(f.WorkflowGlob), strings.ToLower(n.WorkflowName()))
		if err != nil || !matched {
			return false
		}
	}
	if f.User != "" && n.UserName != f.User {
		return false
	}
	if f.TodayOnly && !timespec.SameDay(n.CreationDate, f.Now, f.Location) {
		return false
	}
	return true
}

// ListNotifications writes a namespace's pending notifications, oldest first.
func ListNotifications(ctx context.Context, src Source, namespace string, format OutputFormat, filter NotificationFilter, w io.Writer) error {
	all, err := src.PendingNotifications(ctx, namespace)
	if err != nil {
		return fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]koordinator.Notification, 0, len(all))
	for _, n := range all {
		if filter.matches(n) {
			notifications = append(notifications, n)
		}
	}
	sort.SliceStable(notifications, func(i, j int) bool {
		return createdAt(notifications[i]).Before(createdAt(notifications[j]))
	})

	switch format {
	case OutputFormatDefault:
		FormatNotifications(w, notifications, namespace, filter.Location)
		return nil
	case OutputFormatJSONL:
		return FormatJSONL(w, notifications)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// ListDefinitions writes every workflow definition sorted by name then version.
func ListDefinitions(ctx context.Context, src Source, format OutputFormat, w io.Writer) error {
	definitions, err := src.WorkflowDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list definitions: %w", err)
	}

	sort.SliceStable(definitions, func(i, j int) bool {
		a, b := definitions[i], definitions[j]
		if !strings.EqualFold(a.Name, b.Name) {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		return a.VersionNumber < b.VersionNumber
	})

	switch format {
	case OutputFormatDefault:
		FormatDefinitions(w, definitions)
		return nil
	case OutputFormatJSONL:
		return FormatJSONL(w, definitions)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// ListInstances writes the running and finished instances of one workflow.
func ListInstances(ctx context.Context, src Source, workflow string, format OutputFormat, loc *time.Location, w io.Writer) error {
	running, finished, err := src.RunningAndFinished(ctx, workflow)
	if err != nil {
		return fmt.Errorf("failed to list instances: %w", err)
	}

	switch format {
	case OutputFormatDefault:
		FormatInstances(w, workflow, running, finished, loc)
		return nil
	case OutputFormatJSONL:
		return FormatJSONL(w, append(running, finished...))
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// createdAt sorts unparseable dates first.
func createdAt(n koordinator.Notification) time.Time {
	t, _ := timespec.Parse(n.CreationDate)
	return t
}
