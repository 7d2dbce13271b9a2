// Package koordinator is a typed REST client for the Koordinator workflow
// engine services consumed by the voice bridge: the polling service (manual
// task notifications), the workflows service (definitions, start), the
// monitoring service (scenario instances), the task-status service and the
// bot messaging endpoints (user requests out, event feed in).
package koordinator

import (
	"fmt"
	"strings"
)

// Notification is a manual task instance awaiting a human decision.
type Notification struct {
	ID                 string            `json:"id"`
	WorkflowInstanceID string            `json:"workflowInstanceId"`
	CreationDate       string            `json:"creationDate"` // UTC, ISO-8601
	UserName           string            `json:"userName"`
	InputData          NotificationInput `json:"inputData"`
}

// NotificationInput carries the human-facing names of a notification.
type NotificationInput struct {
	ScenarioInstanceName string `json:"scenarioInstanceName"`
	TaskName             string `json:"taskName"`
	Description          string `json:"description,omitempty"`
}

// WorkflowName returns the name of the scenario the task belongs to.
func (n Notification) WorkflowName() string {
	return n.InputData.ScenarioInstanceName
}

// TaskName returns the manual task's display name.
func (n Notification) TaskName() string {
	return n.InputData.TaskName
}

// WorkflowDefinition is one version of a scenario definition.
type WorkflowDefinition struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	VersionNumber int    `json:"versionNumber"`
}

// Instance status values accepted by the monitoring service.
const (
	StatusRunning  = "Running"
	StatusFinished = "Finished"
)

// ScenarioInstance is one execution of a workflow as reported by monitoring.
type ScenarioInstance struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	StartDate    string    `json:"startDate"`
	RunningTasks []TaskRef `json:"runningTasks"`
	ErrorTasks   []TaskRef `json:"errorTasks"`
}

// TaskRef is a task of a scenario instance.
type TaskRef struct {
	Description string `json:"description"`
}

// RunningTaskNames returns the distinct running task descriptions in order.
func (s ScenarioInstance) RunningTaskNames() []string {
	return taskNames(s.RunningTasks)
}

// ErrorTaskNames returns the distinct failed task descriptions in order.
func (s ScenarioInstance) ErrorTaskNames() []string {
	return taskNames(s.ErrorTasks)
}

// HasErrors reports whether a finished instance ended with failed tasks.
func (s ScenarioInstance) HasErrors() bool {
	return len(s.ErrorTasks) > 0
}

func taskNames(tasks []TaskRef) []string {
	seen := make(map[string]struct{}, len(tasks))
	names := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := seen[t.Description]; ok {
			continue
		}
		seen[t.Description] = struct{}{}
		names = append(names, t.Description)
	}
	return names
}

// Task status values posted to the task-status service.
const (
	TaskStatusCompleted = "Completed"
	TaskStatusError     = "Error"
	ErrorLevelFatal     = "Fatal"
)

// TaskStatusUpdate is the body of POST /api/task-statuses.
type TaskStatusUpdate struct {
	TaskInstanceID string `json:"taskInstanceId"`
	Status         string `json:"status"`
	ErrorLevel     string `json:"errorLevel,omitempty"`
}

// EventTypeText marks a feed message carrying spoken text fragments.
const EventTypeText = "text"

// CorrelationAttribute is the attribute holding the conversation id on both
// outgoing user requests and incoming feed messages.
const CorrelationAttribute = "alexa_sessionId"

// InboundEvent is a backend-origin message read from the bot response feed.
type InboundEvent struct {
	Type       string         `json:"type"`
	TextData   []string       `json:"text_data,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Attribute returns a string attribute, or "" when absent or not a scalar.
func (e InboundEvent) Attribute(name string) string {
	v, ok := e.Attributes[name]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64, bool:
		return fmt.Sprint(val)
	default:
		return ""
	}
}

// Text joins the text fragments with single spaces.
func (e InboundEvent) Text() string {
	return strings.TrimSpace(strings.Join(e.TextData, " "))
}

// FeedBatch is the body returned by the bot response feed.
type FeedBatch struct {
	Messages []InboundEvent `json:"messages"`
}

// Request events sent alongside (or instead of) an intent.
const (
	RequestEventStart = "START"
	RequestEventStop  = "STOP"
)

// UserRequest is a user turn relayed to the bot messaging endpoint.
type UserRequest struct {
	Stream     string            `json:"stream,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	Language   string            `json:"language,omitempty"`
	Attributes map[string]string `json:"attributes"`
	Event      string            `json:"event,omitempty"`
	Intent     *RequestIntent    `json:"intent,omitempty"`
}

// RequestIntent names the intent of a relayed user request.
type RequestIntent struct {
	Name     string          `json:"name"`
	Entities []RequestEntity `json:"entities"`
}

// RequestEntity is one slot value of a relayed intent.
type RequestEntity struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
