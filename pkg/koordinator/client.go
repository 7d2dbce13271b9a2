package koordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable is wrapped by every error caused by the backend being
// unreachable or answering with an unexpected status.
var ErrUnavailable = errors.New("koordinator unavailable")

// MaxSuccessStatus is the highest HTTP status the Koordinator services use for
// an accepted write (start, task status update).
const MaxSuccessStatus = 205

// APIError reports a response whose status is outside the accepted range.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Unwrap lets callers match any APIError with errors.Is(err, ErrUnavailable).
func (e *APIError) Unwrap() error {
	return ErrUnavailable
}

// Endpoints holds the base URL of each Koordinator service.
type Endpoints struct {
	Polling    string
	Workflows  string
	Monitoring string
	TaskStatus string
	Bot        string
}

// Options configures a Client.
type Options struct {
	Endpoints Endpoints
	Workspace string
	Namespace string
	// FeedLimit bounds how many messages one feed poll asks for. Zero leaves
	// the batch size to the server.
	FeedLimit int
	Timeout   time.Duration
}

// Client talks to the Koordinator REST services. It is safe for concurrent use.
type Client struct {
	opts Options
	http *http.Client
}

// NewClient creates a client. httpClient may be nil, in which case a client
// with opts.Timeout (default 10s) is used.
func NewClient(opts Options, httpClient *http.Client) (*Client, error) {
	if opts.Workspace == "" {
		return nil, fmt.Errorf("workspace cannot be empty")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	opts.Endpoints = Endpoints{
		Polling:    strings.TrimRight(opts.Endpoints.Polling, "/"),
		Workflows:  strings.TrimRight(opts.Endpoints.Workflows, "/"),
		Monitoring: strings.TrimRight(opts.Endpoints.Monitoring, "/"),
		TaskStatus: strings.TrimRight(opts.Endpoints.TaskStatus, "/"),
		Bot:        strings.TrimRight(opts.Endpoints.Bot, "/"),
	}

	return &Client{opts: opts, http: httpClient}, nil
}

// Namespace returns the catalog namespace manual tasks are read from.
func (c *Client) Namespace() string {
	return c.opts.Namespace
}

// PendingNotifications lists the manual task instances of a namespace.
func (c *Client) PendingNotifications(ctx context.Context, namespace string) ([]Notification, error) {
	if namespace == "" {
		namespace = c.opts.Namespace
	}
	q := url.Values{}
	q.Set("catalogTaskDefinitionNamespace", namespace)
	q.Set("workspaces", c.opts.Workspace)
	endpoint := fmt.Sprintf("%s/api/namespaces/%s/task-instances?%s",
		c.opts.Endpoints.Polling, url.PathEscape(namespace), q.Encode())

	var notifications []Notification
	if err := c.getJSON(ctx, endpoint, &notifications); err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return notifications, nil
}

// WorkflowDefinitions lists the latest version of each workflow definition.
func (c *Client) WorkflowDefinitions(ctx context.Context) ([]WorkflowDefinition, error) {
	q := url.Values{}
	q.Set("workspaceName", c.opts.Workspace)
	q.Set("returnAllWorkflowDefinitionVersions", "false")
	endpoint := fmt.Sprintf("%s/api/scenario-definitions?%s", c.opts.Endpoints.Workflows, q.Encode())

	var defs []WorkflowDefinition
	if err := c.getJSON(ctx, endpoint, &defs); err != nil {
		return nil, fmt.Errorf("failed to fetch workflow definitions: %w", err)
	}
	return defs, nil
}

// StartWorkflow starts a definition version and returns the HTTP status.
// A status above MaxSuccessStatus is returned together with an *APIError.
func (c *Client) StartWorkflow(ctx context.Context, id string, version int) (int, error) {
	endpoint := fmt.Sprintf("%s/api/scenario-definitions/%s/versions/%d/start",
		c.opts.Endpoints.Workflows, url.PathEscape(id), version)

	status, err := c.post(ctx, endpoint, nil)
	if err != nil {
		return status, fmt.Errorf("failed to start workflow %s v%d: %w", id, version, err)
	}
	return status, nil
}

// ScenarioInstances lists instances of a workflow in the given status.
func (c *Client) ScenarioInstances(ctx context.Context, workflowName, status string) ([]ScenarioInstance, error) {
	q := url.Values{}
	q.Set("workspaceName", c.opts.Workspace)
	q.Set("workflowInstanceName", workflowName)
	q.Set("workflowInstanceStatus", status)
	endpoint := fmt.Sprintf("%s/api/scenario-instances?%s", c.opts.Endpoints.Monitoring, q.Encode())

	var instances []ScenarioInstance
	if err := c.getJSON(ctx, endpoint, &instances); err != nil {
		return nil, fmt.Errorf("failed to fetch %s instances of %s: %w", strings.ToLower(status), workflowName, err)
	}
	return instances, nil
}

// RunningAndFinished fetches both the running and the finished instances of a
// workflow.
func (c *Client) RunningAndFinished(ctx context.Context, workflowName string) (running, finished []ScenarioInstance, err error) {
	running, err = c.ScenarioInstances(ctx, workflowName, StatusRunning)
	if err != nil {
		return nil, nil, err
	}
	finished, err = c.ScenarioInstances(ctx, workflowName, StatusFinished)
	if err != nil {
		return nil, nil, err
	}
	return running, finished, nil
}

// CompleteTask validates a manual task.
func (c *Client) CompleteTask(ctx context.Context, taskInstanceID string) (bool, error) {
	return c.updateTaskStatus(ctx, TaskStatusUpdate{
		TaskInstanceID: taskInstanceID,
		Status:         TaskStatusCompleted,
	})
}

// CancelTask ends a manual task with a fatal error.
func (c *Client) CancelTask(ctx context.Context, taskInstanceID string) (bool, error) {
	return c.updateTaskStatus(ctx, TaskStatusUpdate{
		TaskInstanceID: taskInstanceID,
		Status:         TaskStatusError,
		ErrorLevel:     ErrorLevelFatal,
	})
}

func (c *Client) updateTaskStatus(ctx context.Context, update TaskStatusUpdate) (bool, error) {
	if update.TaskInstanceID == "" {
		return false, fmt.Errorf("task instance id cannot be empty")
	}
	endpoint := c.opts.Endpoints.TaskStatus + "/api/task-statuses"
	if _, err := c.post(ctx, endpoint, update); err != nil {
		return false, fmt.Errorf("failed to set task %s to %s: %w", update.TaskInstanceID, update.Status, err)
	}
	return true, nil
}

// PollEventFeed reads the next batch of messages from the bot response feed.
func (c *Client) PollEventFeed(ctx context.Context) ([]InboundEvent, error) {
	endpoint := c.opts.Endpoints.Bot + "/responses"
	if c.opts.FeedLimit > 0 {
		endpoint += "?limit=" + strconv.Itoa(c.opts.FeedLimit)
	}

	var batch FeedBatch
	if err := c.getJSON(ctx, endpoint, &batch); err != nil {
		return nil, fmt.Errorf("failed to poll event feed: %w", err)
	}
	return batch.Messages, nil
}

// SendUserRequest relays a user turn to the bot messaging endpoint.
func (c *Client) SendUserRequest(ctx context.Context, req UserRequest) error {
	if _, err := c.post(ctx, c.opts.Endpoints.Bot+"/messages", req); err != nil {
		return fmt.Errorf("failed to send user request: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return newAPIError(req, res)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response from %s: %v", ErrUnavailable, endpoint, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode > MaxSuccessStatus {
		return res.StatusCode, newAPIError(req, res)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return res.StatusCode, nil
}

func newAPIError(req *http.Request, res *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return &APIError{
		Method:     req.Method,
		URL:        req.URL.Path,
		StatusCode: res.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
