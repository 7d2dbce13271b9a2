package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/stretchr/testify/require"
)

// Test defaults used by FakeKoordinator.Options.
const (
	Workspace = "BusinessAnalysts"
	Namespace = "POPUP_USER"
)

// FakeKoordinator is an in-process stand-in for all Koordinator services.
// Fields are guarded by the embedded mutex; use the setters from tests.
type FakeKoordinator struct {
	mu sync.Mutex

	Server *httptest.Server

	notifications []koordinator.Notification
	definitions   []koordinator.WorkflowDefinition
	instances     map[string][]koordinator.ScenarioInstance // key: name|status
	feed          []koordinator.InboundEvent

	// Status codes returned for writes. Zero means 200.
	startStatus int
	taskStatus  int
	failReads   bool
	failFeed    bool

	// OnUserRequest, when set, runs after a user request is recorded. Tests use
	// it to push a reply onto the feed.
	onUserRequest func(koordinator.UserRequest)

	TaskUpdates  []koordinator.TaskStatusUpdate
	Starts       []string // "id/version"
	UserRequests []koordinator.UserRequest
	FeedPolls    int
	lastQuery    map[string]string
}

// NewFakeKoordinator starts a fake server closed on test cleanup.
func NewFakeKoordinator(t *testing.T) *FakeKoordinator {
	t.Helper()

	f := &FakeKoordinator{
		instances: make(map[string][]koordinator.ScenarioInstance),
		lastQuery: make(map[string]string),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Options returns client options pointing every service at the fake.
func (f *FakeKoordinator) Options() koordinator.Options {
	return koordinator.Options{
		Endpoints: koordinator.Endpoints{
			Polling:    f.Server.URL + "/polling",
			Workflows:  f.Server.URL + "/workflows",
			Monitoring: f.Server.URL + "/monitoring",
			TaskStatus: f.Server.URL + "/taskstatus",
			Bot:        f.Server.URL + "/bot",
		},
		Workspace: Workspace,
		Namespace: Namespace,
		Timeout:   2 * time.Second,
	}
}

// Client builds a koordinator client against the fake.
func (f *FakeKoordinator) Client(t *testing.T) *koordinator.Client {
	t.Helper()
	c, err := koordinator.NewClient(f.Options(), f.Server.Client())
	require.NoError(t, err)
	return c
}

func (f *FakeKoordinator) SetNotifications(n ...koordinator.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = n
}

func (f *FakeKoordinator) SetDefinitions(d ...koordinator.WorkflowDefinition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.definitions = d
}

// SetInstances sets the instances returned for a workflow name and status.
func (f *FakeKoordinator) SetInstances(name, status string, instances ...koordinator.ScenarioInstance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances[name+"|"+status] = instances
}

// PushFeed queues messages returned by the next feed poll.
func (f *FakeKoordinator) PushFeed(events ...koordinator.InboundEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feed = append(f.feed, events...)
}

func (f *FakeKoordinator) SetStartStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startStatus = code
}

func (f *FakeKoordinator) SetTaskStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskStatus = code
}

// FailReads makes every GET except the feed answer 503.
func (f *FakeKoordinator) FailReads(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads = fail
}

// FailFeed makes feed polls answer 500.
func (f *FakeKoordinator) FailFeed(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFeed = fail
}

func (f *FakeKoordinator) OnUserRequest(fn func(koordinator.UserRequest)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUserRequest = fn
}

// Snapshot accessors for assertions.

func (f *FakeKoordinator) RecordedTaskUpdates() []koordinator.TaskStatusUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]koordinator.TaskStatusUpdate(nil), f.TaskUpdates...)
}

func (f *FakeKoordinator) RecordedStarts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Starts...)
}

func (f *FakeKoordinator) RecordedUserRequests() []koordinator.UserRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]koordinator.UserRequest(nil), f.UserRequests...)
}

func (f *FakeKoordinator) FeedPollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FeedPolls
}

// LastQuery returns the query string of the last request to a path prefix
// ("polling", "workflows", "monitoring", "bot").
func (f *FakeKoordinator) LastQuery(service string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery[service]
}

func (f *FakeKoordinator) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	service, rest, _ := strings.Cut(path, "/")

	f.mu.Lock()
	f.lastQuery[service] = r.URL.RawQuery
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && service == "polling" && strings.HasSuffix(rest, "/task-instances"):
		f.read(w, func() any { return f.notifications })

	case r.Method == http.MethodGet && service == "workflows" && rest == "api/scenario-definitions":
		f.read(w, func() any { return f.definitions })

	case r.Method == http.MethodPost && service == "workflows" && strings.HasSuffix(rest, "/start"):
		// api/scenario-definitions/{id}/versions/{v}/start
		parts := strings.Split(rest, "/")
		f.mu.Lock()
		if len(parts) == 6 {
			f.Starts = append(f.Starts, parts[2]+"/"+parts[4])
		}
		code := f.startStatus
		f.mu.Unlock()
		writeStatus(w, code)

	case r.Method == http.MethodGet && service == "monitoring" && rest == "api/scenario-instances":
		key := r.URL.Query().Get("workflowInstanceName") + "|" + r.URL.Query().Get("workflowInstanceStatus")
		f.read(w, func() any {
			if v := f.instances[key]; v != nil {
				return v
			}
			return []koordinator.ScenarioInstance{}
		})

	case r.Method == http.MethodPost && service == "taskstatus" && rest == "api/task-statuses":
		var update koordinator.TaskStatusUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.TaskUpdates = append(f.TaskUpdates, update)
		code := f.taskStatus
		f.mu.Unlock()
		writeStatus(w, code)

	case r.Method == http.MethodGet && service == "bot" && rest == "responses":
		f.mu.Lock()
		f.FeedPolls++
		if f.failFeed {
			f.mu.Unlock()
			http.Error(w, "feed down", http.StatusInternalServerError)
			return
		}
		batch := f.feed
		if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(batch) {
			batch = batch[:limit]
		}
		f.feed = f.feed[len(batch):]
		f.mu.Unlock()
		writeJSON(w, koordinator.FeedBatch{Messages: batch})

	case r.Method == http.MethodPost && service == "bot" && rest == "messages":
		var req koordinator.UserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.UserRequests = append(f.UserRequests, req)
		hook := f.onUserRequest
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		if hook != nil {
			hook(req)
		}

	default:
		http.NotFound(w, r)
	}
}

func (f *FakeKoordinator) read(w http.ResponseWriter, value func() any) {
	f.mu.Lock()
	if f.failReads {
		f.mu.Unlock()
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	v := value()
	f.mu.Unlock()
	writeJSON(w, v)
}

func writeStatus(w http.ResponseWriter, code int) {
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
