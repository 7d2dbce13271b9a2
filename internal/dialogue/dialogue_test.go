package dialogue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/koorda/internal/bridge"
	"github.com/dyluth/koorda/internal/testutil"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/dyluth/koorda/pkg/snapshot"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testInstance = "test"
	conv         = "amzn1.echo-api.session.42"
)

// fixedNow is noon UTC; every fixture timestamp is spoken in UTC.
var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type fixture struct {
	fake  *testutil.FakeKoordinator
	mr    *miniredis.Miniredis
	store *snapshot.RedisStore
	d     *Dialogue
}

func newFixture(t *testing.T, configure ...func(*Config)) *fixture {
	t.Helper()

	fake := testutil.NewFakeKoordinator(t)
	mr := miniredis.RunT(t)
	store, err := snapshot.NewRedisStore(&redis.Options{Addr: mr.Addr()}, testInstance, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := Config{
		Backend:   fake.Client(t),
		Store:     store,
		Namespace: testutil.Namespace,
		Location:  time.UTC,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return fixedNow },
	}
	for _, c := range configure {
		c(&cfg)
	}

	d, err := New(cfg)
	require.NoError(t, err)
	return &fixture{fake: fake, mr: mr, store: store, d: d}
}

func (f *fixture) exists(t *testing.T, stage snapshot.Stage) bool {
	t.Helper()
	ok, err := f.store.Exists(context.Background(), conv, stage)
	require.NoError(t, err)
	return ok
}

func notification(id, workflow, task, user, created string) koordinator.Notification {
	return koordinator.Notification{
		ID:                 id,
		WorkflowInstanceID: "wi-" + id,
		CreationDate:       created,
		UserName:           user,
		InputData: koordinator.NotificationInput{
			ScenarioInstanceName: workflow,
			TaskName:             task,
		},
	}
}

func TestNew_Validation(t *testing.T) {
	fake := testutil.NewFakeKoordinator(t)
	store, err := snapshot.NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = New(Config{Store: store})
	assert.ErrorContains(t, err, "backend")

	_, err = New(Config{Backend: fake.Client(t)})
	assert.ErrorContains(t, err, "store")

	_, err = New(Config{Backend: fake.Client(t), Store: store, AwaitLaunchConfirmation: true})
	assert.ErrorContains(t, err, "bridge")

	d, err := New(Config{Backend: fake.Client(t), Store: store})
	require.NoError(t, err)
	assert.Equal(t, French, d.Phrases())
	assert.Equal(t, 7*time.Second, d.replyTimeout)
	assert.Equal(t, time.Local, d.loc)
}

func TestEndConversation_PurgesStages(t *testing.T) {
	f := newFixture(t)
	f.fake.SetNotifications(notification("n1", "Payroll", "Approve", "alice", "2026-10-16T09:30:00Z"))

	f.d.CheckNotifications(context.Background(), conv, "")
	require.True(t, f.exists(t, snapshot.StageByTask))

	require.NoError(t, f.d.EndConversation(context.Background(), conv))
	for _, stage := range snapshot.Stages {
		assert.False(t, f.exists(t, stage), stage)
	}
	assert.Equal(t, Start, f.d.State(context.Background(), conv))
}

func TestPhrasebook_List(t *testing.T) {
	tests := []struct {
		items []string
		want  string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a et b"},
		{[]string{"a", "b", "c"}, "a, b et c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, French.List(tt.items))
	}
}

func TestSentences(t *testing.T) {
	assert.Equal(t, "Un. Deux?", Sentences("Un.", "", "  ", "Deux?"))
	assert.Equal(t, "", Sentences())
}

// bridge-backed fixtures share this helper with launch tests.
func withBridge(b *bridge.Bridge, timeout time.Duration) func(*Config) {
	return func(c *Config) {
		c.Bridge = b
		c.ReplyTimeout = timeout
		c.AwaitLaunchConfirmation = true
	}
}
