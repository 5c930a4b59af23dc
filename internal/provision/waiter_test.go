package provision

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
	"github.com/soyeahso/mcp-digitalocean/internal/hooks"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
)

// step is one scripted GetDroplet response.
type step struct {
	status string
	err    error
	empty  bool // return neither a state nor an error
}

// scriptedGetter replays steps in order; the last one repeats.
type scriptedGetter struct {
	mu     sync.Mutex
	steps  []step
	calls  int
	onCall func(n int)
}

func (g *scriptedGetter) GetDroplet(_ context.Context, id int) (*domain.DropletState, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	s := g.steps[min(n, len(g.steps))-1]
	onCall := g.onCall
	g.mu.Unlock()

	if onCall != nil {
		onCall(n)
	}
	if s.err != nil || s.empty {
		return nil, s.err
	}
	return &domain.DropletState{ID: id, Name: "t1", Status: s.status}, nil
}

func (g *scriptedGetter) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func statuses(ss ...string) []step {
	out := make([]step, len(ss))
	for i, s := range ss {
		out[i] = step{status: s}
	}
	return out
}

func created() *domain.DropletState {
	return &domain.DropletState{ID: 42, Name: "t1", Status: domain.StatusNew}
}

func fastConfig() Config {
	return Config{Interval: time.Millisecond, Deadline: 5 * time.Second}
}

func TestWaitActiveAfterNewObservations(t *testing.T) {
	for _, n := range []int{0, 1, 3, 7} {
		g := &scriptedGetter{steps: statuses(repeat("new", n, "active")...)}
		w := New(g, fastConfig())

		out, err := w.Wait(context.Background(), created())
		require.NoError(t, err)
		assert.Equal(t, StateActive, out.State)
		assert.Equal(t, n+1, out.Observations)
		assert.Equal(t, n+1, g.Calls())
		assert.Equal(t, "active", out.Droplet.Status)
		assert.Zero(t, out.PollErrors)
	}
}

func TestWaitTimesOutOnDeadline(t *testing.T) {
	g := &scriptedGetter{steps: statuses("new")}
	w := New(g, Config{Interval: 100 * time.Millisecond, Deadline: time.Second})

	start := time.Now()
	out, err := w.Wait(context.Background(), created())
	took := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvisioningTimedOut)
	assert.Equal(t, StateTimedOut, out.State)
	assert.GreaterOrEqual(t, took, time.Second)
	assert.Less(t, took, 1200*time.Millisecond)
	assert.GreaterOrEqual(t, out.Elapsed, time.Second)
	assert.Equal(t, "new", out.Droplet.Status, "last observed state is returned")
	assert.GreaterOrEqual(t, out.Observations, 5)
}

func TestWaitClipsFinalSleepToDeadline(t *testing.T) {
	g := &scriptedGetter{steps: statuses("new")}
	w := New(g, Config{Interval: 200 * time.Millisecond, Deadline: 250 * time.Millisecond})

	start := time.Now()
	out, err := w.Wait(context.Background(), created())
	took := time.Since(start)

	assert.ErrorIs(t, err, domain.ErrProvisioningTimedOut)
	assert.Equal(t, 3, out.Observations, "polls at 0, interval, and the deadline")
	assert.GreaterOrEqual(t, took, 250*time.Millisecond)
	assert.Less(t, took, 400*time.Millisecond)
}

func TestWaitPollErrorIsNotFatal(t *testing.T) {
	transport := errors.New("connection reset by peer")
	g := &scriptedGetter{steps: []step{
		{status: "new"},
		{err: &domain.Error{Kind: domain.KindUpstream, Op: "get droplet", Err: transport}},
		{status: "new"},
		{status: "new"},
		{status: "active"},
	}}
	w := New(g, fastConfig())

	out, err := w.Wait(context.Background(), created())
	require.NoError(t, err)
	assert.Equal(t, StateActive, out.State)
	assert.Equal(t, 5, g.Calls())
	assert.Equal(t, 4, out.Observations)
	assert.Equal(t, 1, out.PollErrors)
	assert.ErrorIs(t, out.LastError, transport)
}

func TestWaitEmptyPollIsPollError(t *testing.T) {
	g := &scriptedGetter{steps: []step{
		{status: "new"},
		{empty: true},
		{status: "active"},
	}}
	w := New(g, fastConfig())

	out, err := w.Wait(context.Background(), created())
	require.NoError(t, err)
	assert.Equal(t, StateActive, out.State)
	assert.Equal(t, 3, g.Calls())
	assert.Equal(t, 2, out.Observations)
	assert.Equal(t, 1, out.PollErrors)
	assert.ErrorIs(t, out.LastError, domain.ErrUpstream)
	assert.Equal(t, "active", out.Droplet.Status)
}

func TestWaitFailureStatus(t *testing.T) {
	g := &scriptedGetter{steps: statuses("new", "error")}
	w := New(g, fastConfig())

	out, err := w.Wait(context.Background(), created())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvisioningFailed)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, 2, out.Observations)
	assert.Contains(t, out.Reason, `"error"`)
	assert.True(t, out.State.Terminal())
}

func TestWaitCustomFailureStatuses(t *testing.T) {
	g := &scriptedGetter{steps: statuses("new", "error", "active")}
	w := New(g, Config{Interval: time.Millisecond, Deadline: time.Second, FailureStatuses: []string{}})

	out, err := w.Wait(context.Background(), created())
	require.NoError(t, err)
	assert.Equal(t, StateActive, out.State)
	assert.Equal(t, 3, out.Observations)
}

func TestWaitMockClockTimeout(t *testing.T) {
	mock := clock.NewMock()
	g := &scriptedGetter{
		steps:  statuses("new"),
		onCall: func(int) { mock.Add(400 * time.Second) },
	}
	w := New(g, Config{}, WithClock(mock))

	out, err := w.Wait(context.Background(), created())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvisioningTimedOut)
	assert.Equal(t, StateTimedOut, out.State)
	assert.Equal(t, 400*time.Second, out.Elapsed)
	assert.Equal(t, 1, g.Calls())
	assert.Contains(t, err.Error(), `last status "new"`)
}

func TestWaitMockClockAllPollsFailing(t *testing.T) {
	mock := clock.NewMock()
	cause := &domain.Error{Kind: domain.KindRateLimited, StatusCode: 429}
	g := &scriptedGetter{
		steps:  []step{{err: cause}},
		onCall: func(int) { mock.Add(time.Hour) },
	}
	w := New(g, Config{}, WithClock(mock))

	out, err := w.Wait(context.Background(), created())
	assert.ErrorIs(t, err, domain.ErrProvisioningTimedOut)
	assert.Equal(t, domain.KindProvisioningTimedOut, domain.KindOf(err))
	assert.Equal(t, 0, out.Observations)
	assert.Equal(t, 1, out.PollErrors)
	assert.Equal(t, domain.StatusNew, out.Droplet.Status, "falls back to the create result")
}

func TestWaitCancelDuringSleep(t *testing.T) {
	g := &scriptedGetter{steps: statuses("new")}
	w := New(g, Config{Interval: time.Hour, Deadline: 2 * time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	out, err := w.Wait(ctx, created())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatePolling, out.State)
	assert.False(t, out.State.Terminal())
	assert.Equal(t, 1, g.Calls())
}

func TestWaitAlreadyCanceled(t *testing.T) {
	g := &scriptedGetter{steps: statuses("active")}
	w := New(g, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Wait(ctx, created())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, g.Calls())
}

func TestWaitRequiresCreatedDroplet(t *testing.T) {
	w := New(&scriptedGetter{steps: statuses("active")}, fastConfig())

	_, err := w.Wait(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = w.Wait(context.Background(), &domain.DropletState{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWaitEmitsHooks(t *testing.T) {
	m := hooks.NewManager(logging.New(nil, "silent"))
	var mu sync.Mutex
	seen := map[string]int{}
	record := func(_ context.Context, p hooks.Payload) error {
		mu.Lock()
		defer mu.Unlock()
		seen[p.Event]++
		assert.Equal(t, 42, p.Data["droplet_id"])
		return nil
	}
	for _, ev := range []string{hooks.EventPollObserved, hooks.EventPollFailed, hooks.EventProvisionActive} {
		m.On(ev, "test", record)
	}

	g := &scriptedGetter{steps: []step{{status: "new"}, {err: errors.New("boom")}, {status: "active"}}}
	w := New(g, fastConfig(), WithHooks(m), WithLogger(logging.New(nil, "silent")))

	_, err := w.Wait(context.Background(), created())
	require.NoError(t, err)
	assert.Equal(t, 2, seen[hooks.EventPollObserved])
	assert.Equal(t, 1, seen[hooks.EventPollFailed])
	assert.Equal(t, 1, seen[hooks.EventProvisionActive])
}

func TestConfigDefaults(t *testing.T) {
	w := New(&scriptedGetter{}, Config{})
	cfg := w.Config()
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 300*time.Second, cfg.Deadline)
	assert.Equal(t, "active", cfg.ActiveStatus)
	assert.Equal(t, []string{"error"}, cfg.FailureStatuses)
}

func TestOutcomeJSON(t *testing.T) {
	out := Outcome{
		State:        StateTimedOut,
		Droplet:      &domain.DropletState{ID: 1, Name: "a", Status: "new"},
		Elapsed:      1500 * time.Millisecond,
		Observations: 3,
		PollErrors:   1,
		Reason:       "not active after 1s",
		LastError:    errors.New("boom"),
	}
	data, err := json.Marshal(out)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "timed_out", got["state"])
	assert.InDelta(t, 1.5, got["elapsed_seconds"], 0.0001)
	assert.Equal(t, "boom", got["last_error"])
	assert.Equal(t, float64(3), got["observations"])
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StateRequested.Terminal())
	assert.False(t, StatePolling.Terminal())
	assert.True(t, StateActive.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateTimedOut.Terminal())
}

// repeat returns n copies of s followed by last.
func repeat(s string, n int, last string) []string {
	out := make([]string, 0, n+1)
	for range n {
		out = append(out, s)
	}
	return append(out, last)
}
