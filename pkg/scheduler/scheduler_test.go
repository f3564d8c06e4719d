package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryan-h265/ironswarm/pkg/scenario"
	"github.com/ryan-h265/ironswarm/pkg/state"
)

type fakeNode struct {
	identity string
	count    int
	index    int
	ok       bool
}

func (f fakeNode) Identity() string   { return f.identity }
func (f fakeNode) Count() int         { return f.count }
func (f fakeNode) Index() (int, bool) { return f.index, f.ok }

type constantVolume struct{ v int }

func (c constantVolume) Target(int) (int, error)             { return c.v, nil }
func (c constantVolume) CumulativeVolume(start, end int) int { return c.v * (end - start + 1) }
func (c constantVolume) Interval() int                       { return 1 }

type errVolume struct{}

func (errVolume) Target(int) (int, error)       { return 0, assertErr }
func (errVolume) CumulativeVolume(int, int) int { return 0 }
func (errVolume) Interval() int                 { return 1 }

type assertError string

func (e assertError) Error() string { return string(e) }

var assertErr = assertError("journey complete")

func TestScheduler_PollOnceStartsNewlyRegisteredScenario(t *testing.T) {
	node := fakeNode{identity: "n1", count: 1, index: 0, ok: true}
	store := state.New()
	store.RegisterScenario("scenarios:checkout", 0, 0)

	registry := ScenarioRegistry{
		"scenarios:checkout": {
			Name:     "checkout",
			Interval: 1,
			Journeys: []scenario.Journey{
				{Spec: "journeys:buy", VolumeModel: constantVolume{v: 1}},
			},
		},
	}

	s := New(node, store, registry, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.pollOnce(ctx)

	assert.ElementsMatch(t, []string{"scenarios:checkout"}, s.ActiveScenarios())
}

func TestScheduler_PollOnceDoesNotRestartAlreadyRunningScenario(t *testing.T) {
	node := fakeNode{identity: "n1", count: 1, index: 0, ok: true}
	store := state.New()
	store.RegisterScenario("scenarios:checkout", 0, 0)

	registry := ScenarioRegistry{
		"scenarios:checkout": {
			Interval: 1,
			Journeys: []scenario.Journey{
				{Spec: "journeys:buy", VolumeModel: constantVolume{v: 1}},
			},
		},
	}

	s := New(node, store, registry, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.pollOnce(ctx)
	firstMgr := s.managers["scenarios:checkout"]
	require.NotNil(t, firstMgr)

	s.pollOnce(ctx)
	assert.Same(t, firstMgr, s.managers["scenarios:checkout"])
}

func TestScheduler_UnregisteredSpecIsSkipped(t *testing.T) {
	node := fakeNode{identity: "n1", count: 1, index: 0, ok: true}
	store := state.New()
	store.RegisterScenario("scenarios:unknown", 0, 0)

	s := New(node, store, ScenarioRegistry{}, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.pollOnce(ctx)
	assert.Empty(t, s.ActiveScenarios())
}

func TestScheduler_PruneCompletedRemovesFinishedManager(t *testing.T) {
	node := fakeNode{identity: "n1", count: 1, index: 0, ok: true}
	store := state.New()
	store.RegisterScenario("scenarios:checkout", 0, 0)

	registry := ScenarioRegistry{
		"scenarios:checkout": {
			Interval: 1,
			Journeys: []scenario.Journey{
				{Spec: "journeys:buy", VolumeModel: errVolume{}},
			},
		},
	}

	s := New(node, store, registry, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.pollOnce(ctx)
	require.Contains(t, s.managers, "scenarios:checkout")

	mgr := s.managers["scenarios:checkout"]
	mgr.Resolve(ctx)
	require.False(t, mgr.Running())

	s.pruneCompleted()
	assert.Empty(t, s.ActiveScenarios())
}

func TestScheduler_ShutdownCancelsAndWaitsForAllManagers(t *testing.T) {
	node := fakeNode{identity: "n1", count: 1, index: 0, ok: true}
	store := state.New()
	store.RegisterScenario("scenarios:checkout", 0, 0)

	registry := ScenarioRegistry{
		"scenarios:checkout": {
			Interval:          1,
			JourneySeparation: 1,
			Journeys: []scenario.Journey{
				{Spec: "journeys:buy", VolumeModel: constantVolume{v: 0}},
			},
		},
	}

	s := New(node, store, registry, nil, nil, nil)
	ctx := context.Background()

	s.pollOnce(ctx)
	require.NotEmpty(t, s.ActiveScenarios())

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return in time")
	}
}
