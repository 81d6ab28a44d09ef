package phase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lunara/engine/internal/core/ecs"
	"github.com/lunara/engine/internal/world"
)

// recorder implements Callbacks and logs every invocation in order.
type recorder struct {
	m     *Machine
	calls []string

	// onUpdate/onExit/onEnter let individual tests inject behavior.
	onUpdate func(id ecs.EntityID, state string)
	onExit   func(id ecs.EntityID, state, next string)
	onEnter  func(id ecs.EntityID, state, previous string)
}

func (r *recorder) Enter(id ecs.EntityID, state, previous string) {
	r.calls = append(r.calls, fmt.Sprintf("enter:%s<-%s", state, previous))
	if r.onEnter != nil {
		r.onEnter(id, state, previous)
	}
}

func (r *recorder) Update(id ecs.EntityID, state string, timeIn, dt float64) {
	r.calls = append(r.calls, "update:"+state)
	if r.onUpdate != nil {
		r.onUpdate(id, state)
	}
}

func (r *recorder) Exit(id ecs.EntityID, state, next string) {
	r.calls = append(r.calls, fmt.Sprintf("exit:%s->%s", state, next))
	if r.onExit != nil {
		r.onExit(id, state, next)
	}
}

func newTestMachine(t *testing.T) (*Machine, *world.State, *recorder) {
	t.Helper()
	s := world.NewState()
	m := NewMachine(s, 8, zap.NewNop())
	r := &recorder{m: m}
	m.SetCallbacks(r)
	return m, s, r
}

func TestAttachRunsEnter(t *testing.T) {
	m, s, r := newTestMachine(t)
	id := s.Spawn(world.SpawnSpec{Group: "ball"})

	m.Attach(id, "idle")

	require.Equal(t, []string{"enter:idle<-"}, r.calls)
	p, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, "idle", p.Current)
	assert.Zero(t, p.TimeIn)
}

func TestTransitionExitBeforeEnter(t *testing.T) {
	m, s, r := newTestMachine(t)
	id := s.Spawn(world.SpawnSpec{Group: "ball"})
	m.Attach(id, "idle")
	r.calls = nil

	m.Request(id, "moving")
	m.Step(0.016)

	assert.Equal(t, []string{"update:idle", "exit:idle->moving", "enter:moving<-idle"}, r.calls)
	p, _ := m.Get(id)
	assert.Equal(t, "moving", p.Current)
	assert.Equal(t, "idle", p.Previous)
}

func TestTimeInAccumulatesAndResets(t *testing.T) {
	m, s, _ := newTestMachine(t)
	id := s.Spawn(world.SpawnSpec{Group: "ball"})
	m.Attach(id, "idle")

	m.Step(0.010)
	m.Step(0.010)
	p, _ := m.Get(id)
	assert.InDelta(t, 0.020, p.TimeIn, 1e-12)

	m.Request(id, "moving")
	m.Step(0.010)
	p, _ = m.Get(id)
	assert.Zero(t, p.TimeIn) // reset on enter, this frame's dt not counted

	m.Step(0.010)
	p, _ = m.Get(id)
	assert.InDelta(t, 0.010, p.TimeIn, 1e-12)
}

func TestRequestLastWins(t *testing.T) {
	m, s, r := newTestMachine(t)
	id := s.Spawn(world.SpawnSpec{Group: "ball"})
	m.Attach(id, "idle")
	r.calls = nil

	m.Request(id, "moving")
	m.Request(id, "lost")
	m.Step(0.016)

	assert.Equal(t, []string{"update:idle", "exit:idle->lost", "enter:lost<-idle"}, r.calls)
}

func TestRequestDuringUpdateCommitsSameStep(t *testing.T) {
	m, s, r := newTestMachine(t)
	id := s.Spawn(world.SpawnSpec{Group: "ball"})
	m.Attach(id, "idle")
	r.calls = nil

	r.onUpdate = func(uid ecs.EntityID, state string) {
		if state == "idle" {
			m.Request(uid, "moving")
		}
	}
	m.Step(0.016)

	assert.Equal(t, []string{"update:idle", "exit:idle->moving", "enter:moving<-idle"}, r.calls)
	// the frame it was entered in does not tick its clock
	p, _ := m.Get(id)
	assert.Zero(t, p.TimeIn)
}

func TestChainFollowsEnterRequests(t *testing.T) {
	m, s, r := newTestMachine(t)
	id := s.Spawn(world.SpawnSpec{Group: "ball"})
	m.Attach(id, "a")
	r.calls = nil

	// entering b immediately requests c
	r.onEnter = func(uid ecs.EntityID, state, _ string) {
		if state == "b" {
			m.Request(uid, "c")
		}
	}
	m.Request(id, "b")
	m.Step(0.016)

	assert.Equal(t, []string{
		"update:a",
		"exit:a->b", "enter:b<-a",
		"exit:b->c", "enter:c<-b",
	}, r.calls)
	p, _ := m.Get(id)
	assert.Equal(t, "c", p.Current)
	assert.Equal(t, "b", p.Previous)
}

func TestChainCapBreaksAndWarns(t *testing.T) {
	s := world.NewState()
	core, logged := observer.New(zap.WarnLevel)
	m := NewMachine(s, 3, zap.New(core))
	r := &recorder{m: m}
	m.SetCallbacks(r)

	id := s.Spawn(world.SpawnSpec{Group: "ball"})
	m.Attach(id, "ping")

	// ping and pong each re-request the other forever
	r.onEnter = func(uid ecs.EntityID, state, _ string) {
		switch state {
		case "ping":
			m.Request(uid, "pong")
		case "pong":
			m.Request(uid, "ping")
		}
	}
	r.calls = nil
	m.Request(id, "pong")
	m.Step(0.016)

	// exactly chainCap transitions committed, then the pending request dropped
	enters := 0
	for _, c := range r.calls {
		if len(c) > 6 && c[:6] == "enter:" {
			enters++
		}
	}
	assert.Equal(t, 3, enters)

	p, _ := m.Get(id)
	assert.False(t, p.HasPending)
	require.Equal(t, 1, logged.Len())
	assert.Contains(t, logged.All()[0].Message, "chain cap")

	// the machine keeps working on later frames
	r.onEnter = nil
	m.Request(id, "idle")
	m.Step(0.016)
	p, _ = m.Get(id)
	assert.Equal(t, "idle", p.Current)
}

func TestOnTransitionHookFiresAfterEnter(t *testing.T) {
	m, s, r := newTestMachine(t)
	id := s.Spawn(world.SpawnSpec{Group: "ball"})
	m.Attach(id, "idle")

	var hooked []string
	m.OnTransition(func(_ ecs.EntityID, from, to string) {
		hooked = append(hooked, from+"->"+to)
		// the enter callback already ran when the hook fires
		assert.Equal(t, "enter:"+to+"<-"+from, r.calls[len(r.calls)-1])
	})

	m.Request(id, "moving")
	m.Step(0.016)
	assert.Equal(t, []string{"idle->moving"}, hooked)
}

func TestRequestForDeadOrUnattachedDropped(t *testing.T) {
	m, s, r := newTestMachine(t)

	bare := s.Spawn(world.SpawnSpec{Group: "wall"}) // never attached
	m.Request(bare, "moving")

	id := s.Spawn(world.SpawnSpec{Group: "ball"})
	m.Attach(id, "idle")
	s.Despawn(id)
	m.Request(id, "moving")

	r.calls = nil
	m.Step(0.016)
	assert.Empty(t, r.calls) // dead entity skipped entirely
}

func TestExitDespawnAbortsEnter(t *testing.T) {
	m, s, r := newTestMachine(t)
	id := s.Spawn(world.SpawnSpec{Group: "ball"})
	m.Attach(id, "idle")
	r.calls = nil

	r.onExit = func(uid ecs.EntityID, _, _ string) {
		s.Despawn(uid)
	}
	m.Request(id, "moving")
	m.Step(0.016)

	assert.Equal(t, []string{"update:idle", "exit:idle->moving"}, r.calls)
}

func TestStepOrderIsDeterministic(t *testing.T) {
	m, s, r := newTestMachine(t)
	var ids []ecs.EntityID
	for i := 0; i < 5; i++ {
		id := s.Spawn(world.SpawnSpec{Group: "brick"})
		m.Attach(id, fmt.Sprintf("s%d", i))
		ids = append(ids, id)
	}
	r.calls = nil

	m.Step(0.016)
	want := []string{"update:s0", "update:s1", "update:s2", "update:s3", "update:s4"}
	assert.Equal(t, want, r.calls)
}
