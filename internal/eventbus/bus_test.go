package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ims/internal/domain"
	"ims/internal/store"
)

func TestSubscribe_DeliversInitialFrame(t *testing.T) {
	bus := New()
	l := bus.Subscribe()
	defer bus.Unsubscribe(l)

	frame := <-l.C
	assert.Equal(t, ClassInitial, frame.Class)
	assert.Equal(t, int64(0), frame.ID)
}

func TestPublish_FanOutToAllListeners(t *testing.T) {
	bus := New()
	l1 := bus.Subscribe()
	l2 := bus.Subscribe()
	<-l1.C
	<-l2.C

	n := domain.IncidentNumber(1)
	bus.Publish(store.WriteEvent{Class: store.WriteClassIncident, Event: "2024", IncidentNumber: &n})

	f1 := <-l1.C
	f2 := <-l2.C
	require.Equal(t, f1.ID, f2.ID)
	assert.Equal(t, FrameClass(store.WriteClassIncident), f1.Class)
	data, ok := f1.Data.(IncidentData)
	require.True(t, ok)
	assert.Equal(t, domain.EventID("2024"), data.EventID)
	assert.Equal(t, n, data.IncidentNumber)
}

func TestPublish_MonotonicIDs(t *testing.T) {
	bus := New()
	l := bus.Subscribe()
	<-l.C

	n := domain.IncidentNumber(1)
	bus.Publish(store.WriteEvent{Class: store.WriteClassIncident, Event: "2024", IncidentNumber: &n})
	bus.Publish(store.WriteEvent{Class: store.WriteClassIncident, Event: "2024", IncidentNumber: &n})

	first := <-l.C
	second := <-l.C
	assert.Greater(t, second.ID, first.ID)
}

func TestPublish_IgnoresUnrelatedWriteClasses(t *testing.T) {
	bus := New()
	l := bus.Subscribe()
	<-l.C

	bus.Publish(store.WriteEvent{Class: store.WriteClassAccess, Event: "2024"})

	select {
	case f := <-l.C:
		t.Fatalf("expected no frame for an access write, got %+v", f)
	default:
	}
}

func TestUnsubscribe_RemovesListener(t *testing.T) {
	bus := New()
	l := bus.Subscribe()
	<-l.C
	bus.Unsubscribe(l)
	assert.Equal(t, 0, bus.ListenerCount())

	n := domain.IncidentNumber(1)
	bus.Publish(store.WriteEvent{Class: store.WriteClassIncident, Event: "2024", IncidentNumber: &n})
	select {
	case f := <-l.C:
		t.Fatalf("unsubscribed listener should not receive frames, got %+v", f)
	default:
	}
}

func TestPublish_SlowListenerDropsRatherThanBlocks(t *testing.T) {
	bus := New()
	l := bus.Subscribe()
	<-l.C // drain initial frame; channel now empty, capacity 1

	n := domain.IncidentNumber(1)
	// Fill the single buffer slot, then publish again without draining.
	bus.Publish(store.WriteEvent{Class: store.WriteClassIncident, Event: "2024", IncidentNumber: &n})
	bus.Publish(store.WriteEvent{Class: store.WriteClassIncident, Event: "2024", IncidentNumber: &n})

	assert.Equal(t, 0, bus.ListenerCount(), "listener should be dropped after missing a send")
}
