package eventbus

import (
	"context"
	"testing"
	"time"
)

func waitFor(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	defer b.Close(context.Background())

	got := make(chan Event, 1)
	b.Subscribe(EventTypeStoreUpdate, func(e Event) { got <- e })

	b.Publish(Event{
		Type: EventTypeStoreUpdate,
		Data: map[string]any{"namespace": "NEWS", "collection": "BBC"},
	})

	e := waitFor(t, got)
	if e.Data["namespace"] != "NEWS" {
		t.Errorf("namespace = %v, want NEWS", e.Data["namespace"])
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	defer b.Close(context.Background())

	got := make(chan Event, 8)
	unsubscribe := b.Subscribe(EventTypeStoreUpdate, func(e Event) { got <- e })

	b.Publish(Event{Type: EventTypeStoreUpdate})
	waitFor(t, got)

	unsubscribe()
	unsubscribe() // idempotent

	b.Publish(Event{Type: EventTypeStoreUpdate})
	select {
	case <-got:
		t.Error("received event after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMultipleSubscribersAllReceive(t *testing.T) {
	b := New()
	defer b.Close(context.Background())

	first := make(chan Event, 1)
	second := make(chan Event, 1)
	b.Subscribe(EventTypeStoreUpdate, func(e Event) { first <- e })
	b.Subscribe(EventTypeStoreUpdate, func(e Event) { second <- e })

	b.Publish(Event{Type: EventTypeStoreUpdate})
	waitFor(t, first)
	waitFor(t, second)
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	b := New()

	got := make(chan Event, 1)
	b.Subscribe(EventTypeStoreUpdate, func(e Event) { got <- e })
	b.Close(context.Background())

	b.Publish(Event{Type: EventTypeStoreUpdate})
	select {
	case <-got:
		t.Error("received event after close")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandlerPanicDoesNotKillWorkers(t *testing.T) {
	b := New()
	defer b.Close(context.Background())

	got := make(chan Event, 1)
	b.Subscribe(EventTypeStoreUpdate, func(Event) { panic("boom") })
	b.Subscribe(EventTypeStoreUpdate, func(e Event) { got <- e })

	b.Publish(Event{Type: EventTypeStoreUpdate})
	waitFor(t, got)

	// Workers must still be alive for the next event.
	b.Publish(Event{Type: EventTypeStoreUpdate})
	waitFor(t, got)
}
