package event

import (
	"sync"
	"testing"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe("task.submitted", func(e Event) {
		got = append(got, e)
	})

	bus.Publish(NewTaskSubmittedEvent("t1", "implementer", "add feature"))
	bus.Publish(NewTaskCompletedEvent("t1", "implementer", 0)) // different type, not delivered

	if len(got) != 1 {
		t.Fatalf("handler received %d events, want 1", len(got))
	}
	sub, ok := got[0].(TaskSubmittedEvent)
	if !ok {
		t.Fatalf("event type = %T, want TaskSubmittedEvent", got[0])
	}
	if sub.TaskID != "t1" || sub.Actor != "implementer" {
		t.Errorf("event = %+v, want TaskID t1 / Actor implementer", sub)
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus()

	count := 0
	bus.SubscribeAll(func(Event) { count++ })

	bus.Publish(NewTaskSubmittedEvent("t1", "a", ""))
	bus.Publish(NewLockReservedEvent("a", []string{"f1"}))
	bus.Publish(NewLockReleasedEvent("a", []string{"f1"}))

	if count != 3 {
		t.Errorf("wildcard handler received %d events, want 3", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	id := bus.Subscribe("task.failed", func(Event) { count++ })

	bus.Publish(NewTaskFailedEvent("t1", "a", "boom"))

	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe() = false, want true")
	}
	bus.Publish(NewTaskFailedEvent("t2", "a", "boom"))

	if count != 1 {
		t.Errorf("handler received %d events after unsubscribe, want 1", count)
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe() of removed id = true, want false")
	}
}

func TestPublishRecoversFromHandlerPanic(t *testing.T) {
	bus := NewBus()

	bus.Subscribe("task.admitted", func(Event) { panic("bad handler") })

	delivered := false
	bus.Subscribe("task.admitted", func(Event) { delivered = true })

	bus.Publish(NewTaskAdmittedEvent("t1", "a", nil))

	if !delivered {
		t.Error("second handler not called after first handler panicked")
	}
}

func TestPublishConcurrent(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.Subscribe("lock.released", func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewLockReleasedEvent("a", nil))
		}()
	}
	wg.Wait()

	if count != 10 {
		t.Errorf("handler received %d events, want 10", count)
	}
}

func TestSubscriptionCount(t *testing.T) {
	bus := NewBus()

	bus.Subscribe("task.submitted", func(Event) {})
	bus.SubscribeAll(func(Event) {})

	if got := bus.SubscriptionCount(); got != 2 {
		t.Errorf("SubscriptionCount() = %d, want 2", got)
	}

	bus.Clear()
	if got := bus.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d, want 0", got)
	}
}
