package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ServiceStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e ServiceStateChangedEvent) {
		received <- e
	})
	defer unsub()

	ev := ServiceStateChangedEvent{
		Service:   "upsd",
		State:     "running",
		PID:       4321,
		Timestamp: "2025-08-25T10:30:00Z",
	}
	bus.Publish(ev)

	got := <-received
	if got.Service != ev.Service {
		t.Errorf("Expected service %s, got %s", ev.Service, got.Service)
	}
	if got.PID != ev.PID {
		t.Errorf("Expected pid %d, got %d", ev.PID, got.PID)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan UPSStatusEvent, 1)
	received2 := make(chan UPSStatusEvent, 1)

	unsub1 := bus.Subscribe(func(e UPSStatusEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e UPSStatusEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(UPSStatusEvent{UPS: "ups", Host: "localhost", Reachable: true})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CoordinatedRestartEvent, 1)

	unsub := bus.Subscribe(func(e CoordinatedRestartEvent) {
		received <- e
	})

	bus.Publish(CoordinatedRestartEvent{Reason: "ups communication lost"})
	<-received

	unsub()

	bus.Publish(CoordinatedRestartEvent{Reason: "sighup"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	stateReceived := make(chan bool, 1)
	upsReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ ServiceStateChangedEvent) {
		stateReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ UPSStatusEvent) {
		upsReceived <- true
	})
	defer unsub2()

	bus.Publish(ServiceStateChangedEvent{Service: "upsmon", State: "starting"})
	<-stateReceived

	select {
	case <-upsReceived:
		t.Fatal("UPS subscriber should NOT have received ServiceStateChangedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}

	bus.Publish(UPSStatusEvent{UPS: "ups", Reachable: false})
	<-upsReceived

	select {
	case <-stateReceived:
		t.Fatal("State subscriber should NOT have received UPSStatusEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ ServiceStateChangedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(ServiceStateChangedEvent{
					Service:   "dashboard",
					State:     "running",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[LogEntryEvent](bus, ch)
	defer unsub()

	ev := LogEntryEvent{
		Seq:     1,
		Level:   "info",
		Module:  "health",
		Message: "tick",
	}
	bus.Publish(ev)

	received := <-ch
	logEvent, ok := received.(LogEntryEvent)
	if !ok {
		t.Fatalf("Expected LogEntryEvent, got %T", received)
	}
	if logEvent.Module != ev.Module {
		t.Errorf("Expected module %s, got %s", ev.Module, logEvent.Module)
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any) // No buffer

	unsub := SubscribeToChannel[UPSStatusEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(UPSStatusEvent{UPS: "ups"})
		done <- true
	}()

	<-done // Should complete without blocking
}
