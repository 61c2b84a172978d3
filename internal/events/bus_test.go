package events

import (
	"testing"
	"time"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventBookingConfirmed)

	bus.Publish(EventBookingConfirmed, Payload{"assignment_id": "a-1"})

	select {
	case payload := <-sub:
		if payload["assignment_id"] != "a-1" {
			t.Fatalf("payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBusIsolatesEventTypes(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventBookingConfirmed)

	bus.Publish(EventRecommendationReady, Payload{"job_id": "j-1"})

	select {
	case payload := <-sub:
		t.Fatalf("unexpected delivery: %v", payload)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventWeightsUpdated)

	bus.Unsubscribe(EventWeightsUpdated, sub)

	if _, ok := <-sub; ok {
		t.Fatal("channel not closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventWeightsUpdated, Payload{"version": "v2"})
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventDistanceDegraded)

	// Buffer is 8; the extras must be dropped without blocking.
	for i := 0; i < 20; i++ {
		bus.Publish(EventDistanceDegraded, Payload{"n": i})
	}

	received := 0
	for {
		select {
		case <-sub:
			received++
		default:
			if received == 0 || received > 8 {
				t.Fatalf("received %d events, want 1..8", received)
			}
			return
		}
	}
}
