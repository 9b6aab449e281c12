package notify

import (
	"testing"
	"time"

	"github.com/dan-strohschein/pgwire-go/pgerrors"
)

func recvOrTimeout(t *testing.T, c <-chan pgerrors.Notification) (pgerrors.Notification, bool) {
	t.Helper()
	select {
	case n, ok := <-c:
		return n, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return pgerrors.Notification{}, false
	}
}

func TestPublishDeliversToMatchingSubscribers(t *testing.T) {
	b := New(4)
	sub := b.Subscribe("orders")
	other := b.Subscribe("shipments")

	b.Publish(pgerrors.Notification{PID: 1, Channel: "orders", Payload: "created"})

	n, ok := recvOrTimeout(t, sub.C)
	if !ok || n.Payload != "created" {
		t.Fatalf("expected delivery to matching subscriber, got %v ok=%v", n, ok)
	}

	select {
	case n := <-other.C:
		t.Fatalf("expected no delivery to non-matching subscriber, got %v", n)
	default:
	}
}

func TestWildcardSubscriptionMatchesEveryChannel(t *testing.T) {
	b := New(4)
	sub := b.Subscribe("")

	b.Publish(pgerrors.Notification{Channel: "a"})
	b.Publish(pgerrors.Notification{Channel: "b"})

	first, _ := recvOrTimeout(t, sub.C)
	second, _ := recvOrTimeout(t, sub.C)
	if first.Channel != "a" || second.Channel != "b" {
		t.Fatalf("expected both notifications delivered, got %v then %v", first, second)
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	b := New(1)
	sub := b.Subscribe("x")

	b.Publish(pgerrors.Notification{Channel: "x", Payload: "1"})
	b.Publish(pgerrors.Notification{Channel: "x", Payload: "2"})

	n, _ := recvOrTimeout(t, sub.C)
	if n.Payload != "1" {
		t.Fatalf("expected first notification to survive, got %q", n.Payload)
	}
	select {
	case n := <-sub.C:
		t.Fatalf("expected second notification to be dropped, got %v", n)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New(4)
	sub := b.Subscribe("x")
	sub.Unsubscribe()

	_, ok := <-sub.C
	if ok {
		t.Fatal("expected channel to be closed after Unsubscribe")
	}

	b.Publish(pgerrors.Notification{Channel: "x"})
}

func TestCloseClosesAllSubscriptions(t *testing.T) {
	b := New(4)
	sub1 := b.Subscribe("a")
	sub2 := b.Subscribe("b")
	b.Close()

	if _, ok := <-sub1.C; ok {
		t.Fatal("expected sub1 channel closed")
	}
	if _, ok := <-sub2.C; ok {
		t.Fatal("expected sub2 channel closed")
	}
}
