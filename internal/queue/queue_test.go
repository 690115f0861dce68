package queue

import (
	"testing"
	"time"

	"github.com/romanqed/msgloop/message"
)

func TestPushOrdersByWhenThenSeq(t *testing.T) {
	q := New()
	now := time.Now()
	a := &message.Message{What: 1}
	b := &message.Message{What: 2}
	q.Push(a, now)
	q.Push(b, now) // equal timestamps: a must still win (stable FIFO)

	first, ok := q.Next()
	if !ok || first.What != 1 {
		t.Fatalf("expected message 1 first, got %#v ok=%v", first, ok)
	}
	second, ok := q.Next()
	if !ok || second.What != 2 {
		t.Fatalf("expected message 2 second, got %#v ok=%v", second, ok)
	}
}

func TestNextBlocksUntilDue(t *testing.T) {
	q := New()
	start := time.Now()
	q.Push(&message.Message{What: 9}, start.Add(80*time.Millisecond))

	m, ok := q.Next()
	elapsed := time.Since(start)
	if !ok || m.What != 9 {
		t.Fatalf("expected message 9, got %#v ok=%v", m, ok)
	}
	if elapsed < 60*time.Millisecond {
		t.Fatalf("Next returned too early: %s", elapsed)
	}
}

func TestPushFrontPrecedesHead(t *testing.T) {
	q := New()
	now := time.Now()
	q.Push(&message.Message{What: 1}, now.Add(200*time.Millisecond))
	q.PushFront(&message.Message{What: 2}, now.Add(10*time.Millisecond))

	m, ok := q.Next()
	if !ok || m.What != 2 {
		t.Fatalf("expected front-inserted message first, got %#v ok=%v", m, ok)
	}
}

func TestRequestExitUnblocksNext(t *testing.T) {
	q := New()
	done := make(chan struct{})
	go func() {
		_, ok := q.Next()
		if ok {
			t.Error("expected ok=false after RequestExit on empty queue")
		}
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	q.RequestExit()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after RequestExit")
	}
}

func TestRemoveFuncRemovesMatchingAndPreservesOrder(t *testing.T) {
	q := New()
	now := time.Now()
	q.Push(&message.Message{What: 1}, now)
	q.Push(&message.Message{What: 2}, now)
	q.Push(&message.Message{What: 1}, now)

	removed := q.RemoveFunc(func(m *message.Message) bool { return m.What == 1 })
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %d", len(removed))
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", q.Len())
	}
	m, ok := q.Next()
	if !ok || m.What != 2 {
		t.Fatalf("expected remaining message to be what=2, got %#v", m)
	}
}

func TestDrainReturnsEverythingInOrder(t *testing.T) {
	q := New()
	now := time.Now()
	q.Push(&message.Message{What: 1}, now)
	q.Push(&message.Message{What: 2}, now.Add(time.Millisecond))
	q.Push(&message.Message{What: 3}, now.Add(2*time.Millisecond))

	drained := q.Drain()
	if len(drained) != 3 {
		t.Fatalf("expected 3 drained, got %d", len(drained))
	}
	for i, want := range []int{1, 2, 3} {
		if drained[i].What != want {
			t.Fatalf("drain order mismatch at %d: got %d want %d", i, drained[i].What, want)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after drain, got %d", q.Len())
	}
}
