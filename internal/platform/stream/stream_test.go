package stream_test

import (
	"context"
	"testing"
	"time"

	"stride/internal/platform/stream"
)

func collect(t *testing.T, ch <-chan int, n int) []int {
	t.Helper()
	out := make([]int, 0, n)
	for len(out) < n {
		select {
		case v, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d of %d values", len(out), n)
			}
			out = append(out, v)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d of %d values", len(out), n)
		}
	}
	return out
}

func TestReplayDeliveredToLateSubscriber(t *testing.T) {
	t.Parallel()
	b := stream.New[int](stream.Options{Replay: 1, Buffer: 4})
	b.Publish(1)
	b.Publish(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := collect(t, b.Subscribe(ctx), 1)
	if got[0] != 2 {
		t.Fatalf("expected replayed value 2, got %d", got[0])
	}
}

func TestPublishOrderPreserved(t *testing.T) {
	t.Parallel()
	b := stream.New[int](stream.Options{Buffer: 8})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)
	for i := 1; i <= 5; i++ {
		if !b.Publish(i) {
			t.Fatalf("publish %d dropped", i)
		}
	}
	got := collect(t, ch, 5)
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("expected %d at index %d, got %d", i+1, i, v)
		}
	}
}

func TestDropOldestKeepsNewestForLaggingSubscriber(t *testing.T) {
	t.Parallel()
	b := stream.New[int](stream.Options{Buffer: 1, Policy: stream.DropOldest})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)
	b.Publish(1)
	b.Publish(2)
	got := collect(t, ch, 1)
	if got[0] != 2 {
		t.Fatalf("expected newest value 2, got %d", got[0])
	}
}

func TestDropNewestReportsDrop(t *testing.T) {
	t.Parallel()
	b := stream.New[int](stream.Options{Buffer: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)
	if !b.Publish(1) {
		t.Fatal("first publish must fit")
	}
	if b.Publish(2) {
		t.Fatal("second publish must report a drop")
	}
	got := collect(t, ch, 1)
	if got[0] != 1 {
		t.Fatalf("expected oldest value 1, got %d", got[0])
	}
}

func TestResetReplayHidesPreviousSession(t *testing.T) {
	t.Parallel()
	b := stream.New[int](stream.Options{Replay: 1, Buffer: 2})
	b.Publish(42)
	b.ResetReplay()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)
	select {
	case v := <-ch:
		t.Fatalf("expected no replay after reset, got %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriberChannelClosesOnCancel(t *testing.T) {
	t.Parallel()
	b := stream.New[int](stream.Options{Buffer: 1})
	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got value")
		}
	case <-time.After(time.Second):
		t.Fatal("channel did not close after cancel")
	}
}

func TestLastReflectsReplayCache(t *testing.T) {
	t.Parallel()
	b := stream.New[int](stream.Options{Replay: 1, Buffer: 1})

	if _, ok := b.Last(); ok {
		t.Fatal("Last reported a value before any publish")
	}
	b.Publish(7)
	b.Publish(9)
	if v, ok := b.Last(); !ok || v != 9 {
		t.Fatalf("Last = %d, %v; want 9, true", v, ok)
	}
	b.ResetReplay()
	if _, ok := b.Last(); ok {
		t.Fatal("Last survived ResetReplay")
	}
}
