// ABOUTME: Tests for the packet queue
// ABOUTME: Covers ordering, end of stream, blocking, backpressure and cancellation
package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
)

func TestFIFOOrder(t *testing.T) {
	q := New(8)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Put(ctx, audio.NewPacket(float64(i), []byte{byte(i)})); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		p, err := q.Take(ctx)
		if err != nil {
			t.Fatalf("take: %v", err)
		}
		if p.PTS != float64(i) {
			t.Errorf("expected pts %d, got %v", i, p.PTS)
		}
	}

	if !q.IsEmpty() {
		t.Error("expected empty queue")
	}
}

func TestEndOfStreamAfterDrain(t *testing.T) {
	q := New(8)
	ctx := context.Background()

	_ = q.Put(ctx, audio.NewPacket(0, []byte{1}))
	q.SetEnd()

	if !q.Ended() {
		t.Error("expected ended")
	}
	if _, err := q.Take(ctx); err != nil {
		t.Fatalf("expected queued packet before end, got %v", err)
	}
	if _, err := q.Take(ctx); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream, got %v", err)
	}
}

func TestTakeBlocksUntilPut(t *testing.T) {
	q := New(8)
	ctx := context.Background()

	got := make(chan audio.Packet, 1)
	go func() {
		p, err := q.Take(ctx)
		if err == nil {
			got <- p
		}
	}()

	select {
	case <-got:
		t.Fatal("take returned before any put")
	case <-time.After(20 * time.Millisecond):
	}

	_ = q.Put(ctx, audio.NewPacket(7, []byte{1}))

	select {
	case p := <-got:
		if p.PTS != 7 {
			t.Errorf("expected pts 7, got %v", p.PTS)
		}
	case <-time.After(time.Second):
		t.Fatal("take did not wake up")
	}
}

func TestTakeCancelled(t *testing.T) {
	q := New(8)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := q.Take(ctx)
		errc <- err
	}()

	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("take ignored cancellation")
	}
}

func TestPutBackpressure(t *testing.T) {
	q := New(1)
	ctx := context.Background()

	_ = q.Put(ctx, audio.NewPacket(0, []byte{1}))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.Put(short, audio.NewPacket(1, []byte{1})); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected put to block until deadline, got %v", err)
	}

	// Flush packets bypass the bound
	if err := q.Put(ctx, audio.FlushPacket()); err != nil {
		t.Errorf("expected flush put to succeed, got %v", err)
	}
	if q.Len() != 2 {
		t.Errorf("expected 2 packets, got %d", q.Len())
	}
}

func TestClearResetsEnd(t *testing.T) {
	q := New(4)
	ctx := context.Background()
	_ = q.Put(ctx, audio.NewPacket(0, []byte{1}))
	q.SetEnd()

	q.Clear()

	if !q.IsEmpty() || q.Ended() {
		t.Error("expected empty, not ended queue after clear")
	}
}

func TestCloseUnblocks(t *testing.T) {
	q := New(4)

	errc := make(chan error, 1)
	go func() {
		_, err := q.Take(context.Background())
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("close did not unblock take")
	}

	if err := q.Put(context.Background(), audio.NewPacket(0, nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on put, got %v", err)
	}
}
