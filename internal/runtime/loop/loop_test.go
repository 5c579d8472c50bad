package loop

import (
	"context"
	"errors"
	"testing"
	"time"

	logx "autokittens/pkg/logx"
)

func startLoop(t *testing.T, queue int) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(queue, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(cancel)
	return l, cancel
}

func TestDoRunsJobsInOrder(t *testing.T) {
	l, _ := startLoop(t, 16)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		if err := l.Post(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var n int
	if err := l.Do(ctx, func() { n = len(got) }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if n != 5 {
		t.Fatalf("jobs before Do = %d, want 5", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("order = %v", got)
		}
	}
}

func TestPanickingJobDoesNotKillLoop(t *testing.T) {
	l, _ := startLoop(t, 4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := l.Do(ctx, func() { panic("boom") }); err != nil {
		t.Fatalf("Do(panic): %v", err)
	}
	ran := false
	if err := l.Do(ctx, func() { ran = true }); err != nil || !ran {
		t.Fatalf("loop unusable after panic: ran=%v err=%v", ran, err)
	}
}

func TestPostAfterStop(t *testing.T) {
	l, cancel := startLoop(t, 4)
	cancel()
	<-l.done
	if err := l.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Post after stop = %v, want ErrStopped", err)
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Do after stop = %v, want ErrStopped", err)
	}
}

func TestPostQueueFull(t *testing.T) {
	l := New(1, logx.Nop())
	if err := l.Post(func() {}); err != nil {
		t.Fatalf("first Post: %v", err)
	}
	if err := l.Post(func() {}); !errors.Is(err, ErrFull) {
		t.Fatalf("second Post = %v, want ErrFull", err)
	}
}
