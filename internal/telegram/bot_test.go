package telegram

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCall_ReturnsResult(t *testing.T) {
	got, err := call(context.Background(), func() (int, error) {
		return 7, nil
	}, func(int, error) {
		t.Error("late callback on a completed call")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Errorf("result = %d, want 7", got)
	}
}

func TestCall_ReportsAbandonedResult(t *testing.T) {
	release := make(chan struct{})
	late := make(chan int, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := call(ctx, func() (int, error) {
		<-release
		return 42, nil
	}, func(v int, err error) {
		if err != nil {
			t.Errorf("late error = %v", err)
		}
		late <- v
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	close(release)
	select {
	case v := <-late:
		if v != 42 {
			t.Errorf("late result = %d, want 42", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned result was not reported")
	}
}

func TestCall_NilLateCallback(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := call(ctx, func() (int, error) {
		defer close(finished)
		<-release
		return 1, nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	close(release)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("background call did not finish")
	}
}
