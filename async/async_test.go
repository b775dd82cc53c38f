package async_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aerospike/aerospike-client-go/async"
	"github.com/aerospike/aerospike-client-go/cmn"
	"github.com/aerospike/aerospike-client-go/types"
)

func TestSubmitFutureTagIsAValidTaskTag(t *testing.T) {
	s := async.NewScheduler(nil, 0)
	f := async.Submit(s, context.Background(), func() (int, error) { return 1, nil }, nil)

	if !cmn.IsValidTaskTag(f.Tag) {
		t.Errorf("Tag %q is not a valid task tag", f.Tag)
	}
	if _, err := f.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestSubmitRunsAndSettlesFuture(t *testing.T) {
	s := async.NewScheduler(nil, 0)
	f := async.Submit(s, context.Background(), func() (int, error) {
		return 7, nil
	}, nil)

	v, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v != 7 {
		t.Errorf("value = %d, want 7", v)
	}
}

func TestSubmitInvokesListenerOnCompletion(t *testing.T) {
	s := async.NewScheduler(nil, 0)
	done := make(chan int, 1)
	async.Submit(s, context.Background(), func() (int, error) {
		return 9, nil
	}, func(v int, err error) {
		done <- v
	})

	select {
	case v := <-done:
		if v != 9 {
			t.Errorf("listener value = %d, want 9", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("listener never fired")
	}
}

func TestSubmitBoundsConcurrentDispatch(t *testing.T) {
	s := async.NewScheduler(nil, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	f1 := async.Submit(s, context.Background(), func() (int, error) {
		close(started)
		<-release
		return 1, nil
	}, nil)
	<-started

	var secondStarted atomic.Bool
	f2 := async.Submit(s, context.Background(), func() (int, error) {
		secondStarted.Store(true)
		return 2, nil
	}, nil)

	time.Sleep(20 * time.Millisecond)
	if secondStarted.Load() {
		t.Fatalf("second command dispatched before the first released its slot")
	}

	close(release)
	if _, err := f1.Wait(context.Background()); err != nil {
		t.Fatalf("f1.Wait: %v", err)
	}
	if _, err := f2.Wait(context.Background()); err != nil {
		t.Fatalf("f2.Wait: %v", err)
	}
	if !secondStarted.Load() {
		t.Errorf("second command never dispatched after the slot freed")
	}
}

func TestSubmitCancelledBeforeDispatchNeverRuns(t *testing.T) {
	s := async.NewScheduler(nil, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	async.Submit(s, context.Background(), func() (int, error) {
		close(started)
		<-release
		return 1, nil
	}, nil)
	<-started
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	f := async.Submit(s, ctx, func() (int, error) {
		ran.Store(true)
		return 2, nil
	}, nil)

	_, err := f.Wait(context.Background())
	if types.ResultCodeOf(err) != types.Cancelled {
		t.Fatalf("err = %v, want a Cancelled result code", err)
	}
	if ran.Load() {
		t.Errorf("cancelled command's run func should never have executed")
	}
}
