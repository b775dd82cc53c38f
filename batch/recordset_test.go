package batch

import (
	"testing"
	"time"

	"github.com/aerospike/aerospike-client-go/types"
)

func TestRecordSetBackpressureBlocksUntilDrained(t *testing.T) {
	rs := NewRecordSet(1)
	key := types.NewKeyWithDigest("test", "set", [types.DigestSize]byte{})

	if !rs.put(types.NewRecord(key, nil, 0, 0)) {
		t.Fatalf("first put into an empty, size-1 channel should not block")
	}

	putDone := make(chan bool, 1)
	go func() { putDone <- rs.put(types.NewRecord(key, nil, 0, 0)) }()

	select {
	case <-putDone:
		t.Fatalf("second put should block while the channel is full")
	case <-time.After(20 * time.Millisecond):
	}

	<-rs.Records()
	select {
	case ok := <-putDone:
		if !ok {
			t.Errorf("put should have succeeded once the channel drained")
		}
	case <-time.After(time.Second):
		t.Fatalf("put never unblocked after the channel drained")
	}
}

func TestRecordSetCloseUnblocksPendingPut(t *testing.T) {
	rs := NewRecordSet(1)
	key := types.NewKeyWithDigest("test", "set", [types.DigestSize]byte{})
	rs.put(types.NewRecord(key, nil, 0, 0)) // fill the one slot

	putDone := make(chan bool, 1)
	go func() { putDone <- rs.put(types.NewRecord(key, nil, 0, 0)) }()

	rs.Close()

	select {
	case ok := <-putDone:
		if ok {
			t.Errorf("put should report cancellation, not delivery, after Close")
		}
	case <-time.After(time.Second):
		t.Fatalf("Close did not unblock a pending put")
	}
	if !rs.cancelled() {
		t.Errorf("cancelled() should report true after Close")
	}
}

func TestRecordSetPostsExactlyOneTerminalToken(t *testing.T) {
	rs := NewRecordSet(4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		rs.finish()
		rs.fail(types.NewError(types.Timeout, "late error"))
		rs.Close()
	}()
	<-done

	count := 0
	for range rs.Records() {
		count++
	}
	if count != 0 {
		t.Errorf("expected no records, got %d", count)
	}
	if rs.Err() != nil {
		t.Errorf("finish() should win the race and leave Err nil, got %v", rs.Err())
	}

	select {
	case _, ok := <-rs.Records():
		if ok {
			t.Errorf("ranging over an already-closed channel should never yield a value")
		}
	default:
		t.Errorf("Records() should be immediately readable (closed) after the terminal token is posted")
	}
}

func TestRecordSetFailRecordsError(t *testing.T) {
	rs := NewRecordSet(1)
	wantErr := types.NewError(types.NetworkError, "boom")
	rs.fail(wantErr)

	for range rs.Records() {
	}
	if rs.Err() != wantErr {
		t.Errorf("Err() = %v, want %v", rs.Err(), wantErr)
	}
}
