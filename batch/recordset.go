package batch

import (
	"sync"

	"github.com/aerospike/aerospike-client-go/types"
)

// RecordSet is the bounded, blocking channel query and scan results stream
// through (§4.6 Streaming). Producer goroutines block on put when the
// channel is full, giving the consumer backpressure; Close unblocks any
// blocked producers and tells them to stop issuing new reads (§4.6
// Cancellation). Exactly one terminal token — either orderly completion or
// a propagated error — reaches the consumer per RecordSet, enforced by a
// done flag under mu regardless of how many producer goroutines are
// feeding it.
type RecordSet struct {
	records chan *types.Record
	cancel  chan struct{}

	cancelOnce sync.Once

	mu   sync.Mutex
	done bool
	err  error
}

// NewRecordSet allocates a RecordSet with the given channel depth
// (policy.QueryPolicy.RecordQueueSize).
func NewRecordSet(queueSize int) *RecordSet {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &RecordSet{
		records: make(chan *types.Record, queueSize),
		cancel:  make(chan struct{}),
	}
}

// Records returns the channel the consumer ranges over. It closes exactly
// once, after the last record has been delivered or the set has failed;
// callers should check Err once the range loop exits to tell the two apart.
func (rs *RecordSet) Records() <-chan *types.Record {
	return rs.records
}

// Err reports the error that terminated the set, if any. Only meaningful
// after Records has been fully drained (i.e. its range loop has exited).
func (rs *RecordSet) Err() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.err
}

// Close cancels the set: producers still feeding it stop issuing new reads
// and return their sockets to the pool where safe. Close itself does not
// post the terminal token or close Records; that is left to finish/fail
// (in Execute, finish runs once every per-node producer has returned, so
// a cancelled set ends with Err nil). Safe to call more than once and
// from any goroutine.
func (rs *RecordSet) Close() {
	rs.cancelOnce.Do(func() {
		close(rs.cancel)
	})
}

// cancelled reports whether the consumer has closed the set, for producers
// to check between sub-records without blocking.
func (rs *RecordSet) cancelled() bool {
	select {
	case <-rs.cancel:
		return true
	default:
		return false
	}
}

// put delivers rec to the consumer, blocking if the channel is full. It
// returns false if the set was cancelled first, telling the producer to
// stop issuing new reads rather than push past a closed consumer.
func (rs *RecordSet) put(rec *types.Record) bool {
	select {
	case rs.records <- rec:
		return true
	case <-rs.cancel:
		return false
	}
}

// finish posts the terminal token for orderly completion. No-op if the set
// already has a terminal token, whichever of finish/fail gets there first
// wins and closes records exactly once.
func (rs *RecordSet) finish() {
	rs.mu.Lock()
	already := rs.done
	rs.done = true
	rs.mu.Unlock()
	if !already {
		close(rs.records)
	}
}

// fail records err as the set's terminal error and posts the terminal
// token. No-op if the set already has a terminal token — an orderly finish
// that won the race leaves Err nil even if a producer calls fail slightly
// later, since the first terminal token is the one that counts.
func (rs *RecordSet) fail(err error) {
	rs.mu.Lock()
	already := rs.done
	if !already {
		rs.done = true
		rs.err = err
	}
	rs.mu.Unlock()
	if !already {
		close(rs.records)
	}
}
