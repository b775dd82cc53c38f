package types

import (
	"errors"
	"fmt"
)

// AerospikeError is the single error type returned by every command in the
// core. It wraps a ResultCode the same way the teacher's cmn.ErrHTTP wraps
// an HTTP status: callers that only care about "did it work" check Retriable
// or compare the code; callers that want detail unwrap.
type AerospikeError struct {
	Code    ResultCode
	Message string
	cause   error
}

func (e *AerospikeError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AerospikeError) Unwrap() error { return e.cause }

// Retriable reports whether the command that produced this error may be
// re-dispatched under the policy's retry budget (§4.5, §7).
func (e *AerospikeError) Retriable() bool { return e.Code.Retriable() }

// NewError builds an AerospikeError for a server- or client-observed result
// code, formatting Message the way cmn.NewNotFoundError formats its args.
func NewError(code ResultCode, format string, args ...interface{}) *AerospikeError {
	return &AerospikeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a lower-level cause (a transport error, a parse error) to a
// result code without losing it to Unwrap/errors.Is chains.
func Wrap(code ResultCode, cause error) *AerospikeError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &AerospikeError{Code: code, Message: msg, cause: cause}
}

// Client-state errors (§7 kind 5): cluster empty, no node for partition,
// pool exhausted. Named constructors mirror cmn.NewNotFoundError /
// cmn.NewNoNodesError so call sites read the same way the teacher's do.

func NewClusterEmptyError() *AerospikeError {
	return NewError(ClusterIsEmpty, "cluster has no known nodes")
}

func NewNoNodeForPartitionError(ns string, partition int) *AerospikeError {
	return NewError(NoNodeForPartition, "no node owns partition %d of namespace %q", partition, ns)
}

func NewPoolExhaustedError(node string) *AerospikeError {
	return NewError(PoolExhausted, "connection pool exhausted for node %s", node)
}

func NewTimeoutError(node string) *AerospikeError {
	return NewError(ClientTimeout, "command timed out against node %s", node)
}

func NewInvalidNodeError(reason string) *AerospikeError {
	return NewError(InvalidNodeError, reason)
}

// NewCancelledError reports an async command removed from its dispatch
// queue before it ever opened a socket (§5 Concurrency & Resource Model:
// "Cancellation tokens from async callers propagate... to queued-but-not-
// yet-dispatched commands").
func NewCancelledError() *AerospikeError {
	return NewError(Cancelled, "command cancelled before dispatch")
}

// IsRetriable is a free function so callers holding a plain `error` (not
// necessarily *AerospikeError) can still ask the question uniformly.
func IsRetriable(err error) bool {
	var ae *AerospikeError
	if errors.As(err, &ae) {
		return ae.Retriable()
	}
	return false
}

// ResultCodeOf extracts the ResultCode from an arbitrary error, returning
// GenericError if it isn't an *AerospikeError.
func ResultCodeOf(err error) ResultCode {
	var ae *AerospikeError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return GenericError
}
