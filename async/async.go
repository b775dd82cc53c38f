// Package async wraps the single-key command engine in a bounded,
// non-blocking scheduler (§5 Concurrency & Resource Model): the sync
// commands in package command already provide the request framing and
// response parsing; this package adds the scheduling half — a fixed
// number of commands in flight at once, with commands over that bound
// queued on their own goroutines until a slot frees (the caller is never
// blocked), served in the order they start waiting, and a single Future/Listener surface
// for completion instead of the source's separate callback and
// promise-wrapping shims (§9 Design Notes).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package async

import (
	"context"

	"github.com/golang/glog"

	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/cmn"
	"github.com/aerospike/aerospike-client-go/command"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
)

// Future is the result of one async command. Wait may be called from
// several goroutines; all of them observe the same value once the
// command settles. Tag is a short, human-readable correlation id for log
// lines, minted once per Future (§5 Async: background dispatch needs its
// own identity separate from the sync call stack a log line would
// otherwise show).
type Future[T any] struct {
	Tag  string
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{Tag: cmn.GenTaskTag(), done: make(chan struct{})}
}

// Done returns a channel closed once the command has settled, for
// callers selecting across several in-flight commands at once.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the command settles or ctx ends first. A ctx
// cancellation here does not cancel the underlying command; use
// Scheduler's own ctx argument for that (queued-but-undispatched
// commands only, per §5's cancellation scope).
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) settle(val T, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Listener is the thin callback facade over Future for callers that want
// a completion hook instead of polling Wait (§9: "a thin callback facade
// if needed"). Runs on the command's own goroutine; it must not block.
type Listener[T any] func(T, error)

// Scheduler bounds how many commands package command is running at
// once. A zero-value Scheduler (or one built with maxInFlight <= 0) is
// unbounded: Submit dispatches every command immediately, matching
// async-max-commands == 0 in §6.4's configuration table.
type Scheduler struct {
	cl    *cluster.Cluster
	slots chan struct{}
}

// NewScheduler binds a Scheduler to cl, capped at maxInFlight
// concurrently dispatched commands (§6.4 `async-max-commands`).
func NewScheduler(cl *cluster.Cluster, maxInFlight int) *Scheduler {
	s := &Scheduler{cl: cl}
	if maxInFlight > 0 {
		s.slots = make(chan struct{}, maxInFlight)
	}
	return s
}

// Cluster returns the cluster this scheduler dispatches against, for the
// per-operation wrappers in this package.
func (s *Scheduler) Cluster() *cluster.Cluster { return s.cl }

// Submit runs run on a goroutine once a dispatch slot is available,
// returning a Future immediately. Acquiring that slot happens on the
// command's own goroutine, never the caller's, and is the only step ctx
// can interrupt: a command still waiting for a slot when ctx ends is
// completed with a Cancelled error and never runs run at all, so it never
// opens a socket (§8 Testable Properties). listener, if non-nil, fires
// after the Future settles, whichever way.
func Submit[T any](s *Scheduler, ctx context.Context, run func() (T, error), listener Listener[T]) *Future[T] {
	f := newFuture[T]()

	go func() {
		if s.slots != nil {
			select {
			case s.slots <- struct{}{}:
			case <-ctx.Done():
				var zero T
				glog.V(2).Infof("async[%s]: cancelled before dispatch", f.Tag)
				f.settle(zero, types.NewCancelledError())
				if listener != nil {
					listener(f.val, f.err)
				}
				return
			}
			defer func() { <-s.slots }()
		}
		val, err := run()
		if err != nil {
			glog.V(2).Infof("async[%s]: %v", f.Tag, err)
		}
		f.settle(val, err)
		if listener != nil {
			listener(val, err)
		}
	}()
	return f
}

// GetAsync runs command.Get under s's dispatch bound.
func GetAsync(s *Scheduler, ctx context.Context, p *policy.Policy, key *types.Key, listener Listener[*types.Record], binNames ...string) *Future[*types.Record] {
	return Submit(s, ctx, func() (*types.Record, error) {
		return command.Get(s.cl, p, key, binNames...)
	}, listener)
}

// ExistsAsync runs command.Exists under s's dispatch bound.
func ExistsAsync(s *Scheduler, ctx context.Context, p *policy.Policy, key *types.Key, listener Listener[bool]) *Future[bool] {
	return Submit(s, ctx, func() (bool, error) {
		return command.Exists(s.cl, p, key)
	}, listener)
}

// PutAsync runs command.Put under s's dispatch bound. The result type is
// struct{} since Put has no payload beyond success/failure.
func PutAsync(s *Scheduler, ctx context.Context, p *policy.WritePolicy, key *types.Key, listener Listener[struct{}], bins ...types.Bin) *Future[struct{}] {
	return Submit(s, ctx, func() (struct{}, error) {
		return struct{}{}, command.Put(s.cl, p, key, bins...)
	}, listener)
}

// DeleteAsync runs command.Delete under s's dispatch bound.
func DeleteAsync(s *Scheduler, ctx context.Context, p *policy.WritePolicy, key *types.Key, listener Listener[bool]) *Future[bool] {
	return Submit(s, ctx, func() (bool, error) {
		return command.Delete(s.cl, p, key)
	}, listener)
}

// OperateAsync runs command.Operate under s's dispatch bound.
func OperateAsync(s *Scheduler, ctx context.Context, p *policy.WritePolicy, key *types.Key, listener Listener[*command.OperateResult], ops ...command.Operation) *Future[*command.OperateResult] {
	return Submit(s, ctx, func() (*command.OperateResult, error) {
		return command.Operate(s.cl, p, key, ops...)
	}, listener)
}
