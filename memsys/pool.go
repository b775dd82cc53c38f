// Package memsys manages scratch buffers used to frame wire-protocol
// requests and responses: a sync.Pool-backed pool for the sync command
// path (sync.Pool's per-processor caches stand in for one pool per OS
// thread) and one buffer per in-flight command for the async path (§4.1
// Buffer & Codec, §5 Concurrency & Resource Model).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package memsys

import "sync"

// DefaultSoftCap is the size above which a buffer is dropped instead of
// returned to its pool (§4.1: "A buffer that exceeds a soft cap (e.g., 1
// MiB) is dropped rather than returned to the pool").
const DefaultSoftCap = 1 << 20 // 1 MiB

// Buffer is a reusable scratch byte slice. It is never shared across two
// commands concurrently; exactly one command owns it between Get and Put.
type Buffer struct {
	b []byte
}

func (buf *Buffer) Bytes() []byte { return buf.b }

// Grow extends the buffer to at least n bytes, preserving existing content.
func (buf *Buffer) Grow(n int) {
	if cap(buf.b) >= n {
		buf.b = buf.b[:n]
		return
	}
	nb := make([]byte, n)
	copy(nb, buf.b)
	buf.b = nb
}

func (buf *Buffer) Reset() { buf.b = buf.b[:0] }

func (buf *Buffer) Len() int { return len(buf.b) }

// Pool is a sync.Pool-backed scratch-buffer source and is safe for
// concurrent use. A Pool may be shared by many goroutines (the command
// package keeps one process-wide); each Buffer it hands out still has
// exactly one owner between Get and Put.
type Pool struct {
	sp      sync.Pool
	softCap int
}

// NewPool constructs a Pool whose buffers are discarded, not recycled, once
// they grow past softCap bytes. A softCap of zero selects DefaultSoftCap.
func NewPool(softCap int) *Pool {
	if softCap <= 0 {
		softCap = DefaultSoftCap
	}
	p := &Pool{softCap: softCap}
	p.sp.New = func() interface{} { return &Buffer{b: make([]byte, 0, 256)} }
	return p
}

func (p *Pool) Get() *Buffer {
	buf := p.sp.Get().(*Buffer)
	buf.Reset()
	return buf
}

func (p *Pool) Put(buf *Buffer) {
	if buf == nil || cap(buf.b) > p.softCap {
		return
	}
	p.sp.Put(buf)
}

// SyncContext is the sync-path handle around one Pool. Real Go has no
// thread-local storage; the teacher's `one per thread` scratch buffer is
// approximated by sync.Pool's own per-processor caching, and the command
// package shares a single SyncContext across every command it runs.
type SyncContext struct {
	pool *Pool
}

func NewSyncContext(softCap int) *SyncContext {
	return &SyncContext{pool: NewPool(softCap)}
}

func (c *SyncContext) Acquire() *Buffer { return c.pool.Get() }
func (c *SyncContext) Release(b *Buffer) { c.pool.Put(b) }

// AsyncContext is the async-path analogue: one Buffer is allocated for the
// lifetime of a single in-flight command and returned to the shared pool on
// completion, never reused across commands (§5 Shared resources).
type AsyncContext struct {
	shared *Pool
	buf    *Buffer
}

func NewAsyncContext(shared *Pool) *AsyncContext {
	return &AsyncContext{shared: shared, buf: shared.Get()}
}

func (c *AsyncContext) Buffer() *Buffer { return c.buf }

func (c *AsyncContext) Release() {
	c.shared.Put(c.buf)
	c.buf = nil
}
