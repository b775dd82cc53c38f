// Package connpool implements per-node pools of TCP connections: idle/TTL
// eviction, error eviction, and the bounded acquire/release lifecycle a
// command uses around exactly one socket at a time (§4.4 Connection Pool).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package connpool

import (
	"net"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/aerospike/aerospike-client-go/stats"
	"github.com/aerospike/aerospike-client-go/types"
)

// Conn owns one TCP socket (optionally TLS-wrapped), a last-used timestamp,
// and the deadline bookkeeping a command needs around a single I/O (§3
// Connection). Exclusive ownership transfers to exactly one command while
// in use; otherwise it sits in its Pool's idle FIFO.
type Conn struct {
	netConn  net.Conn
	lastUsed time.Time
	createdAt time.Time
}

// NewConn wraps an already-dialed net.Conn for handshake use (TLS
// negotiation, auth, version probe, §4.4) before it ever enters a Pool's
// idle list.
func NewConn(nc net.Conn) *Conn {
	now := time.Now()
	return &Conn{netConn: nc, lastUsed: now, createdAt: now}
}

func (c *Conn) Raw() net.Conn { return c.netConn }

func (c *Conn) SetDeadline(d time.Duration) error {
	if d <= 0 {
		return c.netConn.SetDeadline(time.Time{})
	}
	return c.netConn.SetDeadline(time.Now().Add(d))
}

func (c *Conn) Write(b []byte) (int, error) { return c.netConn.Write(b) }

func (c *Conn) Read(b []byte) (int, error) { return c.netConn.Read(b) }

func (c *Conn) Close() error { return c.netConn.Close() }

func (c *Conn) touch() { c.lastUsed = time.Now() }

func (c *Conn) idleFor() time.Duration { return time.Since(c.lastUsed) }

// Dialer opens a fresh transport-layer connection to addr. Production
// callers plug in a TLS-aware dialer; tests plug in an in-memory net.Pipe
// dialer.
type Dialer func(addr string, timeout time.Duration) (net.Conn, error)

// DefaultDialer opens a plain TCP connection with TCP_NODELAY semantics
// (net.Dialer already disables Nagle's algorithm is NOT guaranteed across
// platforms by default, so the pool enables keepalive explicitly here,
// mirroring the platform-specific socket tuning the teacher keeps under
// `ios/*_linux.go` / `*_darwin.go`).
func DefaultDialer(addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	return d.Dial("tcp", addr)
}

// Pool is a bounded, per-node pool of idle connections (§4.4). Acquire pops
// an idle connection that hasn't exceeded MaxIdle; otherwise it opens a new
// one up to MaxConns. Release pushes a healthy connection back with a
// refreshed timestamp; any error closes the connection immediately instead.
type Pool struct {
	Addr       string
	MinConns   int
	MaxConns   int
	MaxIdle    time.Duration
	DialTimeout time.Duration
	Dial       Dialer

	// Metrics is optional (§4 Supplemented Features: "Node/cluster
	// statistics surface"); nil disables instrumentation entirely.
	Metrics *stats.Registry

	mu      sync.Mutex
	idle    []*Conn
	inFlight int
}

func NewPool(addr string, minConns, maxConns int, maxIdle, dialTimeout time.Duration, dial Dialer) *Pool {
	if dial == nil {
		dial = DefaultDialer
	}
	return &Pool{
		Addr:        addr,
		MinConns:    minConns,
		MaxConns:    maxConns,
		MaxIdle:     maxIdle,
		DialTimeout: dialTimeout,
		Dial:        dial,
	}
}

// Acquire returns a connection ready for exclusive use by one command. It
// never blocks on other commands' I/O; it either pops an idle connection,
// dials a new one (if under MaxConns), or fails with PoolExhausted.
func (p *Pool) Acquire() (*Conn, error) {
	p.mu.Lock()
	for len(p.idle) > 0 {
		c := p.idle[0]
		p.idle = p.idle[1:]
		if p.MaxIdle > 0 && c.idleFor() > p.MaxIdle {
			p.mu.Unlock()
			_ = c.Close()
			p.observeIdleEvicted()
			p.mu.Lock()
			continue
		}
		p.inFlight++
		p.mu.Unlock()
		p.observeAcquiredFromIdle()
		return c, nil
	}
	if p.MaxConns > 0 && p.inFlight >= p.MaxConns {
		p.mu.Unlock()
		return nil, types.NewPoolExhaustedError(p.Addr)
	}
	p.inFlight++
	p.mu.Unlock()

	nc, err := p.Dial(p.Addr, p.DialTimeout)
	if err != nil {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
		return nil, types.Wrap(types.NetworkError, err)
	}
	p.observeOpened()
	now := time.Now()
	return &Conn{netConn: nc, lastUsed: now, createdAt: now}, nil
}

func (p *Pool) observeOpened() {
	if p.Metrics == nil {
		return
	}
	p.Metrics.ConnectionsOpened.Inc()
	p.Metrics.ConnectionsInUse.Inc()
}

func (p *Pool) observeAcquiredFromIdle() {
	if p.Metrics == nil {
		return
	}
	p.Metrics.ConnectionsInPool.Dec()
	p.Metrics.ConnectionsInUse.Inc()
}

// observeIdleEvicted records an idle connection that Acquire found past
// MaxIdle and closed itself, rather than a connection that was released
// unhealthy (observeReleased) — it was counted in ConnectionsInPool, not
// ConnectionsInUse.
func (p *Pool) observeIdleEvicted() {
	if p.Metrics == nil {
		return
	}
	p.Metrics.ConnectionsInPool.Dec()
	p.Metrics.ConnectionsClosed.Inc()
}

// Release returns a connection to the idle FIFO on success, or closes it on
// error (§4.4 Acquire/Release). Callers must not use c after calling
// Release with healthy=false.
func (p *Pool) Release(c *Conn, healthy bool) {
	p.mu.Lock()
	p.inFlight--
	if !healthy {
		p.mu.Unlock()
		_ = c.Close()
		p.observeReleased(false)
		return
	}
	c.touch()
	p.idle = append(p.idle, c)
	p.mu.Unlock()
	p.observeReleased(true)
}

// Discard closes c without returning it to the pool, for the fatal-error
// path of the command execution loop (§4.5).
func (p *Pool) Discard(c *Conn) {
	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	_ = c.Close()
	p.observeReleased(false)
}

func (p *Pool) observeReleased(healthy bool) {
	if p.Metrics == nil {
		return
	}
	p.Metrics.ConnectionsInUse.Dec()
	if healthy {
		p.Metrics.ConnectionsInPool.Inc()
	} else {
		p.Metrics.ConnectionsClosed.Inc()
	}
}

// EvictIdle closes every idle connection older than maxIdle, called by the
// tend loop's per-node housekeeping step (§4.3 step 5).
func (p *Pool) EvictIdle(maxIdle time.Duration) (evicted int) {
	p.mu.Lock()
	var stale []*Conn
	kept := p.idle[:0]
	for _, c := range p.idle {
		if c.idleFor() > maxIdle {
			stale = append(stale, c)
			evicted++
			continue
		}
		kept = append(kept, c)
	}
	p.idle = kept
	p.mu.Unlock()
	for _, c := range stale {
		_ = c.Close()
	}
	if evicted > 0 {
		glog.V(4).Infof("connpool %s: evicted %d idle connections", p.Addr, evicted)
		if p.Metrics != nil {
			p.Metrics.ConnectionsInPool.Sub(float64(evicted))
			p.Metrics.ConnectionsClosed.Add(float64(evicted))
		}
	}
	return evicted
}

// CloseAll tears the pool down, for node eviction (§4.3 Failure semantics).
func (p *Pool) CloseAll() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, c := range idle {
		_ = c.Close()
	}
	if p.Metrics != nil && len(idle) > 0 {
		p.Metrics.ConnectionsInPool.Sub(float64(len(idle)))
		p.Metrics.ConnectionsClosed.Add(float64(len(idle)))
	}
}

func (p *Pool) Stats() (idle, inFlight int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), p.inFlight
}
