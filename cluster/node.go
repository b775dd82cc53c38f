// Package cluster maintains the live view of the server cluster: known
// nodes, their partition ownership, and the periodic tend loop that keeps
// both current (§4.3 Cluster Map & Tend Loop).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cluster

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/OneOfOne/xxhash"

	"github.com/aerospike/aerospike-client-go/connpool"
)

// Feature is a server capability negotiated at handshake time (§4.2
// "features" info command).
type Feature string

const (
	FeatureBatchIndex    Feature = "batch-index"
	FeaturePredExp       Feature = "pred-exp"
	FeatureCompression   Feature = "compression"
	FeatureBlobBinFamily Feature = "pipelining" // gate for the MsgPack binary-family switch (§4.1)
)

// FeatureSet is the capability set a node reports, used the way the
// teacher gates behavior on `Snode.Flags`.
type FeatureSet map[Feature]bool

func (s FeatureSet) Has(f Feature) bool { return s[f] }

// Node is one cluster member (the Snode equivalent): its network address,
// negotiated capabilities, connection pool, and tend-loop health counters.
// Nodes are produced by the client, never caller-constructed (§3
// Lifecycles).
type Node struct {
	name     string // server-reported "node" id, e.g. "BB9..."
	host     string
	port     int
	rackID   int
	features FeatureSet

	pool *connpool.Pool

	idDigest uint64

	partitionGen int64 // last-seen partition-generation
	errorCount   int32 // consecutive tend-cycle failures (§4.3 Failure semantics)
	active       int32 // atomic bool: 0 evicted, 1 active

	session *sharedSession // reused login session for this node's connections (§4.4)

	partsMu         sync.Mutex
	ownedPartitions map[string]*NamespacePartitions // this node's own ownership claims, by namespace
}

// NewNode constructs a node already past handshake (§4.4), pool already
// attached.
func NewNode(name, host string, port int, pool *connpool.Pool, features FeatureSet) *Node {
	if features == nil {
		features = FeatureSet{}
	}
	n := &Node{
		name:            name,
		host:            host,
		port:            port,
		pool:            pool,
		features:        features,
		active:          1,
		session:         &sharedSession{},
		ownedPartitions: make(map[string]*NamespacePartitions),
	}
	n.digest()
	return n
}

// setOwnedPartitions replaces this node's own ownership claims after a
// successful replicas-master/replicas-all refresh (§4.3 step 3).
func (n *Node) setOwnedPartitions(np map[string]*NamespacePartitions) {
	n.partsMu.Lock()
	n.ownedPartitions = np
	n.partsMu.Unlock()
}

func (n *Node) getOwnedPartitions() map[string]*NamespacePartitions {
	n.partsMu.Lock()
	defer n.partsMu.Unlock()
	return n.ownedPartitions
}

// digest is an internal node-identity hash for O(1) map lookups and
// consistent-hash-style candidate ordering; it never substitutes for the
// server's RIPEMD-160 record digest (types.ComputeDigest), which is a
// wire contract this hash has nothing to do with.
func (n *Node) digest() uint64 {
	if n.idDigest == 0 {
		n.idDigest = xxhash.ChecksumString64(n.name)
	}
	return n.idDigest
}

func (n *Node) Name() string   { return n.name }
func (n *Node) Host() string   { return n.host }
func (n *Node) Port() int      { return n.port }
func (n *Node) RackID() int    { return n.rackID }
func (n *Node) Addr() string   { return fmt.Sprintf("%s:%d", n.host, n.port) }
func (n *Node) Features() FeatureSet { return n.features }

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.name + "(" + n.Addr() + ")"
}

func (n *Node) Active() bool { return atomic.LoadInt32(&n.active) == 1 }

// Evict marks the node inactive and tears down its pool (§4.3 Failure
// semantics: "evictions are idempotent").
func (n *Node) Evict() {
	if atomic.CompareAndSwapInt32(&n.active, 1, 0) {
		n.pool.CloseAll()
	}
}

// RecordFailure increments the consecutive-failure counter and reports
// whether it has now reached maxErrors (§4.3).
func (n *Node) RecordFailure(maxErrors int) (evictNow bool) {
	c := atomic.AddInt32(&n.errorCount, 1)
	return int(c) >= maxErrors
}

// RecordSuccess resets the consecutive-failure counter.
func (n *Node) RecordSuccess() { atomic.StoreInt32(&n.errorCount, 0) }

func (n *Node) PartitionGeneration() int64 { return atomic.LoadInt64(&n.partitionGen) }

func (n *Node) SetPartitionGeneration(gen int64) { atomic.StoreInt64(&n.partitionGen, gen) }

// GetConnection acquires a pooled connection to this node (§4.4 Acquire).
func (n *Node) GetConnection() (*connpool.Conn, error) { return n.pool.Acquire() }

// PutConnection releases a connection back to the pool, or discards it on
// error (§4.4 Release).
func (n *Node) PutConnection(c *connpool.Conn, healthy bool) { n.pool.Release(c, healthy) }

func (n *Node) Pool() *connpool.Pool { return n.pool }

// Equals compares identity, not full state — two Node values describe the
// same cluster member iff their server-reported names match.
func (n *Node) Equals(other *Node) bool {
	if n == nil || other == nil {
		return false
	}
	return n.name == other.name
}
