// Package aerospike ties the cluster tend loop, the single-key command
// engine, batch/scan/query streaming, task polling, and the async
// scheduler together behind one Client, the shape every caller is
// expected to import (§1 Scope, §9 Design Notes).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package aerospike

import (
	"context"

	"github.com/aerospike/aerospike-client-go/async"
	"github.com/aerospike/aerospike-client-go/batch"
	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/command"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/stats"
	"github.com/aerospike/aerospike-client-go/task"
	"github.com/aerospike/aerospike-client-go/types"
)

// Re-exported so callers only ever need to import this one package for
// the common data-model types (§3 Data Model).
type (
	Key       = types.Key
	Bin       = types.Bin
	Record    = types.Record
	Value     = types.Value
	Statement = types.Statement
	Filter    = types.Filter
	Operation = command.Operation
)

var (
	NewKey        = types.NewKey
	NewIntegerKey = types.NewIntegerKey
	NewBlobKey    = types.NewBlobKey
	NewBin        = types.NewBin
	NewStatement  = types.NewStatement
	NewEqualFilter = batch.NewEqualFilter

	StringValue = types.StringValue
	IntegerValue = types.IntegerValue
	FloatValue  = types.FloatValue
	BlobValue   = types.BlobValue

	ReadOp    = command.ReadOp
	WriteOp   = command.WriteOp
	AppendOp  = command.AppendOp
	PrependOp = command.PrependOp
	AddOp     = command.AddOp
	TouchOp   = command.TouchOp
)

// Client owns one Cluster (seed handshakes, tend loop, connection pools)
// and exposes every operation layered on top of it.
type Client struct {
	cluster *cluster.Cluster
}

// NewClient seeds a Cluster from cp: it dials every seed host, performs
// the authentication handshake, runs one synchronous tend pass, and
// starts the periodic background tend loop (§4.3). It returns once the
// cluster has at least one usable node.
func NewClient(cp *policy.ClientPolicy) (*Client, error) {
	cl, err := cluster.NewCluster(cp)
	if err != nil {
		return nil, err
	}
	return &Client{cluster: cl}, nil
}

// Close stops the tend loop and closes every pooled connection. A Client
// must not be used after Close.
func (c *Client) Close() { c.cluster.Close() }

// Cluster exposes the underlying Cluster for collaborators that need
// node-level access (stats scraping, the async scheduler, direct Info
// requests) without widening Client's own surface.
func (c *Client) Cluster() *cluster.Cluster { return c.cluster }

// Stats returns one Registry per currently active node, keyed by node
// name, snapshotting the cluster's connection-pool, tend, and per-command
// latency/error counters (§4 Supplemented Features: metrics).
func (c *Client) Stats() map[string]*stats.Registry {
	nodes := c.cluster.Get().Nodes.Active()
	out := make(map[string]*stats.Registry, len(nodes))
	for _, n := range nodes {
		out[n.Name()] = n.Pool().Metrics
	}
	return out
}

// Get reads a record's bins for key, or every bin when binNames is empty
// (§4.5 Single-Key Command Engine).
func (c *Client) Get(p *policy.Policy, key *Key, binNames ...string) (*Record, error) {
	return command.Get(c.cluster, p, key, binNames...)
}

// GetHeader reads a record's generation and expiration without its bins.
func (c *Client) GetHeader(p *policy.Policy, key *Key) (*Record, error) {
	return command.GetHeader(c.cluster, p, key)
}

// Exists reports whether key has a record on the server.
func (c *Client) Exists(p *policy.Policy, key *Key) (bool, error) {
	return command.Exists(c.cluster, p, key)
}

// Put writes bins to key, creating the record if it does not exist.
func (c *Client) Put(p *policy.WritePolicy, key *Key, bins ...Bin) error {
	return command.Put(c.cluster, p, key, bins...)
}

// Append appends bins' string/blob values to key's existing bin values.
func (c *Client) Append(p *policy.WritePolicy, key *Key, bins ...Bin) error {
	return command.Append(c.cluster, p, key, bins...)
}

// Prepend prepends bins' string/blob values to key's existing bin values.
func (c *Client) Prepend(p *policy.WritePolicy, key *Key, bins ...Bin) error {
	return command.Prepend(c.cluster, p, key, bins...)
}

// Add adds bins' integer values to key's existing bin values.
func (c *Client) Add(p *policy.WritePolicy, key *Key, bins ...Bin) error {
	return command.Add(c.cluster, p, key, bins...)
}

// Touch resets key's TTL to the policy's expiration without altering bins.
func (c *Client) Touch(p *policy.WritePolicy, key *Key) error {
	return command.Touch(c.cluster, p, key)
}

// Delete removes key's record, reporting whether it existed beforehand.
func (c *Client) Delete(p *policy.WritePolicy, key *Key) (bool, error) {
	return command.Delete(c.cluster, p, key)
}

// Operate runs ops against key in one round trip, returning the bins any
// read operations produced (§4.5 Single-Key Command Engine).
func (c *Client) Operate(p *policy.WritePolicy, key *Key, ops ...Operation) (*command.OperateResult, error) {
	return command.Operate(c.cluster, p, key, ops...)
}

// BatchGet reads binNames for every key in keys, fanning the request out
// by node and returning positional records/errors (§4.6 Batch).
func (c *Client) BatchGet(p *policy.BatchPolicy, keys []*Key, binNames ...string) ([]*Record, []error) {
	return batch.Get(c.cluster, p, keys, binNames...)
}

// BatchExists reports per-key existence in one batch round trip.
func (c *Client) BatchExists(p *policy.BatchPolicy, keys []*Key) ([]bool, []error) {
	return batch.Exists(c.cluster, p, keys)
}

// Query streams every record matching stmt from every active node. The
// caller must drain the returned RecordSet's Records() channel, or call
// Close on it to cancel early (§4.6 Streaming).
func (c *Client) Query(p *policy.QueryPolicy, stmt Statement) *batch.RecordSet {
	return batch.Execute(c.cluster, p, stmt)
}

// ScanAll streams every record in namespace/set, equivalent to Query with
// no Filter.
func (c *Client) ScanAll(p *policy.QueryPolicy, namespace, set string, binNames ...string) *batch.RecordSet {
	return batch.Execute(c.cluster, p, types.Statement{Namespace: namespace, Set: set, BinNames: binNames})
}

// WaitForTask blocks until tid reports complete on every active node, p's
// Timeout elapses, or a poll round fails (§4.7 Task Polling).
func (c *Client) WaitForTask(p *policy.TaskPolicy, tid uint64) error {
	return task.Wait(c.cluster, p, tid)
}

// Async returns a Scheduler bounded to maxInFlight concurrent commands,
// sharing this Client's Cluster (§5 Concurrency & Resource Model).
func (c *Client) Async(maxInFlight int) *async.Scheduler {
	return async.NewScheduler(c.cluster, maxInFlight)
}

// GetAsync dispatches a Get through s without blocking the caller past
// the bound s was constructed with; listener, if non-nil, fires on
// completion in addition to the returned Future.
func (c *Client) GetAsync(s *async.Scheduler, ctx context.Context, p *policy.Policy, key *Key, listener async.Listener[*Record], binNames ...string) *async.Future[*Record] {
	return async.GetAsync(s, ctx, p, key, listener, binNames...)
}

// PutAsync dispatches a Put through s.
func (c *Client) PutAsync(s *async.Scheduler, ctx context.Context, p *policy.WritePolicy, key *Key, listener async.Listener[struct{}], bins ...Bin) *async.Future[struct{}] {
	return async.PutAsync(s, ctx, p, key, listener, bins...)
}

// DeleteAsync dispatches a Delete through s.
func (c *Client) DeleteAsync(s *async.Scheduler, ctx context.Context, p *policy.WritePolicy, key *Key, listener async.Listener[bool]) *async.Future[bool] {
	return async.DeleteAsync(s, ctx, p, key, listener)
}

// OperateAsync dispatches an Operate through s.
func (c *Client) OperateAsync(s *async.Scheduler, ctx context.Context, p *policy.WritePolicy, key *Key, listener async.Listener[*command.OperateResult], ops ...Operation) *async.Future[*command.OperateResult] {
	return async.OperateAsync(s, ctx, p, key, listener, ops...)
}
