package cluster

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/aerospike/aerospike-client-go/connpool"
	"github.com/aerospike/aerospike-client-go/info"
	"github.com/aerospike/aerospike-client-go/msgpack"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/stats"
	"github.com/aerospike/aerospike-client-go/types"
)

// Cluster owns the tend loop and publishes immutable ClusterMap snapshots
// (§4.3 Cluster Map & Tend Loop). It implements Sowner.
type Cluster struct {
	cp *policy.ClientPolicy

	mapPtr    atomic.Pointer[ClusterMap]
	listeners *listenerSet

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup

	tendMu    sync.Mutex
	refreshCh chan struct{} // size-1: coalesces concurrent TriggerRefresh calls into one extra tend pass
}

// NewCluster seeds from cp.Hosts, performs the initial handshake against
// each reachable seed, runs one synchronous tend pass to populate the
// first ClusterMap, and starts the periodic tend loop.
func NewCluster(cp *policy.ClientPolicy) (*Cluster, error) {
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	if len(cp.Hosts) == 0 {
		return nil, types.NewClusterEmptyError()
	}
	c := &Cluster{
		cp:        cp,
		listeners: newListenerSet(),
		closeCh:   make(chan struct{}),
		refreshCh: make(chan struct{}, 1),
	}
	creds := credentials{user: cp.User, password: cp.Password, enabled: cp.User != ""}

	initial := make(NodeMap)
	var lastErr error
	for _, h := range cp.Hosts {
		n, err := c.dialAndHandshake(h.Addr, h.Port, creds)
		if err != nil {
			lastErr = err
			glog.Warningf("cluster: seed %s:%d failed handshake: %v", h.Addr, h.Port, err)
			continue
		}
		if !initial.Contains(n.Name()) {
			initial[n.Name()] = n
		}
	}
	if len(initial) == 0 {
		if lastErr != nil {
			return nil, types.Wrap(types.ClusterIsEmpty, errors.Wrap(lastErr, "cluster: every seed host failed handshake"))
		}
		return nil, types.NewClusterEmptyError()
	}
	c.mapPtr.Store(&ClusterMap{Nodes: initial, Partitions: map[string]*NamespacePartitions{}})

	c.tendOnce() // populate partition maps before first use

	c.wg.Add(1)
	go c.tendLoop()
	return c, nil
}

// NewFromMap builds a Cluster directly from a pre-built ClusterMap,
// skipping seed handshakes and never starting the tend loop. Exported so
// tests in command/batch/task can hand Route-dependent code a Cluster
// without dialing real sockets.
func NewFromMap(cm *ClusterMap) *Cluster {
	c := &Cluster{
		listeners: newListenerSet(),
		closeCh:   make(chan struct{}),
		refreshCh: make(chan struct{}, 1),
	}
	c.mapPtr.Store(cm)
	return c
}

func (c *Cluster) dialAndHandshake(host string, port int, creds credentials) (*Node, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	sess := &sharedSession{}
	dial := c.nodeDialer(creds, sess)
	nc, err := connpool.DefaultDialer(addr, c.cp.LoginTimeout)
	if err != nil {
		return nil, types.Wrap(types.NetworkError, errors.Wrapf(err, "cluster: dial seed %s", addr))
	}
	name, features, err := handshake(nc, creds, sess, c.cp.ClusterName, c.cp.LoginTimeout)
	if err != nil {
		nc.Close()
		return nil, err
	}
	_ = nc.Close() // discard the handshake probe socket; the pool dials its own
	pool := connpool.NewPool(addr, c.cp.MinConnsPerNode, c.cp.MaxConnsPerNode, c.cp.MaxSocketIdle, c.cp.LoginTimeout, dial)
	pool.Metrics = stats.NewRegistry(name)
	n := NewNode(name, host, port, pool, features)
	n.session = sess
	return n, nil
}

// nodeDialer builds a connpool.Dialer that authenticates every freshly
// dialed socket before handing it to the pool (§4.4 Handshake: "New
// connections perform ... authentication if credentials present").
func (c *Cluster) nodeDialer(creds credentials, sess *sharedSession) connpool.Dialer {
	clusterName := c.cp.ClusterName
	return func(addr string, timeout time.Duration) (net.Conn, error) {
		conn, err := connpool.DefaultDialer(addr, timeout)
		if err != nil {
			return nil, err
		}
		if _, _, err := handshake(conn, creds, sess, clusterName, timeout); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func (c *Cluster) Get() *ClusterMap           { return c.mapPtr.Load() }
func (c *Cluster) Listeners() ClusterListeners { return c.listeners }

// BlobFamily reports which MessagePack blob family a command built right
// now should use (§4.1): BlobAsBin once every active node has negotiated
// FeatureBlobBinFamily, BlobAsString the moment any one of them hasn't.
// A command's values are encoded once, before Route picks the specific
// node an attempt lands on (§4.3), so this asks the whole cluster's
// weakest common denominator rather than gambling on one node's
// features and re-encoding per retry.
func (c *Cluster) BlobFamily() msgpack.BlobFamily {
	for _, n := range c.Get().Nodes.Active() {
		if !n.Features().Has(FeatureBlobBinFamily) {
			return msgpack.BlobAsString
		}
	}
	return msgpack.BlobAsBin
}

// TriggerRefresh requests an out-of-band tend pass ahead of the regular
// TendInterval tick (§4.5: a NOT_MASTER response "additionally triggers an
// early partition-map refresh"). It never blocks the caller.
func (c *Cluster) TriggerRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default: // a refresh is already pending; this one is redundant
	}
}

func (c *Cluster) Close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.wg.Wait()
		for _, n := range c.Get().Nodes {
			n.Evict()
		}
	})
}

func (c *Cluster) tendLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cp.TendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closeCh:
			return
		case <-ticker.C:
			c.tendOnce()
		case <-c.refreshCh:
			c.tendOnce()
		}
	}
}

// tendOnce runs one full tend pass (§4.3 steps 1-5) and publishes a new
// ClusterMap, with Version incremented, after every pass.
func (c *Cluster) tendOnce() {
	c.tendMu.Lock()
	defer c.tendMu.Unlock()

	cur := c.Get()
	creds := credentials{user: c.cp.User, password: c.cp.Password, enabled: c.cp.User != ""}
	newNodes := cur.Nodes.Clone()
	discovered := make(map[string]struct{})
	knownAddrs := make(map[string]struct{}, len(cur.Nodes))
	for _, n := range cur.Nodes {
		knownAddrs[n.Addr()] = struct{}{}
	}

	for name, n := range cur.Nodes {
		if !n.Active() {
			delete(newNodes, name)
			continue
		}
		peers, ok := c.tendNode(n)
		if !ok {
			if n.RecordFailure(c.cp.MaxErrors) {
				glog.Warningf("cluster: evicting %s after %d consecutive tend failures", n, c.cp.MaxErrors)
				n.Evict()
				delete(newNodes, name)
			}
			continue
		}
		n.RecordSuccess()
		for _, p := range peers {
			if _, known := knownAddrs[p]; !known {
				discovered[p] = struct{}{}
			}
		}
	}

	for addr := range discovered {
		host, portStr, err := splitHostPort(addr)
		if err != nil {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}
		n, err := c.dialAndHandshake(host, port, creds)
		if err != nil {
			glog.Warningf("cluster: candidate peer %s failed handshake: %v", addr, err)
			continue
		}
		newNodes[n.Name()] = n
	}

	added, removed := nodeMapDelta(cur.Nodes, newNodes)
	for _, n := range added {
		c.listeners.notifyAdded(n)
	}
	for _, n := range removed {
		c.listeners.notifyRemoved(n)
	}

	merged := mergePartitions(newNodes)
	next := &ClusterMap{Nodes: newNodes, Partitions: merged, Version: cur.Version + 1}
	c.mapPtr.Store(next)
}

// tendNode issues the per-node Info bundle (§4.3 step 1), refreshes its
// partition tables on a generation change (step 3), and returns
// newly-seen peer addresses (step 4). ok is false on any I/O failure.
func (c *Cluster) tendNode(n *Node) (peers []string, ok bool) {
	names := []string{"node", "partition-generation", "services"}
	metrics := n.Pool().Metrics
	conn, err := n.GetConnection()
	if err != nil {
		observeTendError(metrics, types.NoAvailableConnections)
		return nil, false
	}
	resp, err := info.Request(conn, c.cp.LoginTimeout, names...)
	if err != nil {
		n.PutConnection(conn, false)
		observeTendError(metrics, types.NetworkError)
		return nil, false
	}

	if resp["node"] != "" && resp["node"] != n.Name() {
		n.PutConnection(conn, true)
		observeTendError(metrics, types.InvalidNodeError)
		return nil, false // identity changed under us; treat as a failed probe, evict on threshold
	}

	if genStr := resp["partition-generation"]; genStr != "" {
		gen, err := parsePartitionGeneration(genStr)
		if err == nil && gen != n.PartitionGeneration() {
			if err := c.refreshPartitions(n, conn); err != nil {
				glog.Warningf("cluster: %s partition refresh failed: %v", n, err)
			} else {
				n.SetPartitionGeneration(gen)
			}
		}
	}
	n.PutConnection(conn, true)

	n.Pool().EvictIdle(c.cp.MaxSocketIdle) // step 5

	if metrics != nil {
		metrics.TendCount.Inc()
	}

	for _, addr := range strings.Split(resp["services"], ";") {
		if addr != "" {
			peers = append(peers, addr)
		}
	}
	return peers, true
}

// observeTendError records a failed tend probe under the node's own
// Registry, if metrics are attached (§4 Supplemented Features).
func observeTendError(metrics *stats.Registry, code types.ResultCode) {
	if metrics == nil {
		return
	}
	metrics.ErrorCount.WithLabelValues(code.String()).Inc()
}

func (c *Cluster) refreshPartitions(n *Node, conn *connpool.Conn) error {
	resp, err := info.Request(conn, c.cp.LoginTimeout, "replicas-master", "replicas-all")
	if err != nil {
		return err
	}
	owned := make(map[string]*NamespacePartitions)
	if err := applyReplicaBitmaps(resp["replicas-all"], n, owned); err != nil {
		return err
	}
	if err := applyReplicaBitmaps(resp["replicas-master"], n, owned); err != nil {
		return err
	}
	n.setOwnedPartitions(owned)
	return nil
}

// mergePartitions combines every active node's own ownership claims into
// one ClusterMap.Partitions table.
func mergePartitions(nodes NodeMap) map[string]*NamespacePartitions {
	out := make(map[string]*NamespacePartitions)
	for _, n := range nodes {
		for ns, np := range n.getOwnedPartitions() {
			dst, ok := out[ns]
			if !ok || len(dst.Replicas) < len(np.Replicas) {
				grown := &NamespacePartitions{Replicas: make([][types.PartitionCount]*Node, len(np.Replicas))}
				if ok {
					copy(grown.Replicas, dst.Replicas)
				}
				dst = grown
				out[ns] = dst
			}
			for i, table := range np.Replicas {
				for pid, owner := range table {
					if owner != nil {
						dst.Replicas[i][pid] = owner
					}
				}
			}
		}
	}
	return out
}

func splitHostPort(addr string) (host, port string, err error) {
	i := strings.LastIndexByte(addr, ':')
	if i < 0 {
		return "", "", types.NewError(types.ParameterError, "bad peer address %q", addr)
	}
	return addr[:i], addr[i+1:], nil
}
