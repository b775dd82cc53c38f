package cluster

import (
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
)

// Route selects the node that should serve a command against (namespace,
// digest) on this attempt (§4.3 Routing, §4.5 select_node). Writes always
// go to the current master (replica index 0); reads honor the policy's
// read-mode. Routing never blocks on I/O (§4.3 Failure semantics) — it
// only inspects the already-published ClusterMap snapshot.
func Route(cm *ClusterMap, namespace string, digest [types.DigestSize]byte, write bool, readMode policy.ReadModeSC, attempt int) (*Node, error) {
	if cm == nil || cm.CountNodes() == 0 {
		return nil, types.NewClusterEmptyError()
	}
	pid := types.PartitionOf(digest)
	np := cm.PartitionsFor(namespace)
	if np == nil || len(np.Replicas) == 0 {
		return nil, types.NewNoNodeForPartitionError(namespace, int(pid))
	}
	if write {
		n := np.Owner(pid, 0)
		if n == nil || !n.Active() {
			return nil, types.NewNoNodeForPartitionError(namespace, int(pid))
		}
		return n, nil
	}
	switch readMode {
	case policy.ReadModeAnyReplica:
		candidates := activeReplicas(np, pid)
		if len(candidates) == 0 {
			return nil, types.NewNoNodeForPartitionError(namespace, int(pid))
		}
		return candidates[attempt%len(candidates)], nil
	case policy.ReadModeSequence:
		n := np.Owner(pid, attempt%len(np.Replicas))
		if n != nil && n.Active() {
			return n, nil
		}
		// fall through to master on a gap in the sequence (e.g., this
		// replica index currently has no assigned owner).
		fallthrough
	default: // policy.ReadModeMaster
		n := np.Owner(pid, 0)
		if n == nil || !n.Active() {
			return nil, types.NewNoNodeForPartitionError(namespace, int(pid))
		}
		return n, nil
	}
}

func activeReplicas(np *NamespacePartitions, pid uint32) []*Node {
	out := make([]*Node, 0, len(np.Replicas))
	for _, table := range np.Replicas {
		if n := table[pid]; n != nil && n.Active() {
			out = append(out, n)
		}
	}
	return out
}
