package cluster

import (
	"encoding/base64"
	"strings"

	"github.com/aerospike/aerospike-client-go/types"
)

// NamespacePartitions holds, for one namespace, one ownership table per
// replica index: replicas[0] is the master table, replicas[1] is the
// first backup table, and so on (§4.3 step 3: "replicas-master /
// replicas-all ... per namespace per replica index").
type NamespacePartitions struct {
	Replicas [][types.PartitionCount]*Node
}

// Owner returns the node owning partitionID at the given replica index,
// or nil if no table exists at that index.
func (p *NamespacePartitions) Owner(partitionID uint32, replicaIndex int) *Node {
	if replicaIndex < 0 || replicaIndex >= len(p.Replicas) {
		return nil
	}
	return p.Replicas[replicaIndex][partitionID]
}

// replicaCount reports how many replica tables own a copy of partitionID.
// Route's ReadModeAnyReplica branch does not call it; it builds its
// candidate list with activeReplicas instead.
func (p *NamespacePartitions) replicaCount(partitionID uint32) int {
	n := 0
	for _, table := range p.Replicas {
		if table[partitionID] != nil {
			n++
		}
	}
	return n
}

// applyReplicaBitmaps decodes one node's `replicas-master`/`replicas-all`
// info-response value — `ns1:<b64-bitmap>[,<b64-bitmap>...];ns2:...`
// (§4.3 step 3) — where bitmap index i is a 4096-bit (512-byte),
// partition-indexed mask of the partitions `owner` holds at replica
// index i, and marks owner into dst for every set bit.
func applyReplicaBitmaps(value string, owner *Node, dst map[string]*NamespacePartitions) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, nsBlock := range strings.Split(value, ";") {
		if nsBlock == "" {
			continue
		}
		ns, rest, ok := cut(nsBlock, ':')
		if !ok {
			continue
		}
		bitmaps := strings.Split(rest, ",")
		np, exists := dst[ns]
		if !exists || len(np.Replicas) < len(bitmaps) {
			grown := &NamespacePartitions{Replicas: make([][types.PartitionCount]*Node, len(bitmaps))}
			if exists {
				copy(grown.Replicas, np.Replicas)
			}
			np = grown
			dst[ns] = np
		}
		for replicaIdx, b64 := range bitmaps {
			raw, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return types.NewError(types.Truncated, "replica bitmap for %s: %v", ns, err)
			}
			for pid := 0; pid < types.PartitionCount; pid++ {
				byteIdx := pid / 8
				if byteIdx >= len(raw) {
					break
				}
				bit := uint(7 - pid%8)
				if raw[byteIdx]&(1<<bit) != 0 {
					np.Replicas[replicaIdx][pid] = owner
				}
			}
		}
	}
	return nil
}

func cut(s string, sep byte) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
