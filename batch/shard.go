// Package batch implements the batch/multi-record command engine (§4.6):
// sharding an ordered key list by owning node, dispatching one concurrent
// request per node group, and reconstructing results in caller order.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package batch

import (
	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
)

// entry is one key's slot within its owner node's group: the key itself
// plus its original position in the caller's input slice (the "offset
// list", §4.6 Sharding), used both to frame the FieldBatchIndex request
// field and to reassemble the positional result slice on return.
type entry struct {
	offset int
	key    *types.Key
}

// group is one node's share of a sharded batch: every entry this node
// owns, in caller order.
type group struct {
	node    *cluster.Node
	entries []entry
}

// shard computes owner = route(key) for every key and buckets them into
// per-node groups (§4.6 Sharding). Keys whose owner cannot be resolved are
// returned in errs, keyed by their original offset, rather than failing
// the whole batch; Get stores each such error in that key's own result
// slot without consulting BatchPolicy.AllowPartialResults.
func shard(cm *cluster.ClusterMap, keys []*types.Key, readMode policy.ReadModeSC) (groups []*group, errs map[int]error) {
	byNode := make(map[*cluster.Node]*group)
	errs = make(map[int]error)
	for i, k := range keys {
		n, err := cluster.Route(cm, k.Namespace(), k.Digest(), false, readMode, 0)
		if err != nil {
			errs[i] = err
			continue
		}
		g, ok := byNode[n]
		if !ok {
			g = &group{node: n}
			byNode[n] = g
			groups = append(groups, g)
		}
		g.entries = append(g.entries, entry{offset: i, key: k})
	}
	return groups, errs
}
