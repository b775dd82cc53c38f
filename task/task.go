// Package task polls a long-running server job (secondary-index build,
// UDF register, background scan/query execute) to completion by querying
// every cluster node's Info sub-protocol (§4.7 Task Polling).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package task

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/info"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
)

// Status is one poll round's verdict for a task.
type Status int

const (
	Complete Status = iota
	InProgress
)

var group singleflight.Group

// Wait polls tid across every active node in cl until every node reports
// completion (§4.7: "a task is COMPLETE only when every node reports
// completion"), p.Timeout elapses, or a poll round returns a fatal error.
func Wait(cl *cluster.Cluster, p *policy.TaskPolicy, tid uint64) error {
	var deadline time.Time
	if p.Timeout > 0 {
		deadline = time.Now().Add(p.Timeout)
	}
	interval := p.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	for {
		status, err := pollOnce(cl, p, tid)
		if err != nil {
			return err
		}
		if status == Complete {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return types.NewError(types.ClientTimeout, "task %d did not complete before deadline", tid)
		}
		time.Sleep(interval)
	}
}

// pollOnce runs one round across every active node, deduplicating
// concurrent callers polling the same tid through singleflight rather
// than each issuing their own round of Info commands.
func pollOnce(cl *cluster.Cluster, p *policy.TaskPolicy, tid uint64) (Status, error) {
	v, err, _ := group.Do(fmt.Sprintf("%d", tid), func() (interface{}, error) {
		return pollNodes(cl, p, tid)
	})
	if err != nil {
		return InProgress, err
	}
	return v.(Status), nil
}

// pollNodes queries every active node for tid. Any node reporting
// in-progress makes the round IN_PROGRESS; the task is COMPLETE only once
// every node agrees (§4.7).
func pollNodes(cl *cluster.Cluster, p *policy.TaskPolicy, tid uint64) (Status, error) {
	nodes := cl.Get().Nodes.Active()
	if len(nodes) == 0 {
		return InProgress, types.NewClusterEmptyError()
	}

	for _, n := range nodes {
		status, err := pollNode(n, tid, p.Timeout == 0)
		if err != nil {
			return InProgress, err
		}
		if status == InProgress {
			return InProgress, nil
		}
	}
	return Complete, nil
}

// pollNode queries one node's task status. notFoundMeansComplete
// implements §4.7's NOT_FOUND rule: treated as complete only when the
// overall poll has no deadline (the server forgets completed jobs
// quickly), and as in-progress otherwise.
func pollNode(n *cluster.Node, tid uint64, notFoundMeansComplete bool) (Status, error) {
	conn, err := n.GetConnection()
	if err != nil {
		return InProgress, types.Wrap(types.NoAvailableConnections, err)
	}

	resp, err := info.Request(conn, 5*time.Second, fmt.Sprintf("task-status:tid=%d", tid))
	if err != nil {
		var failed *info.InfoFailed
		if errors.As(err, &failed) && failed.Code == int(types.KeyNotFound) {
			n.PutConnection(conn, true)
			if notFoundMeansComplete {
				return Complete, nil
			}
			return InProgress, nil
		}
		n.PutConnection(conn, false)
		return InProgress, err
	}
	n.PutConnection(conn, true)

	switch resp["status"] {
	case "done", "complete":
		return Complete, nil
	default:
		return InProgress, nil
	}
}
