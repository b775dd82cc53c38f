package task_test

import (
	"net"
	"testing"
	"time"

	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/connpool"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/task"
	"github.com/aerospike/aerospike-client-go/wire"
)

// fakeNode builds a single-connection node backed by a net.Pipe whose
// server side answers every Info request with body.
func fakeNode(t *testing.T, name string, body string) *cluster.Node {
	t.Helper()
	dial := func(addr string, timeout time.Duration) (net.Conn, error) {
		client, server := net.Pipe()
		go serveInfo(server, body)
		return client, nil
	}
	pool := connpool.NewPool("pipe", 0, 4, 0, time.Second, dial)
	return cluster.NewNode(name, "127.0.0.1", 3000, pool, nil)
}

func serveInfo(conn net.Conn, body string) {
	defer conn.Close()
	hdrBuf := make([]byte, wire.HeaderSize)
	if _, err := readFull(conn, hdrBuf); err != nil {
		return
	}
	h, err := wire.DecodeHeader(hdrBuf)
	if err != nil {
		return
	}
	reqBody := make([]byte, h.Length)
	if _, err := readFull(conn, reqBody); err != nil {
		return
	}

	resp := wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgTypeInfo, Length: uint64(len(body))}
	buf := make([]byte, wire.HeaderSize+len(body))
	resp.Encode(buf)
	copy(buf[wire.HeaderSize:], body)
	conn.Write(buf)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func clusterOf(nodes ...*cluster.Node) *cluster.Cluster {
	nm := cluster.NodeMap{}
	for _, n := range nodes {
		nm[n.Name()] = n
	}
	return cluster.NewFromMap(&cluster.ClusterMap{Nodes: nm})
}

func TestWaitReturnsOnceEveryNodeReportsDone(t *testing.T) {
	a := fakeNode(t, "A", "status=done\n")
	b := fakeNode(t, "B", "status=done\n")
	cl := clusterOf(a, b)

	p := &policy.TaskPolicy{Timeout: time.Second, PollInterval: 10 * time.Millisecond}
	if err := task.Wait(cl, p, 42); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestWaitTimesOutWhileAnyNodeInProgress(t *testing.T) {
	a := fakeNode(t, "A", "status=done\n")
	b := fakeNode(t, "B", "status=in-progress\n")
	cl := clusterOf(a, b)

	p := &policy.TaskPolicy{Timeout: 30 * time.Millisecond, PollInterval: 5 * time.Millisecond}
	if err := task.Wait(cl, p, 42); err == nil {
		t.Fatalf("Wait should time out while node B is still in progress")
	}
}

func TestWaitTreatsNotFoundAsCompleteWithNoDeadline(t *testing.T) {
	a := fakeNode(t, "A", "ERROR:2:not found\n")
	cl := clusterOf(a)

	p := &policy.TaskPolicy{} // Timeout == 0
	done := make(chan error, 1)
	go func() { done <- task.Wait(cl, p, 42) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait never returned for a NOT_FOUND task with no deadline")
	}
}
