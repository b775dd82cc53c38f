package batch

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/connpool"
	"github.com/aerospike/aerospike-client-go/msgpack"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

func encodeScanRecord(ns, set string, digest [types.DigestSize]byte, binName string, v types.Value, last bool) []byte {
	enc, pt, err := wire.EncodeOpValue(v, msgpack.BlobAsBin)
	if err != nil {
		panic(err)
	}
	op := wire.Op{Type: wire.OpRead, BinName: binName, Particle: pt, Value: enc}
	fields := []wire.Field{wire.NamespaceField(ns), wire.SetNameField(set), wire.DigestField(digest)}

	size := wire.MessageHeaderSize + op.Size()
	for _, f := range fields {
		size += f.Size()
	}
	buf := make([]byte, size)

	var info3 uint8
	if last {
		info3 = wire.Info3Last
	}
	mh := wire.MessageHeader{Info3: info3, NFields: uint16(len(fields)), NOps: 1}
	mh.Encode(buf[:wire.MessageHeaderSize])

	n := wire.MessageHeaderSize
	for _, f := range fields {
		n += f.Encode(buf[n:])
	}
	n += op.Encode(buf[n:])
	return buf
}

func encodeScanTerminator() []byte {
	buf := make([]byte, wire.MessageHeaderSize)
	wire.MessageHeader{Info3: wire.Info3Last}.Encode(buf)
	return buf
}

func fakeScanNode(t *testing.T, name string, body []byte) *cluster.Node {
	t.Helper()
	dial := func(addr string, timeout time.Duration) (net.Conn, error) {
		client, server := net.Pipe()
		go serveScan(server, body)
		return client, nil
	}
	pool := connpool.NewPool("pipe", 0, 4, 0, time.Second, dial)
	return cluster.NewNode(name, "127.0.0.1", 3000, pool, nil)
}

func serveScan(conn net.Conn, body []byte) {
	defer conn.Close()
	hdrBuf := make([]byte, wire.HeaderSize)
	if _, err := io.ReadFull(conn, hdrBuf); err != nil {
		return
	}
	h, err := wire.DecodeHeader(hdrBuf)
	if err != nil {
		return
	}
	reqBody := make([]byte, h.Length)
	if _, err := io.ReadFull(conn, reqBody); err != nil {
		return
	}

	resp := wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgTypeMessage, Length: uint64(len(body))}
	buf := make([]byte, wire.HeaderSize+len(body))
	resp.Encode(buf)
	copy(buf[wire.HeaderSize:], body)
	conn.Write(buf)
}

func clusterOfNodes(nodes ...*cluster.Node) *cluster.Cluster {
	nm := cluster.NodeMap{}
	for _, n := range nodes {
		nm[n.Name()] = n
	}
	return cluster.NewFromMap(&cluster.ClusterMap{Nodes: nm})
}

func TestExecuteStreamsRecordsThenClosesCleanly(t *testing.T) {
	var d1, d2 [types.DigestSize]byte
	d1[0], d2[0] = 1, 2
	body := append(
		encodeScanRecord("test", "set", d1, "bin", types.IntegerValue(1), false),
		append(encodeScanRecord("test", "set", d2, "bin", types.IntegerValue(2), false), encodeScanTerminator()...)...,
	)
	n := fakeScanNode(t, "A", body)
	cl := clusterOfNodes(n)

	rs := Execute(cl, policy.DefaultQueryPolicy(), types.Statement{Namespace: "test", Set: "set"})

	var got []*types.Record
	for rec := range rs.Records() {
		got = append(got, rec)
	}
	if err := rs.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
}

func TestExecuteWithNoActiveNodesFailsTheRecordSet(t *testing.T) {
	cl := clusterOfNodes()
	rs := Execute(cl, policy.DefaultQueryPolicy(), types.Statement{Namespace: "test"})

	for range rs.Records() {
		t.Fatalf("expected no records from an empty cluster")
	}
	if err := rs.Err(); err == nil {
		t.Fatalf("expected a cluster-empty error")
	}
}

func TestNewEqualFilterRoundTripsBinNameAndValue(t *testing.T) {
	f, err := NewEqualFilter("bin", types.IntegerValue(42))
	if err != nil {
		t.Fatalf("NewEqualFilter: %v", err)
	}
	if len(f.Encoded) == 0 {
		t.Fatalf("Encoded is empty")
	}

	nameLen := int(f.Encoded[0])
	if got := string(f.Encoded[1 : 1+nameLen]); got != "bin" {
		t.Errorf("binName = %q, want %q", got, "bin")
	}
	wantVal, wantPT, err := wire.EncodeOpValue(types.IntegerValue(42), msgpack.BlobAsBin)
	if err != nil {
		t.Fatalf("EncodeOpValue: %v", err)
	}
	if got := f.Encoded[1+nameLen]; got != byte(wantPT) {
		t.Errorf("particle type = %d, want %d", got, wantPT)
	}
	if got := f.Encoded[2+nameLen:]; string(got) != string(wantVal) {
		t.Errorf("value bytes = %x, want %x", got, wantVal)
	}

	stmt := types.Statement{Namespace: "test", Filter: f}
	if n := statementSize(stmt); n <= wire.MessageHeaderSize {
		t.Errorf("statementSize = %d, want room for the namespace/tranid/filter fields", n)
	}
}

func TestExecuteCloseStopsConsumingBeforeTerminator(t *testing.T) {
	var d1 [types.DigestSize]byte
	d1[0] = 1
	body := encodeScanRecord("test", "set", d1, "bin", types.IntegerValue(1), false)
	n := fakeScanNode(t, "A", body)
	cl := clusterOfNodes(n)

	p := policy.DefaultQueryPolicy()
	p.RecordQueueSize = 1
	rs := Execute(cl, p, types.Statement{Namespace: "test", Set: "set"})

	select {
	case <-rs.Records():
	case <-time.After(time.Second):
		t.Fatalf("never received the one streamed record")
	}
	rs.Close()
}
