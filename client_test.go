package aerospike

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

// encodeGetResponse builds the single-sub-message response a node sends
// back for a Get(binName) command.
func encodeGetResponse(binName string, v types.Value) []byte {
	enc, pt, err := wire.EncodeOpValue(v, msgpack.BlobAsBin)
	if err != nil {
		panic(err)
	}
	op := wire.Op{Type: wire.OpRead, BinName: binName, Particle: pt, Value: enc}
	buf := make([]byte, wire.MessageHeaderSize+op.Size())
	mh := wire.MessageHeader{ResultCode: types.OK, NOps: 1, Generation: 1, TTL: 10}
	mh.Encode(buf[:wire.MessageHeaderSize])
	op.Encode(buf[wire.MessageHeaderSize:])
	return buf
}

func fakeGetNode(t *testing.T, body []byte) *cluster.Node {
	t.Helper()
	dial := func(addr string, timeout time.Duration) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			defer server.Close()
			hdrBuf := make([]byte, wire.HeaderSize)
			if _, err := io.ReadFull(server, hdrBuf); err != nil {
				return
			}
			h, err := wire.DecodeHeader(hdrBuf)
			if err != nil {
				return
			}
			reqBody := make([]byte, h.Length)
			if _, err := io.ReadFull(server, reqBody); err != nil {
				return
			}
			resp := wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgTypeMessage, Length: uint64(len(body))}
			out := make([]byte, wire.HeaderSize+len(body))
			resp.Encode(out)
			copy(out[wire.HeaderSize:], body)
			server.Write(out)
		}()
		return client, nil
	}
	pool := connpool.NewPool("pipe", 0, 4, 0, time.Second, dial)
	return cluster.NewNode("A", "127.0.0.1", 3000, pool, nil)
}

func clientOverNode(n *cluster.Node) *Client {
	nm := cluster.NodeMap{n.Name(): n}
	np := &cluster.NamespacePartitions{Replicas: make([][types.PartitionCount]*cluster.Node, 1)}
	for pid := range np.Replicas[0] {
		np.Replicas[0][pid] = n
	}
	cl := cluster.NewFromMap(&cluster.ClusterMap{Nodes: nm, Partitions: map[string]*cluster.NamespacePartitions{"test": np}})
	return &Client{cluster: cl}
}

func TestClientGetReturnsRecordFromNode(t *testing.T) {
	n := fakeGetNode(t, encodeGetResponse("bin", types.IntegerValue(42)))
	c := clientOverNode(n)

	key, err := NewKey("test", "set", "k1")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}

	rec, err := c.Get(policy.DefaultPolicy(), key, "bin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Bins["bin"].Integer() != 42 {
		t.Errorf("bin value = %v, want 42", rec.Bins["bin"])
	}
}

func TestClientQueryStreamsRecordsFromScanAll(t *testing.T) {
	var d1 [types.DigestSize]byte
	d1[0] = 9
	op := wire.Op{Type: wire.OpRead, BinName: "bin"}
	enc, pt, _ := wire.EncodeOpValue(types.IntegerValue(1), msgpack.BlobAsBin)
	op.Particle, op.Value = pt, enc
	fields := []wire.Field{wire.NamespaceField("test"), wire.SetNameField("set"), wire.DigestField(d1)}
	size := wire.MessageHeaderSize + op.Size()
	for _, f := range fields {
		size += f.Size()
	}
	buf := make([]byte, size)
	mh := wire.MessageHeader{Info3: wire.Info3Last, NFields: uint16(len(fields)), NOps: 1}
	mh.Encode(buf[:wire.MessageHeaderSize])
	off := wire.MessageHeaderSize
	for _, f := range fields {
		off += f.Encode(buf[off:])
	}
	op.Encode(buf[off:])

	n := fakeGetNode(t, buf)
	c := clientOverNode(n)

	rs := c.ScanAll(policy.DefaultQueryPolicy(), "test", "set")
	var got int
	for range rs.Records() {
		got++
	}
	if err := rs.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if got != 1 {
		t.Errorf("got %d records, want 1", got)
	}
}
