package command

import (
	"testing"

	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

func TestEncodeKeyFieldsSizeMatchesActualBytes(t *testing.T) {
	var digest [types.DigestSize]byte
	digest[0] = 7

	size := keyFieldsSize("test", "myset")
	buf := make([]byte, size)
	n, nFields := encodeKeyFields(buf, "test", "myset", digest)

	if n != size {
		t.Errorf("encodeKeyFields wrote %d bytes, keyFieldsSize predicted %d", n, size)
	}
	if nFields != 3 {
		t.Errorf("expected 3 fields (namespace, set, digest), got %d", nFields)
	}
}

func TestBuildFrameFramesRequestCorrectly(t *testing.T) {
	var digest [types.DigestSize]byte
	cmd := &Command{
		Namespace: "test",
		Set:       "myset",
		Digest:    digest,
		Info1:     wire.Info1Read,
		BodySize:  keyFieldsSize("test", "myset"),
		Build: func(buf []byte) (n, nFields, nOps int, err error) {
			n, nFields = encodeKeyFields(buf, "test", "myset", digest)
			return n, nFields, 0, nil
		},
	}

	buf := scratch.Acquire()
	defer scratch.Release(buf)

	frame, err := buildFrame(buf, cmd)
	if err != nil {
		t.Fatalf("buildFrame: %v", err)
	}

	h, err := wire.DecodeHeader(frame)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if h.Version != wire.ProtocolVersion || h.Type != wire.MsgTypeMessage {
		t.Errorf("bad frame header: %+v", h)
	}
	if int(h.Length) != len(frame)-wire.HeaderSize {
		t.Errorf("frame header length %d does not match body length %d", h.Length, len(frame)-wire.HeaderSize)
	}

	mh, err := wire.DecodeMessageHeader(frame[wire.HeaderSize:])
	if err != nil {
		t.Fatalf("DecodeMessageHeader: %v", err)
	}
	if mh.Info1 != wire.Info1Read {
		t.Errorf("Info1 = %d, want %d", mh.Info1, wire.Info1Read)
	}
	if mh.NFields != 3 || mh.NOps != 0 {
		t.Errorf("NFields/NOps = %d/%d, want 3/0", mh.NFields, mh.NOps)
	}
}

func TestIsProtocolCleanClassifiesApplicationLevelCodes(t *testing.T) {
	clean := []types.ResultCode{types.KeyNotFound, types.BinNotFound, types.GenerationError, types.KeyExists, types.FilteredOut}
	for _, c := range clean {
		if !isProtocolClean(c) {
			t.Errorf("%s should leave the connection reusable", c)
		}
	}
	if isProtocolClean(types.ServerNotAvailable) {
		t.Error("SERVER_NOT_AVAILABLE should not be treated as protocol-clean")
	}
}
