package wire_test

import (
	"testing"

	"github.com/aerospike/aerospike-client-go/msgpack"
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

func TestHeaderRoundTrip(t *testing.T) {
	in := wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgTypeMessage, Length: 1<<40 - 1}
	buf := make([]byte, wire.HeaderSize)
	in.Encode(buf)

	out, err := wire.DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestDecodeHeaderShort(t *testing.T) {
	if _, err := wire.DecodeHeader(make([]byte, wire.HeaderSize-1)); err == nil {
		t.Fatal("expected error on short header buffer")
	}
}

func TestFieldRoundTrip(t *testing.T) {
	cases := []wire.Field{
		wire.NamespaceField("test"),
		wire.SetNameField(""),
		wire.SetNameField("myset"),
		wire.DigestField([types.DigestSize]byte{1, 2, 3}),
		wire.BatchIndexField(42),
	}
	for _, f := range cases {
		buf := make([]byte, f.Size())
		n := f.Encode(buf)
		if n != f.Size() {
			t.Fatalf("Encode returned %d, Size() reports %d", n, f.Size())
		}
		out, consumed, err := wire.DecodeField(buf)
		if err != nil {
			t.Fatalf("DecodeField: %v", err)
		}
		if consumed != n {
			t.Errorf("consumed %d bytes, encoded %d", consumed, n)
		}
		if out.Type != f.Type || string(out.Payload) != string(f.Payload) {
			t.Errorf("round trip mismatch: got %+v, want %+v", out, f)
		}
	}
}

func TestOpRoundTrip(t *testing.T) {
	op := wire.Op{Type: wire.OpWrite, BinName: "bin1", Particle: types.ParticleInteger, Value: []byte{0, 0, 0, 0, 0, 0, 0, 7}}
	buf := make([]byte, op.Size())
	n := op.Encode(buf)
	if n != op.Size() {
		t.Fatalf("Encode returned %d, Size() reports %d", n, op.Size())
	}
	out, consumed, err := wire.DecodeOp(buf)
	if err != nil {
		t.Fatalf("DecodeOp: %v", err)
	}
	if consumed != n || out.Type != op.Type || out.BinName != op.BinName || out.Particle != op.Particle {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, op)
	}
	v, err := wire.DecodeOpValue(out)
	if err != nil {
		t.Fatalf("DecodeOpValue: %v", err)
	}
	if v.Integer() != 7 {
		t.Errorf("decoded value = %d, want 7", v.Integer())
	}
}

func TestEncodeOpValueBlobFamily(t *testing.T) {
	blob := types.BlobValue([]byte{0xff, 0x00, 0xfe, 'x'}) // non-UTF-8 on purpose

	encBin, ptBin, err := wire.EncodeOpValue(blob, msgpack.BlobAsBin)
	if err != nil {
		t.Fatalf("EncodeOpValue(BlobAsBin): %v", err)
	}
	if ptBin != types.ParticleBlob {
		t.Errorf("BlobAsBin particle = %v, want ParticleBlob", ptBin)
	}
	out, err := wire.DecodeOpValue(wire.Op{Particle: ptBin, Value: encBin})
	if err != nil {
		t.Fatalf("DecodeOpValue(BlobAsBin): %v", err)
	}
	if out.Kind() != types.KindBlob || !out.Equal(blob) {
		t.Errorf("BlobAsBin round trip = %#v, want %#v", out, blob)
	}

	encStr, ptStr, err := wire.EncodeOpValue(blob, msgpack.BlobAsString)
	if err != nil {
		t.Fatalf("EncodeOpValue(BlobAsString): %v", err)
	}
	if ptStr != types.ParticleString {
		t.Errorf("BlobAsString particle = %v, want ParticleString", ptStr)
	}
	// The legacy family has no way to recover blob identity: the decode
	// side trusts the particle tag it was given, same as a real string
	// would. This is the documented historical lossiness (§4.1), not a bug.
	out, err = wire.DecodeOpValue(wire.Op{Particle: ptStr, Value: encStr})
	if err != nil {
		t.Fatalf("DecodeOpValue(BlobAsString): %v", err)
	}
	if out.Kind() != types.KindString || out.String() != string(blob.Blob()) {
		t.Errorf("BlobAsString round trip = %#v, want string %q", out, blob.Blob())
	}
}

func TestEncodeOpValueNestedBlobAlwaysRoundTrips(t *testing.T) {
	blob := types.BlobValue([]byte{0xff, 0x00, 0xfe, 'x'}) // non-UTF-8 on purpose
	list := types.ListValue([]types.Value{blob, types.StringValue("x")})

	for _, family := range []msgpack.BlobFamily{msgpack.BlobAsString, msgpack.BlobAsBin} {
		enc, pt, err := wire.EncodeOpValue(list, family)
		if err != nil {
			t.Fatalf("EncodeOpValue(list, %v): %v", family, err)
		}
		out, err := wire.DecodeOpValue(wire.Op{Particle: pt, Value: enc})
		if err != nil {
			t.Fatalf("DecodeOpValue(list, %v): %v", family, err)
		}
		if !out.Equal(list) {
			t.Errorf("nested blob round trip under family %v = %#v, want %#v", family, out, list)
		}
	}
}

func TestMessageHeaderRoundTrip(t *testing.T) {
	in := wire.MessageHeader{
		Info1: wire.Info1Read, Info2: wire.Info2Write, Info3: wire.Info3Last,
		ResultCode: types.KeyNotFound, Generation: 5, TTL: 100, NFields: 3, NOps: 2,
	}
	buf := make([]byte, wire.MessageHeaderSize)
	in.Encode(buf)
	out, err := wire.DecodeMessageHeader(buf)
	if err != nil {
		t.Fatalf("DecodeMessageHeader: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}
