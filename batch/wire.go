package batch

import (
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

// requestSize returns the exact byte length encodeRequest will write for
// entries sharing one bin list, so the caller can size its scratch buffer
// once instead of growing mid-encode.
func requestSize(entries []entry, binNames []string) int {
	n := wire.MessageHeaderSize
	for _, name := range binNames {
		n += wire.Op{Type: wire.OpRead, BinName: name}.Size()
	}
	digestFieldSize := wire.Field{Type: wire.FieldDigestRIPE, Payload: make([]byte, types.DigestSize)}.Size()
	for _, e := range entries {
		n += wire.BatchIndexField(0).Size()
		n += wire.Field{Type: wire.FieldNamespace, Payload: []byte(e.key.Namespace())}.Size()
		n += wire.Field{Type: wire.FieldSetName, Payload: []byte(e.key.Set())}.Size()
		n += digestFieldSize
	}
	return n
}

// encodeRequest frames one batch-index request body for a single node
// group (§4.6 Execution): a shared envelope carrying the common bin list,
// followed by one (batch-index, namespace, set, digest) field quartet per
// entry — the "run-length encoded list" spec.md describes, self-delimited
// by each wire.Field's own length prefix rather than a separate count.
func encodeRequest(buf []byte, entries []entry, binNames []string) int {
	info1 := uint8(wire.Info1Read | wire.Info1BatchIndex)
	if len(binNames) == 0 {
		info1 |= wire.Info1GetAll
	}
	mh := wire.MessageHeader{Info1: info1, NFields: 0, NOps: uint16(len(binNames))}
	mh.Encode(buf)
	n := wire.MessageHeaderSize
	for _, name := range binNames {
		op := wire.Op{Type: wire.OpRead, BinName: name}
		n += op.Encode(buf[n:])
	}
	for _, e := range entries {
		n += wire.BatchIndexField(uint32(e.offset)).Encode(buf[n:])
		n += wire.NamespaceField(e.key.Namespace()).Encode(buf[n:])
		n += wire.SetNameField(e.key.Set()).Encode(buf[n:])
		n += wire.DigestField(e.key.Digest()).Encode(buf[n:])
	}
	return n
}
