package command

import (
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

// keyFieldsSize returns the wire footprint of the three standard key
// fields (§6.1 Fields: namespace, set, digest) for sizing Command.BodySize.
func keyFieldsSize(namespace, set string) int {
	return wire.Field{Type: wire.FieldNamespace, Payload: []byte(namespace)}.Size() +
		wire.Field{Type: wire.FieldSetName, Payload: []byte(set)}.Size() +
		wire.Field{Type: wire.FieldDigestRIPE, Payload: make([]byte, types.DigestSize)}.Size()
}

// encodeKeyFields writes the namespace/set/digest field triple at the
// start of buf and returns the number of bytes written and fields emitted.
func encodeKeyFields(buf []byte, namespace, set string, digest [types.DigestSize]byte) (n, nFields int) {
	n += wire.NamespaceField(namespace).Encode(buf[n:])
	nFields++
	n += wire.SetNameField(set).Encode(buf[n:])
	nFields++
	n += wire.DigestField(digest).Encode(buf[n:])
	nFields++
	return n, nFields
}
