package wire

import (
	"encoding/binary"

	"github.com/aerospike/aerospike-client-go/types"
)

// FieldType tags a request/response field (§6.1 Fields).
type FieldType uint8

const (
	FieldNamespace   FieldType = 0
	FieldSetName     FieldType = 1
	FieldKey         FieldType = 2
	FieldDigestRIPE  FieldType = 4
	FieldBatchIndex  FieldType = 6
	FieldDigestRIPEArr FieldType = 10
	FieldTranID      FieldType = 7
	FieldScanOptions FieldType = 8
	FieldPredExp     FieldType = 150 // superseded, encode-only passthrough
	// Authentication-related field types (§6.3); values follow the
	// server's admin-plane numbering and are framed as opaque bytes.
	FieldUserName    FieldType = 105
	FieldCredential  FieldType = 106
	FieldSessionToken FieldType = 107
	FieldSessionTTL  FieldType = 108
)

// Field is one `length:u32-be | field-type:u8 | payload[length-1]` entry
// (§6.1 Fields).
type Field struct {
	Type    FieldType
	Payload []byte
}

// Size is the number of bytes this field occupies on the wire, including
// its own 4-byte length prefix.
func (f Field) Size() int { return 4 + 1 + len(f.Payload) }

func (f Field) Encode(buf []byte) int {
	binary.BigEndian.PutUint32(buf[0:4], uint32(1+len(f.Payload)))
	buf[4] = byte(f.Type)
	n := copy(buf[5:], f.Payload)
	return 5 + n
}

// DecodeField reads one field from the head of buf, returning it and the
// number of bytes consumed.
func DecodeField(buf []byte) (Field, int, error) {
	if len(buf) < 4 {
		return Field{}, 0, types.NewError(types.Truncated, "short field length prefix")
	}
	length := binary.BigEndian.Uint32(buf[0:4])
	total := 4 + int(length)
	if length == 0 || len(buf) < total {
		return Field{}, 0, types.NewError(types.Truncated, "short field body: need %d have %d", total, len(buf))
	}
	ft := FieldType(buf[4])
	payload := buf[5:total]
	return Field{Type: ft, Payload: payload}, total, nil
}

func NamespaceField(ns string) Field  { return Field{Type: FieldNamespace, Payload: []byte(ns)} }
func SetNameField(set string) Field   { return Field{Type: FieldSetName, Payload: []byte(set)} }
func DigestField(digest [types.DigestSize]byte) Field {
	return Field{Type: FieldDigestRIPE, Payload: digest[:]}
}
func BatchIndexField(index uint32) Field {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, index)
	return Field{Type: FieldBatchIndex, Payload: b}
}

// TranIDField carries a scan/query's client-assigned task id (§3 Data
// Model: Statement's "task-id: u64"), so task polling can look the job
// up by the same id afterward.
func TranIDField(taskID uint64) Field {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, taskID)
	return Field{Type: FieldTranID, Payload: b}
}

// PredExpField wraps an already-encoded predicate-expression byte
// string as an opaque passthrough payload (see FieldPredExp).
func PredExpField(payload []byte) Field {
	return Field{Type: FieldPredExp, Payload: payload}
}
