package wire

import (
	"encoding/binary"

	"github.com/aerospike/aerospike-client-go/types"
)

// MessageHeaderSize is the length of the 22-byte body header that follows
// the 8-byte frame header on every type=3 message (§6.1 Message body layout).
const MessageHeaderSize = 22

// Info1 flags (request-direction behavior bits).
const (
	Info1Read       = 1 << 0
	Info1GetAll     = 1 << 1
	Info1ShortQuery = 1 << 2
	Info1BatchIndex = 1 << 3
	Info1NoBinData  = 1 << 5 // read-header: no bins
	Info1ReadModeAP = 1 << 6
	Info1Compressed = 1 << 7
)

// Info2 flags.
const (
	Info2Write       = 1 << 0
	Info2Delete      = 1 << 1
	Info2Generation  = 1 << 2
	Info2GenerationGT = 1 << 3
	Info2CreateOnly  = 1 << 5
	Info2RespondAll  = 1 << 6
	Info2Durable     = 1 << 7
)

// Info3 flags.
const (
	Info3Last         = 1 << 0
	Info3CommitMaster = 1 << 1
	Info3UpdateOnly   = 1 << 3
	Info3CreateOrReplace = 1 << 4
	Info3ReplaceOnly  = 1 << 5
	Info3SCRepRead    = 1 << 6
)

// MessageHeader is the 22-byte body header of a type=3 frame (§6.1).
type MessageHeader struct {
	HeaderSize     uint8 // always 22
	Info1          uint8
	Info2          uint8
	Info3          uint8
	ResultCode     types.ResultCode
	Generation     uint32
	TTL            uint32
	TransactionTTL uint32
	NFields        uint16
	NOps           uint16
}

func (h MessageHeader) Encode(buf []byte) {
	buf[0] = MessageHeaderSize
	buf[1] = h.Info1
	buf[2] = h.Info2
	buf[3] = h.Info3
	buf[4] = 0 // unused
	buf[5] = byte(int8(h.ResultCode))
	binary.BigEndian.PutUint32(buf[6:10], h.Generation)
	binary.BigEndian.PutUint32(buf[10:14], h.TTL)
	binary.BigEndian.PutUint32(buf[14:18], h.TransactionTTL)
	binary.BigEndian.PutUint16(buf[18:20], h.NFields)
	binary.BigEndian.PutUint16(buf[20:22], h.NOps)
}

func DecodeMessageHeader(buf []byte) (MessageHeader, error) {
	if len(buf) < MessageHeaderSize {
		return MessageHeader{}, types.NewError(types.Truncated, "short message header: %d bytes", len(buf))
	}
	return MessageHeader{
		HeaderSize:     buf[0],
		Info1:          buf[1],
		Info2:          buf[2],
		Info3:          buf[3],
		ResultCode:     types.ResultCode(buf[5]),
		Generation:     binary.BigEndian.Uint32(buf[6:10]),
		TTL:            binary.BigEndian.Uint32(buf[10:14]),
		TransactionTTL: binary.BigEndian.Uint32(buf[14:18]),
		NFields:        binary.BigEndian.Uint16(buf[18:20]),
		NOps:           binary.BigEndian.Uint16(buf[20:22]),
	}, nil
}
