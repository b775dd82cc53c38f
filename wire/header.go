// Package wire implements the shared 8-byte frame header and the field and
// operation sub-encodings used by both the data-command protocol (message
// type 3) and the Info sub-protocol (message type 1), per §6.1 and §6.2.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import (
	"encoding/binary"

	"github.com/aerospike/aerospike-client-go/types"
)

// ProtocolVersion is the only version this core speaks (§6.1 header).
const ProtocolVersion = 2

// Message types tagging the 8-byte frame header (§6.1, §6.2, §6.3).
const (
	MsgTypeInfo          = 1
	MsgTypeMessage       = 3 // data commands: read/write/operate/batch
	MsgTypeAdmin         = 2
	MsgTypeCompressed    = 4
)

// HeaderSize is the length in bytes of the frame header itself.
const HeaderSize = 8

// Header is the 8-byte frame preamble: version:u8=2 | type:u8 | length:u48-be
// (§6.1). Length counts only the bytes following the header.
type Header struct {
	Version uint8
	Type    uint8
	Length  uint64 // 48 bits significant
}

// Encode writes h into the first HeaderSize bytes of buf, which must be at
// least that long.
func (h Header) Encode(buf []byte) {
	buf[0] = h.Version
	buf[1] = h.Type
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], h.Length)
	copy(buf[2:8], lenBuf[2:8])
}

// DecodeHeader parses the 8-byte frame preamble from buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, types.NewError(types.Truncated, "short frame header: %d bytes", len(buf))
	}
	var lenBuf [8]byte
	copy(lenBuf[2:8], buf[2:8])
	return Header{
		Version: buf[0],
		Type:    buf[1],
		Length:  binary.BigEndian.Uint64(lenBuf[:]),
	}, nil
}
