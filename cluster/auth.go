package cluster

import (
	"encoding/binary"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aerospike/aerospike-client-go/connpool"
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

// Admin command opcodes (§6.3 Authentication: "Commands: Login,
// Authenticate-Session"). The admin message body beyond these opcodes and
// their fields is out of this core's scope (§6.3) — only enough framing
// is implemented to carry a session token back to the connection pool.
const (
	adminCmdAuthenticate byte = 0
	adminCmdLogin        byte = 20

	adminHeaderSize byte = 2
)

// fixedBcryptSalt is the salt aerospike-server expects internal-auth
// passwords hashed with before they ever reach the wire (§6.3: "Internal
// auth uses bcrypt(password, fixed-salt)").
const fixedBcryptSalt = "$2a$10$7EqJtq98hPqEX7fNZaFWoO"

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(fixedBcryptSalt+password), bcrypt.DefaultCost)
	return string(hashed), err
}

// sessionTTLSafetyMargin is subtracted from the server-reported TTL so a
// connection stops reusing a token just before the server would reject it
// (§4.4 Auth sessions).
const sessionTTLSafetyMargin = 60 * time.Second

// Session is an opaque, reusable login result (§4.4 Auth sessions,
// §6.3: "the core treats the returned session-token opaquely").
type Session struct {
	Token     []byte
	ExpiresAt time.Time
}

func (s *Session) Expired() bool {
	return s == nil || time.Now().After(s.ExpiresAt.Add(-sessionTTLSafetyMargin))
}

// login performs the internal-auth Login exchange over conn and returns
// the resulting Session. A SECURITY_NOT_ENABLED response is treated as
// success with no session token (§4.4 Handshake).
func login(conn *connpool.Conn, user, password string, timeout time.Duration) (*Session, error) {
	hashed, err := hashPassword(password)
	if err != nil {
		return nil, types.Wrap(types.GenericError, err)
	}
	fields := []wire.Field{
		{Type: wire.FieldUserName, Payload: []byte(user)},
		{Type: wire.FieldCredential, Payload: []byte(hashed)},
	}
	resultCode, respFields, err := sendAdmin(conn, adminCmdLogin, fields, timeout)
	if err != nil {
		return nil, err
	}
	if resultCode == types.SecurityNotEnabled {
		return nil, nil
	}
	if resultCode != types.OK {
		return nil, types.NewError(resultCode, "login failed")
	}
	sess := &Session{ExpiresAt: time.Now().Add(24 * time.Hour)}
	for _, f := range respFields {
		switch f.Type {
		case wire.FieldSessionToken:
			sess.Token = append([]byte(nil), f.Payload...)
		case wire.FieldSessionTTL:
			if len(f.Payload) == 4 {
				secs := binary.BigEndian.Uint32(f.Payload)
				sess.ExpiresAt = time.Now().Add(time.Duration(secs) * time.Second)
			}
		}
	}
	return sess, nil
}

// authenticateSession presents a previously issued session token on a
// freshly dialed connection, avoiding a full password re-hash per socket
// (§4.4 Auth sessions).
func authenticateSession(conn *connpool.Conn, user string, sess *Session, timeout time.Duration) error {
	fields := []wire.Field{
		{Type: wire.FieldUserName, Payload: []byte(user)},
		{Type: wire.FieldSessionToken, Payload: sess.Token},
	}
	resultCode, _, err := sendAdmin(conn, adminCmdAuthenticate, fields, timeout)
	if err != nil {
		return err
	}
	if resultCode == types.SecurityNotEnabled || resultCode == types.OK {
		return nil
	}
	return types.NewError(resultCode, "session authentication failed")
}

// sendAdmin frames one admin-plane request/response (§6.1 Fields,
// §6.3: "message-type=2") and returns the response's result code and
// fields.
func sendAdmin(conn *connpool.Conn, command byte, fields []wire.Field, timeout time.Duration) (types.ResultCode, []wire.Field, error) {
	if err := conn.SetDeadline(timeout); err != nil {
		return 0, nil, types.Wrap(types.NetworkError, err)
	}
	body := make([]byte, 2, 64)
	body[0] = adminHeaderSize
	body[1] = command
	for _, f := range fields {
		fb := make([]byte, f.Size())
		f.Encode(fb)
		body = append(body, fb...)
	}
	h := wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgTypeAdmin, Length: uint64(len(body))}
	frame := make([]byte, wire.HeaderSize+len(body))
	h.Encode(frame)
	copy(frame[wire.HeaderSize:], body)
	if _, err := conn.Write(frame); err != nil {
		return 0, nil, types.Wrap(types.NetworkError, err)
	}

	hdrBuf := make([]byte, wire.HeaderSize)
	if err := readFullConn(conn, hdrBuf); err != nil {
		return 0, nil, err
	}
	respHeader, err := wire.DecodeHeader(hdrBuf)
	if err != nil {
		return 0, nil, err
	}
	respBody := make([]byte, respHeader.Length)
	if err := readFullConn(conn, respBody); err != nil {
		return 0, nil, err
	}
	if len(respBody) < 2 {
		return 0, nil, types.NewError(types.Truncated, "short admin response")
	}
	resultCode := types.ResultCode(respBody[1])
	var respFields []wire.Field
	off := int(respBody[0])
	if off < 2 {
		off = 2
	}
	for off < len(respBody) {
		f, n, err := wire.DecodeField(respBody[off:])
		if err != nil {
			break
		}
		respFields = append(respFields, f)
		off += n
	}
	return resultCode, respFields, nil
}

func readFullConn(conn *connpool.Conn, buf []byte) error {
	for off := 0; off < len(buf); {
		n, err := conn.Read(buf[off:])
		if err != nil {
			return types.Wrap(types.NetworkError, err)
		}
		off += n
	}
	return nil
}
