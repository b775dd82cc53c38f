// Package info implements the plaintext Info sub-protocol (§4.2, §6.2):
// cluster bootstrap, feature negotiation, task status, and UDF registration
// all ride this same line-oriented request/response exchange.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package info

import (
	"strings"
	"time"

	"github.com/aerospike/aerospike-client-go/connpool"
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

// Request sends the given names (each optionally with a tab-separated
// value, per §6.2 "name\n" or "name\tvalue\n") over conn and returns the
// parsed "name=value" response map (§4.2 State machine).
func Request(conn *connpool.Conn, timeout time.Duration, names ...string) (map[string]string, error) {
	body := strings.Join(names, "\n")
	if len(names) > 0 {
		body += "\n"
	}
	if err := conn.SetDeadline(timeout); err != nil {
		return nil, types.Wrap(types.NetworkError, err)
	}
	if err := writeFrame(conn, body); err != nil {
		return nil, err
	}
	resp, err := readFrame(conn)
	if err != nil {
		return nil, err
	}
	return parseResponse(resp)
}

func writeFrame(conn *connpool.Conn, body string) error {
	h := wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgTypeInfo, Length: uint64(len(body))}
	buf := make([]byte, wire.HeaderSize+len(body))
	h.Encode(buf)
	copy(buf[wire.HeaderSize:], body)
	if _, err := conn.Write(buf); err != nil {
		return types.Wrap(types.NetworkError, err)
	}
	return nil
}

func readFrame(conn *connpool.Conn) (string, error) {
	hdrBuf := make([]byte, wire.HeaderSize)
	if err := readFull(conn, hdrBuf); err != nil {
		return "", err
	}
	h, err := wire.DecodeHeader(hdrBuf)
	if err != nil {
		return "", err
	}
	body := make([]byte, h.Length)
	if err := readFull(conn, body); err != nil {
		return "", err
	}
	return string(body), nil
}

func readFull(conn *connpool.Conn, buf []byte) error {
	for off := 0; off < len(buf); {
		n, err := conn.Read(buf[off:])
		if err != nil {
			return types.Wrap(types.NetworkError, err)
		}
		off += n
	}
	return nil
}

// parseResponse splits "name=value;" / "name=value\n" pairs and surfaces
// server-reported failures as InfoFailed (§4.2: "Errors starting with
// `ERROR:` are surfaced as `InfoFailed{code, text}`").
func parseResponse(body string) (map[string]string, error) {
	body = strings.TrimRight(body, "\n")
	out := make(map[string]string)
	if body == "" {
		return out, nil
	}
	for _, line := range strings.Split(body, "\n") {
		for _, pair := range strings.Split(line, ";") {
			if pair == "" {
				continue
			}
			if strings.HasPrefix(pair, "ERROR:") {
				return nil, newInfoFailed(pair)
			}
			name, value := splitOnce(pair, '=')
			out[name] = value
		}
	}
	return out, nil
}

func splitOnce(s string, sep byte) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// InfoFailed wraps a server-reported `ERROR:<code>:<text>` response
// (§4.2 State machine).
type InfoFailed struct {
	Code int
	Text string
}

func (e *InfoFailed) Error() string {
	return "info command failed: " + e.Text
}

func newInfoFailed(line string) error {
	// ERROR:<code>:<text> or bare ERROR:<text>
	rest := strings.TrimPrefix(line, "ERROR:")
	code := 0
	text := rest
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		if n, err := parseInt(rest[:i]); err == nil {
			code = n
			text = rest[i+1:]
		}
	}
	return types.Wrap(types.GenericError, &InfoFailed{Code: code, Text: text})
}

func parseInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, types.NewError(types.ParameterError, "not a number: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
