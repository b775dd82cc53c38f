// Package cmn holds the small correlation-ID helpers shared across the
// client: background-task IDs (§4.7 Task polling) and tie-breaker
// suffixes for disambiguating two IDs minted in the same tick.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync/atomic"

	"github.com/teris-io/shortid"
)

const (
	// Alphabet for generating task IDs similar to shortid.DEFAULT_ABC.
	// NOTE: len(taskABC) > 0x3f - see GenTie().
	taskABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"
)

var (
	sid  *shortid.Shortid
	rtie int32
)

func init() {
	sid = shortid.MustNew(4 /*worker*/, taskABC, 0xa5)
}

// NewTaskID returns a random u64 suitable for Statement.TaskID (§3
// Statement: "task-id is randomly assigned and uniquely identifies a
// scan/query/execute job server-side"). Falls back to math/rand only if
// the system CSPRNG is unavailable, matching the teacher's own tolerance
// for a degraded-but-functioning ID source.
func NewTaskID() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return mrand.Uint64()
	}
	return binary.BigEndian.Uint64(b[:])
}

// GenTaskTag generates a unique, human-readable correlation tag for
// async command bookkeeping and log lines (§5 Async) — never placed on
// the wire. Equivalent in role to the teacher's GenUUID used to tag
// xactions.
func GenTaskTag() (id string) {
	var h, t string
	id = sid.MustGenerate()
	if !isAlpha(id[0]) {
		h = string(rune('A' + mrand.Int()%26))
	}
	c := id[len(id)-1]
	if c == '-' || c == '_' {
		t = string(rune('a' + mrand.Int()%26))
	}
	return h + id + t
}

func IsValidTaskTag(id string) bool {
	const idlen = 9 // as per https://github.com/teris-io/shortid#id-length
	return len(id) >= idlen && isAlpha(id[0])
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// GenTie produces a short tie-breaker string for disambiguating two task
// IDs minted in the same tick, for Info-protocol correlation when two
// commands race to register the same task name.
func GenTie() string {
	tie := atomic.AddInt32(&rtie, 1)
	b0 := taskABC[tie&0x3f]
	b1 := taskABC[-tie&0x3f]
	b2 := taskABC[(tie>>2)&0x3f]
	return string([]byte{b0, b1, b2})
}
