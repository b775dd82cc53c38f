package types

import (
	"encoding/binary"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // server-mandated digest algorithm, not a choice
)

// DigestSize is the fixed length of a record digest (§3 Key, §6.1).
const DigestSize = 20

// PartitionCount is the number of partitions a namespace is sharded into
// (§3 Partition map, §6.1 Digest, GLOSSARY Partition).
const PartitionCount = 4096

// KeyType tags which wire representation the user-key was given in; it is
// folded into the digest input so "abc" (string) and []byte("abc") (blob)
// hash to different digests even though their bytes are identical.
type KeyType byte

const (
	KeyTypeInteger KeyType = 1
	KeyTypeString  KeyType = 2
	KeyTypeBlob    KeyType = 3
)

// Key is the (namespace, set, user-key) triple plus its cached digest
// (§3 Key). The digest is computed exactly once, at construction, and never
// recomputed — it is a pure function of (set, user-key-bytes, user-key-type).
type Key struct {
	namespace string
	set       string
	userKey   Value
	keyType   KeyType
	keyBytes  []byte
	digest    [DigestSize]byte
}

// NewKey builds a Key from a string user-key, the common case.
func NewKey(namespace, set, userKey string) (*Key, error) {
	return newKey(namespace, set, StringValue(userKey), KeyTypeString, []byte(userKey))
}

// NewIntegerKey builds a Key from an integer user-key. The digest input uses
// the server's big-endian 8-byte encoding of the integer, matching the
// server's own key-hashing rule for numeric keys.
func NewIntegerKey(namespace, set string, userKey int64) (*Key, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(userKey))
	return newKey(namespace, set, IntegerValue(userKey), KeyTypeInteger, b)
}

// NewBlobKey builds a Key from a raw byte-slice user-key.
func NewBlobKey(namespace, set string, userKey []byte) (*Key, error) {
	cp := make([]byte, len(userKey))
	copy(cp, userKey)
	return newKey(namespace, set, BlobValue(cp), KeyTypeBlob, cp)
}

func newKey(namespace, set string, userKey Value, kt KeyType, keyBytes []byte) (*Key, error) {
	if namespace == "" {
		return nil, NewError(ParameterError, "key namespace must not be empty")
	}
	k := &Key{
		namespace: namespace,
		set:       set,
		userKey:   userKey,
		keyType:   kt,
		keyBytes:  keyBytes,
	}
	k.digest = ComputeDigest(set, kt, keyBytes)
	return k, nil
}

// NewKeyWithDigest builds a Key directly from a pre-computed digest (no
// user-key bytes retained), the shape batch responses arrive in when the
// server echoes only the digest-RIPE field (§6.1 Fields).
func NewKeyWithDigest(namespace, set string, digest [DigestSize]byte) *Key {
	return &Key{namespace: namespace, set: set, digest: digest}
}

func (k *Key) Namespace() string   { return k.namespace }
func (k *Key) Set() string         { return k.set }
func (k *Key) UserKey() Value      { return k.userKey }
func (k *Key) Digest() [DigestSize]byte { return k.digest }

// Equal implements the §3 Key invariant: two Keys with equal digest and
// equal namespace are the same record for routing and batch matching.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.namespace == other.namespace && k.digest == other.digest
}

// Partition returns the partition this key's digest maps to: the first four
// digest bytes interpreted little-endian, modulo PartitionCount (§4.3).
func (k *Key) Partition() uint32 {
	return PartitionOf(k.digest)
}

// PartitionOf applies the routing rule to an arbitrary digest, used both by
// Key.Partition and directly by the batch engine when only a raw digest
// (no full Key) is on hand.
func PartitionOf(digest [DigestSize]byte) uint32 {
	return binary.LittleEndian.Uint32(digest[0:4]) % PartitionCount
}

// ComputeDigest implements the server-compatible key-hashing rule (§6.1):
// RIPEMD-160 of set-name || key-type-byte || key-bytes.
func ComputeDigest(set string, kt KeyType, keyBytes []byte) [DigestSize]byte {
	h := ripemd160.New()
	_, _ = h.Write([]byte(set))
	_, _ = h.Write([]byte{byte(kt)})
	_, _ = h.Write(keyBytes)
	var out [DigestSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
