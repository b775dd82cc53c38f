package types

import "fmt"

// ValueKind tags which arm of the Value union is populated. Named (rather
// than type-switched on the Go static type alone) because List/Map need a
// distinguishable empty case and because Infinity/Wildcard carry no payload.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindBlob
	KindGeoJSON
	KindList
	KindMap
	KindInfinity
	KindWildcard
)

// Value is the tagged sum type described in §3: nil | bool | i64 | f64 |
// string | blob | geojson | list<Value> | map<Value,Value> | infinity |
// wildcard. Each variant carries the server particle-type tag used during
// framing (§6.1). A Value is immutable after construction, matching the
// teacher's convention for caller-owned, submission-time-frozen records.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	b    []byte
	list []Value
	m    *OrderedMap
}

func NilValue() Value { return Value{kind: KindNil} }

func BoolValue(v bool) Value {
	var i int64
	if v {
		i = 1
	}
	return Value{kind: KindBool, i: i}
}

func IntegerValue(v int64) Value { return Value{kind: KindInteger, i: v} }

func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

func StringValue(v string) Value { return Value{kind: KindString, s: v} }

func BlobValue(v []byte) Value { return Value{kind: KindBlob, b: v} }

func GeoJSONValue(v string) Value { return Value{kind: KindGeoJSON, s: v} }

func ListValue(v []Value) Value { return Value{kind: KindList, list: v} }

func MapValue(v *OrderedMap) Value { return Value{kind: KindMap, m: v} }

func InfinityValue() Value { return Value{kind: KindInfinity} }

func WildcardValue() Value { return Value{kind: KindWildcard} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNil() bool     { return v.kind == KindNil }

func (v Value) Bool() bool        { return v.i != 0 }
func (v Value) Integer() int64    { return v.i }
func (v Value) Float() float64    { return v.f }
func (v Value) String() string    { return v.s }
func (v Value) Blob() []byte      { return v.b }
func (v Value) GeoJSON() string   { return v.s }
func (v Value) List() []Value     { return v.list }
func (v Value) Map() *OrderedMap  { return v.m }

// ParticleType reports the wire tag this value is framed under (§6.1).
func (v Value) ParticleType() ParticleType {
	switch v.kind {
	case KindNil:
		return ParticleNull
	case KindBool:
		return ParticleBool
	case KindInteger:
		return ParticleInteger
	case KindFloat:
		return ParticleFloat
	case KindString:
		return ParticleString
	case KindBlob:
		return ParticleBlob
	case KindGeoJSON:
		return ParticleGeoJSON
	case KindList:
		return ParticleList
	case KindMap:
		return ParticleMap
	default:
		return ParticleBlob
	}
}

// Equal compares two Values by kind and payload; lists and maps compare
// element-wise. Used by the codec round-trip property (§8) and by batch-key
// matching.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil, KindInfinity, KindWildcard:
		return true
	case KindBool, KindInteger:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString, KindGeoJSON:
		return v.s == other.s
	case KindBlob:
		if len(v.b) != len(other.b) {
			return false
		}
		for i := range v.b {
			if v.b[i] != other.b[i] {
				return false
			}
		}
		return true
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(other.m)
	}
	return false
}

func (v Value) GoString() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return fmt.Sprintf("%v", v.Bool())
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBlob:
		return fmt.Sprintf("blob[%d]", len(v.b))
	case KindGeoJSON:
		return fmt.Sprintf("geojson(%s)", v.s)
	case KindList:
		return fmt.Sprintf("list[%d]", len(v.list))
	case KindMap:
		return fmt.Sprintf("map[%d]", v.m.Len())
	case KindInfinity:
		return "infinity"
	case KindWildcard:
		return "wildcard"
	}
	return "?"
}

// OrderedMap preserves MessagePack's insertion-order encoding contract
// (§4.1): "Maps preserve insertion order on encode; on decode, maps are
// delivered as an ordered association list semantically indexable by key."
type OrderedMap struct {
	keys  []Value
	vals  []Value
	index map[string]int // keyed by a canonical string form; see keyOf
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{index: make(map[string]int)}
}

// Set appends a new key or overwrites the value of an existing one without
// disturbing the original insertion position of that key.
func (m *OrderedMap) Set(key, val Value) {
	k := keyOf(key)
	if i, ok := m.index[k]; ok {
		m.vals[i] = val
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, val)
}

func (m *OrderedMap) Get(key Value) (Value, bool) {
	i, ok := m.index[keyOf(key)]
	if !ok {
		return Value{}, false
	}
	return m.vals[i], true
}

func (m *OrderedMap) Len() int { return len(m.keys) }

// Range walks entries in insertion order, stopping early if fn returns false.
func (m *OrderedMap) Range(fn func(key, val Value) bool) {
	for i := range m.keys {
		if !fn(m.keys[i], m.vals[i]) {
			return
		}
	}
}

func (m *OrderedMap) Equal(other *OrderedMap) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Len() != other.Len() {
		return false
	}
	for i := range m.keys {
		if !m.keys[i].Equal(other.keys[i]) || !m.vals[i].Equal(other.vals[i]) {
			return false
		}
	}
	return true
}

// keyOf builds a canonical lookup string for a Value used as a map key.
// Only the scalar kinds the server allows as map keys participate; list/map
// keys are rejected by the codec before they reach here.
func keyOf(v Value) string {
	switch v.kind {
	case KindString:
		return "s:" + v.s
	case KindInteger:
		return fmt.Sprintf("i:%d", v.i)
	case KindBool:
		return fmt.Sprintf("b:%v", v.Bool())
	case KindFloat:
		return fmt.Sprintf("f:%g", v.f)
	case KindBlob:
		return "k:" + string(v.b)
	default:
		return fmt.Sprintf("?:%v", v.kind)
	}
}
