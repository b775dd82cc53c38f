package types

// MaxBinNameLength is the server-advertised short bin-name limit (§3 Bin);
// clusters that advertise the long-bin-names feature (§4.2 `features`) raise
// this, but the core never assumes that capability without a probe.
const MaxBinNameLength = 14

// Bin is a named, typed value attached to a record (§3 Bin, GLOSSARY Bin).
type Bin struct {
	Name  string
	Value Value
}

func NewBin(name string, value Value) Bin { return Bin{Name: name, Value: value} }

// Expiration sentinels every Aerospike-family client exposes for
// WritePolicy.Expiration / Record.Expiration (§4 Supplemented Features).
const (
	TTLServerDefault uint32 = 0
	TTLDontExpire    uint32 = 0xFFFFFFFF
	TTLDontUpdate    uint32 = 0xFFFFFFFE
)

// CitrusLeafEpoch is the server's reference epoch for Expiration values
// (§3 Record: "seconds since the server's reference epoch (2010-01-01 UTC)").
const CitrusLeafEpoch int64 = 1262304000 // 2010-01-01T00:00:00Z, Unix seconds

// Record is the server's per-key payload: bins, generation, and expiration
// (§3 Record). Bins preserve no order, matching the server's own map
// semantics for a record's bin set (distinct from the ordered-map Value
// kind used for in-bin list/map data).
type Record struct {
	Key        *Key
	Bins       map[string]Value
	Generation uint32
	Expiration uint32
}

func NewRecord(key *Key, bins map[string]Value, generation, expiration uint32) *Record {
	return &Record{Key: key, Bins: bins, Generation: generation, Expiration: expiration}
}

func (r *Record) Bin(name string) (Value, bool) {
	v, ok := r.Bins[name]
	return v, ok
}
