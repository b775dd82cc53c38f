package types

// ParticleType is the server's wire tag distinguishing value encodings
// (§6.1). Two particle types alias the value 23 (MsgPack-list and GeoJSON);
// the core disambiguates using a secondary flag byte in the surrounding
// operation header rather than guessing from the particle type alone
// (§9 Open Questions).
type ParticleType uint8

const (
	ParticleNull    ParticleType = 0
	ParticleInteger ParticleType = 1
	ParticleFloat   ParticleType = 2
	ParticleString  ParticleType = 3
	ParticleBlob    ParticleType = 4
	ParticleJavaBlob ParticleType = 7
	ParticleBool    ParticleType = 17
	ParticleHLL     ParticleType = 18
	ParticleMap     ParticleType = 19
	ParticleList    ParticleType = 20
	ParticleLDT     ParticleType = 21
	ParticleGeoJSON ParticleType = 23
	// MsgPack list/map share particle type 23 with GeoJSON in some server
	// revisions; the codec always writes GeoJSON through ParticleGeoJSON
	// and encodes list/map through the dedicated ParticleList/ParticleMap
	// values above so the ambiguity never arises on encode. On decode, a
	// value tagged 23 is treated as GeoJSON unless the value-flags byte
	// (§6.1 Operations) carries the MsgPack marker.
)

func (p ParticleType) String() string {
	switch p {
	case ParticleNull:
		return "NULL"
	case ParticleInteger:
		return "INTEGER"
	case ParticleFloat:
		return "FLOAT"
	case ParticleString:
		return "STRING"
	case ParticleBlob:
		return "BLOB"
	case ParticleBool:
		return "BOOL"
	case ParticleHLL:
		return "HLL"
	case ParticleMap:
		return "MAP"
	case ParticleList:
		return "LIST"
	case ParticleGeoJSON:
		return "GEOJSON"
	default:
		return "UNKNOWN"
	}
}
