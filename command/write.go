package command

import (
	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

// writeOp builds and executes a single-bin-family write command: put (one
// op per bin, OpWrite), append/prepend/add (one op per bin, matching op
// type), and touch/delete (no bins). All share the same field/generation
// framing, differing only in Info2 bits and the op list (§4.5).
func writeOp(cl *cluster.Cluster, p *policy.WritePolicy, key *types.Key, info2 uint8, info3 uint8, opType wire.OpType, bins []types.Bin, kind string) error {
	size := keyFieldsSize(key.Namespace(), key.Set())
	blobFamily := cl.BlobFamily()
	encoded := make([][]byte, len(bins))
	particles := make([]types.ParticleType, len(bins))
	for i, b := range bins {
		enc, pt, err := wire.EncodeOpValue(b.Value, blobFamily)
		if err != nil {
			return err
		}
		encoded[i] = enc
		particles[i] = pt
		size += wire.Op{Type: opType, BinName: b.Name, Value: enc}.Size()
	}

	var genFlag uint8
	switch p.GenerationPolicy {
	case policy.GenerationEqual:
		genFlag = wire.Info2Generation
	case policy.GenerationGreater:
		genFlag = wire.Info2GenerationGT
	}

	var commitFlag uint8
	if p.CommitLevel == policy.CommitMaster {
		commitFlag = wire.Info3CommitMaster
	}

	cmd := &Command{
		Namespace:  key.Namespace(),
		Set:        key.Set(),
		Digest:     key.Digest(),
		Write:      true,
		Info2:      wire.Info2Write | info2 | genFlag,
		Info3:      info3 | commitFlag,
		Generation: p.Generation,
		TTL:        p.Expiration,
		Kind:       kind,
		BodySize:   size,
		Build: func(buf []byte) (n, nFields, nOps int, err error) {
			n, nFields = encodeKeyFields(buf, key.Namespace(), key.Set(), key.Digest())
			for i, b := range bins {
				op := wire.Op{Type: opType, BinName: b.Name, Particle: particles[i], Value: encoded[i]}
				n += op.Encode(buf[n:])
				nOps++
			}
			return n, nFields, nOps, nil
		},
	}
	return Execute(cl, cmd, p.BasePolicy)
}

// Put writes bins to key, creating or replacing the record per p.CommitLevel
// and p.GenerationPolicy (§4.5 put).
func Put(cl *cluster.Cluster, p *policy.WritePolicy, key *types.Key, bins ...types.Bin) error {
	return writeOp(cl, p, key, 0, 0, wire.OpWrite, bins, "put")
}

// Append concatenates value onto an existing string/blob bin (§4.5 append).
func Append(cl *cluster.Cluster, p *policy.WritePolicy, key *types.Key, bins ...types.Bin) error {
	return writeOp(cl, p, key, 0, 0, wire.OpAppend, bins, "append")
}

// Prepend inserts value before an existing string/blob bin (§4.5 prepend).
func Prepend(cl *cluster.Cluster, p *policy.WritePolicy, key *types.Key, bins ...types.Bin) error {
	return writeOp(cl, p, key, 0, 0, wire.OpPrepend, bins, "prepend")
}

// Add adds an integer delta to an existing integer bin, creating it at the
// delta's value if absent (§4.5 add).
func Add(cl *cluster.Cluster, p *policy.WritePolicy, key *types.Key, bins ...types.Bin) error {
	return writeOp(cl, p, key, 0, 0, wire.OpAdd, bins, "add")
}

// Touch refreshes a record's TTL without reading or modifying its bins
// (§4.5 touch).
func Touch(cl *cluster.Cluster, p *policy.WritePolicy, key *types.Key) error {
	return writeOp(cl, p, key, 0, 0, wire.OpTouch, nil, "touch")
}

// Delete removes a record (§4.5 delete).
func Delete(cl *cluster.Cluster, p *policy.WritePolicy, key *types.Key) (bool, error) {
	err := writeOp(cl, p, key, wire.Info2Delete|wire.Info2RespondAll, 0, wire.OpDelete, nil, "delete")
	if err != nil {
		if types.ResultCodeOf(err) == types.KeyNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
