package command

import (
	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

// Operation is one step of a multi-op atomic command (§4.5 operate): a
// read or a write against a single named bin. Value is ignored for read
// operations. Operations against the same bin name are never merged —
// they are encoded in the exact order the caller supplied, since each one
// executes as its own step of the server's atomic sequence (§4.5).
type Operation struct {
	Type    wire.OpType
	BinName string
	Value   types.Value
}

func ReadOp(binName string) Operation {
	return Operation{Type: wire.OpRead, BinName: binName}
}

func WriteOp(binName string, v types.Value) Operation {
	return Operation{Type: wire.OpWrite, BinName: binName, Value: v}
}

func AppendOp(binName string, v types.Value) Operation {
	return Operation{Type: wire.OpAppend, BinName: binName, Value: v}
}

func PrependOp(binName string, v types.Value) Operation {
	return Operation{Type: wire.OpPrepend, BinName: binName, Value: v}
}

func AddOp(binName string, v types.Value) Operation {
	return Operation{Type: wire.OpAdd, BinName: binName, Value: v}
}

func TouchOp() Operation { return Operation{Type: wire.OpTouch} }

// BinResult is one entry of an operate response: the bin name the value
// came back under (read ops and some write ops like ADD echo a result) and
// its decoded value. Results preserve request order, including repeats of
// the same bin name (§4.5: "same-bin-name ops coalesced into ordered list"
// — the ordering these results preserve is exactly that list).
type BinResult struct {
	Name  string
	Value types.Value
}

// OperateResult is the reconstructed outcome of a multi-op command.
type OperateResult struct {
	Key        *types.Key
	Results    []BinResult
	Generation uint32
	Expiration uint32
}

// Operate executes ops against key as one atomic multi-op command (§4.5
// operate). The command is routed as a write whenever any op is not a
// plain read, matching §4.3's "writes always go to the master" rule.
func Operate(cl *cluster.Cluster, p *policy.WritePolicy, key *types.Key, ops ...Operation) (*OperateResult, error) {
	write := false
	for _, op := range ops {
		if op.Type != wire.OpRead {
			write = true
			break
		}
	}

	size := keyFieldsSize(key.Namespace(), key.Set())
	blobFamily := cl.BlobFamily()
	encoded := make([][]byte, len(ops))
	particles := make([]types.ParticleType, len(ops))
	for i, op := range ops {
		if op.Type == wire.OpRead || op.Type == wire.OpTouch {
			continue
		}
		enc, pt, err := wire.EncodeOpValue(op.Value, blobFamily)
		if err != nil {
			return nil, err
		}
		encoded[i] = enc
		particles[i] = pt
		size += wire.Op{Type: op.Type, BinName: op.BinName, Value: enc}.Size()
	}

	var info2 uint8
	if write {
		info2 = wire.Info2Write
	}
	var info1 uint8
	if !write {
		info1 = wire.Info1Read
	}

	var out *OperateResult
	cmd := &Command{
		Namespace: key.Namespace(),
		Set:       key.Set(),
		Digest:    key.Digest(),
		Write:     write,
		ReadMode:  p.ReadMode,
		Info1:     info1,
		Info2:     info2,
		Generation: p.Generation,
		TTL:        p.Expiration,
		Kind:      "operate",
		BodySize:  size,
		Build: func(buf []byte) (n, nFields, nOps int, err error) {
			n, nFields = encodeKeyFields(buf, key.Namespace(), key.Set(), key.Digest())
			for i, op := range ops {
				w := wire.Op{Type: op.Type, BinName: op.BinName, Particle: particles[i], Value: encoded[i]}
				n += w.Encode(buf[n:])
				nOps++
			}
			return n, nFields, nOps, nil
		},
		Parse: func(resp *Response) error {
			results := make([]BinResult, 0, len(resp.Ops))
			for _, o := range resp.Ops {
				v, err := wire.DecodeOpValue(o)
				if err != nil {
					return err
				}
				results = append(results, BinResult{Name: o.BinName, Value: v})
			}
			out = &OperateResult{Key: key, Results: results, Generation: resp.Header.Generation, Expiration: resp.Header.TTL}
			return nil
		},
	}
	if err := Execute(cl, cmd, p.BasePolicy); err != nil {
		return nil, err
	}
	return out, nil
}
