package command

import (
	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

// Get reads every bin of key (§4.5 read). binNames, when non-empty,
// restricts the read to those bins instead of the whole record.
func Get(cl *cluster.Cluster, p *policy.Policy, key *types.Key, binNames ...string) (*types.Record, error) {
	var rec *types.Record
	cmd := &Command{
		Namespace: key.Namespace(),
		Set:       key.Set(),
		Digest:    key.Digest(),
		Write:     false,
		ReadMode:  p.ReadMode,
		Kind:      "get",
		BodySize:  keyFieldsSize(key.Namespace(), key.Set()) + binFilterSize(binNames),
		Build: func(buf []byte) (n, nFields, nOps int, err error) {
			n, nFields = encodeKeyFields(buf, key.Namespace(), key.Set(), key.Digest())
			for _, name := range binNames {
				op := wire.Op{Type: wire.OpRead, BinName: name}
				n += op.Encode(buf[n:])
				nOps++
			}
			return n, nFields, nOps, nil
		},
		Parse: func(resp *Response) error {
			r, err := recordFromResponse(key, resp)
			if err != nil {
				return err
			}
			rec = r
			return nil
		},
	}
	if len(binNames) == 0 {
		cmd.Info1 = wire.Info1Read | wire.Info1GetAll
	} else {
		cmd.Info1 = wire.Info1Read
	}
	if err := Execute(cl, cmd, p.BasePolicy); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetHeader reads a record's generation/expiration without transferring any
// bin data (§4.5 read-header).
func GetHeader(cl *cluster.Cluster, p *policy.Policy, key *types.Key) (*types.Record, error) {
	var rec *types.Record
	cmd := &Command{
		Namespace: key.Namespace(),
		Set:       key.Set(),
		Digest:    key.Digest(),
		ReadMode:  p.ReadMode,
		Info1:     wire.Info1Read | wire.Info1NoBinData,
		Kind:      "get_header",
		BodySize:  keyFieldsSize(key.Namespace(), key.Set()),
		Build: func(buf []byte) (n, nFields, nOps int, err error) {
			n, nFields = encodeKeyFields(buf, key.Namespace(), key.Set(), key.Digest())
			return n, nFields, 0, nil
		},
		Parse: func(resp *Response) error {
			rec = types.NewRecord(key, map[string]types.Value{}, resp.Header.Generation, resp.Header.TTL)
			return nil
		},
	}
	if err := Execute(cl, cmd, p.BasePolicy); err != nil {
		return nil, err
	}
	return rec, nil
}

// Exists reports whether key has a record, without transferring bin data.
func Exists(cl *cluster.Cluster, p *policy.Policy, key *types.Key) (bool, error) {
	found := false
	cmd := &Command{
		Namespace: key.Namespace(),
		Set:       key.Set(),
		Digest:    key.Digest(),
		ReadMode:  p.ReadMode,
		Info1:     wire.Info1Read | wire.Info1NoBinData,
		Kind:      "exists",
		BodySize:  keyFieldsSize(key.Namespace(), key.Set()),
		Build: func(buf []byte) (n, nFields, nOps int, err error) {
			n, nFields = encodeKeyFields(buf, key.Namespace(), key.Set(), key.Digest())
			return n, nFields, 0, nil
		},
		Parse: func(resp *Response) error {
			found = true
			return nil
		},
	}
	err := Execute(cl, cmd, p.BasePolicy)
	if err != nil {
		if types.ResultCodeOf(err) == types.KeyNotFound {
			return false, nil
		}
		return false, err
	}
	return found, nil
}

func binFilterSize(binNames []string) int {
	n := 0
	for _, name := range binNames {
		n += wire.Op{Type: wire.OpRead, BinName: name}.Size()
	}
	return n
}

// recordFromResponse decodes a read response's operations into bin values.
func recordFromResponse(key *types.Key, resp *Response) (*types.Record, error) {
	bins := make(map[string]types.Value, len(resp.Ops))
	for _, op := range resp.Ops {
		v, err := wire.DecodeOpValue(op)
		if err != nil {
			return nil, err
		}
		bins[op.BinName] = v
	}
	return types.NewRecord(key, bins, resp.Header.Generation, resp.Header.TTL), nil
}
