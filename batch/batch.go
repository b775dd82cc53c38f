package batch

import (
	"golang.org/x/sync/errgroup"

	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/command"
	"github.com/aerospike/aerospike-client-go/connpool"
	"github.com/aerospike/aerospike-client-go/memsys"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
	"github.com/aerospike/aerospike-client-go/wire"
)

var scratch = memsys.NewSyncContext(memsys.DefaultSoftCap)

// item is one positional result slot (§4.6: "the result array R satisfies
// |R| == n and R[i] corresponds to K[i]", the batch positional invariant).
type item struct {
	record *types.Record
	err    error
}

// Get reads binNames (or every bin, if none given) for every key in keys,
// sharded by owning node and dispatched concurrently (§4.6). The returned
// slice and error slice are always len(keys) long and positionally
// correspond to the input.
func Get(cl *cluster.Cluster, p *policy.BatchPolicy, keys []*types.Key, binNames ...string) ([]*types.Record, []error) {
	results := make([]item, len(keys))

	groups, shardErrs := shard(cl.Get(), keys, p.ReadMode)
	for offset, err := range shardErrs {
		results[offset] = item{err: err}
	}

	sem := make(chan struct{}, maxConcurrency(p, len(groups)))
	var eg errgroup.Group
	for _, g := range groups {
		g := g
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			runGroup(cl, p, g, binNames, results)
			return nil
		})
	}
	_ = eg.Wait() // runGroup never returns an error; failures land per-offset in results

	records := make([]*types.Record, len(keys))
	errs := make([]error, len(keys))
	for i, it := range results {
		records[i], errs[i] = it.record, it.err
	}
	return records, errs
}

// Exists is Get restricted to existence, discarding bin data (§4.6,
// mirroring §4.5 exists).
func Exists(cl *cluster.Cluster, p *policy.BatchPolicy, keys []*types.Key) ([]bool, []error) {
	recs, errs := Get(cl, p, keys)
	found := make([]bool, len(keys))
	for i, r := range recs {
		found[i] = r != nil
	}
	return found, errs
}

func maxConcurrency(p *policy.BatchPolicy, nGroups int) int {
	if nGroups == 0 {
		return 1
	}
	if p.MaxConcurrentNodes <= 0 || p.MaxConcurrentNodes > nGroups {
		return nGroups
	}
	return p.MaxConcurrentNodes
}

// runGroup executes one node's share of the batch and writes every entry's
// outcome into results at its original offset. A group-fatal condition
// (digest mismatch, short response) fails every entry this group has not
// yet resolved; it never touches other groups' offsets (§4.6 Propagation).
func runGroup(cl *cluster.Cluster, p *policy.BatchPolicy, g *group, binNames []string, results []item) {
	conn, err := g.node.GetConnection()
	if err != nil {
		failAll(g.entries, types.Wrap(types.NoAvailableConnections, err), results)
		return
	}
	if err := conn.SetDeadline(p.SocketTimeout); err != nil {
		g.node.PutConnection(conn, false)
		failAll(g.entries, types.Wrap(types.NetworkError, err), results)
		return
	}

	buf := scratch.Acquire()
	defer scratch.Release(buf)
	buf.Grow(wire.HeaderSize + requestSize(g.entries, binNames))
	n := encodeRequest(buf.Bytes()[wire.HeaderSize:], g.entries, binNames)
	command.EncodeFrame(buf.Bytes(), wire.MsgTypeMessage, n)
	frame := buf.Bytes()[:wire.HeaderSize+n]

	if _, err := conn.Write(frame); err != nil {
		g.node.PutConnection(conn, false)
		failAll(g.entries, types.Wrap(types.NetworkError, err), results)
		return
	}

	resolved, err := readGroupResponse(conn, g.entries, results, p.AllowPartialResults)
	g.node.PutConnection(conn, err == nil)
	if err != nil {
		failAll(g.entries[resolved:], err, results)
	}
}

// readGroupResponse streams frames off conn, each carrying one or more
// concatenated per-record sub-messages, until every entry in entries is
// resolved or a group-fatal error occurs. It returns how many entries (a
// prefix of entries, per the ordering guarantee) were resolved before any
// such error (§4.6 Parsing, Ordering guarantees).
func readGroupResponse(conn *connpool.Conn, entries []entry, results []item, allowPartial bool) (resolved int, err error) {
	for resolved < len(entries) {
		body, err := command.ReadFrameBody(conn)
		if err != nil {
			return resolved, err
		}
		off := 0
		last := false
		for off < len(body) {
			mh, fields, ops, n, derr := command.DecodeSubMessage(body[off:])
			if derr != nil {
				return resolved, derr
			}
			off += n

			if resolved >= len(entries) {
				return resolved, types.NewError(types.Truncated, "batch response carries more sub-records than requested")
			}
			want := entries[resolved]

			digest, ok := findDigest(fields)
			if !ok || digest != want.key.Digest() {
				return resolved, types.NewError(types.UnexpectedKey, "batch sub-record at offset %d digest mismatch", want.offset)
			}

			switch mh.ResultCode {
			case types.OK:
				rec, rerr := recordFromSubMessage(want.key, mh, ops)
				if rerr != nil {
					return resolved, rerr
				}
				results[want.offset] = item{record: rec}
			case types.KeyNotFound:
				results[want.offset] = item{}
			default:
				subErr := types.NewError(mh.ResultCode, "%s", mh.ResultCode)
				if !allowPartial {
					return resolved, subErr
				}
				results[want.offset] = item{err: subErr}
			}
			resolved++
			if mh.Info3&wire.Info3Last != 0 {
				last = true
			}
		}
		if last {
			break
		}
	}
	if resolved < len(entries) {
		return resolved, types.NewError(types.MissingKey, "batch response omitted %d of %d keys", len(entries)-resolved, len(entries))
	}
	return resolved, nil
}

func findDigest(fields []wire.Field) ([types.DigestSize]byte, bool) {
	for _, f := range fields {
		if f.Type == wire.FieldDigestRIPE && len(f.Payload) == types.DigestSize {
			var d [types.DigestSize]byte
			copy(d[:], f.Payload)
			return d, true
		}
	}
	return [types.DigestSize]byte{}, false
}

func recordFromSubMessage(key *types.Key, mh wire.MessageHeader, ops []wire.Op) (*types.Record, error) {
	bins := make(map[string]types.Value, len(ops))
	for _, op := range ops {
		v, err := wire.DecodeOpValue(op)
		if err != nil {
			return nil, err
		}
		bins[op.BinName] = v
	}
	return types.NewRecord(key, bins, mh.Generation, mh.TTL), nil
}

func failAll(entries []entry, err error, results []item) {
	for _, e := range entries {
		results[e.offset] = item{err: err}
	}
}
