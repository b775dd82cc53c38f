package cluster

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/aerospike/aerospike-client-go/connpool"
	"github.com/aerospike/aerospike-client-go/info"
	"github.com/aerospike/aerospike-client-go/types"
)

// credentials captures the subset of ClientPolicy a dialed connection
// needs to authenticate itself, decoupled from *policy.ClientPolicy so
// the dialer closure below doesn't need the whole policy package surface
// at call time.
type credentials struct {
	user, password string
	enabled        bool
}

// handshake performs, in order: (TLS is a caller-supplied net.Conn
// concern, out of this core's scope per §1), authentication if
// credentials are present, and a version probe via the Info protocol
// (§4.4 Handshake). It returns the node's server-reported name and
// negotiated feature set.
func handshake(nc net.Conn, creds credentials, session *sharedSession, clusterName string, timeout time.Duration) (name string, features FeatureSet, err error) {
	conn := connpool.NewConn(nc)
	if creds.enabled {
		sess := session.get()
		if sess.Expired() {
			sess, err = login(conn, creds.user, creds.password, timeout)
			if err != nil {
				return "", nil, err
			}
			session.set(sess)
		} else if sess != nil {
			if err = authenticateSession(conn, creds.user, sess, timeout); err != nil {
				return "", nil, err
			}
		}
	}
	resp, err := info.Request(conn, timeout, "node", "features", "cluster-name")
	if err != nil {
		return "", nil, err
	}
	name = resp["node"]
	if name == "" {
		return "", nil, types.NewError(types.InvalidNodeError, "handshake: empty node name")
	}
	if clusterName != "" && resp["cluster-name"] != "" && resp["cluster-name"] != clusterName {
		return "", nil, types.NewError(types.InvalidNodeError, "handshake: node %s reports cluster-name %q, want %q", name, resp["cluster-name"], clusterName)
	}
	features = parseFeatures(resp["features"])
	return name, features, nil
}

func parseFeatures(value string) FeatureSet {
	fs := FeatureSet{}
	if value == "" {
		return fs
	}
	start := 0
	for i := 0; i <= len(value); i++ {
		if i == len(value) || value[i] == ',' {
			if i > start {
				fs[Feature(value[start:i])] = true
			}
			start = i + 1
		}
	}
	return fs
}

// sharedSession holds the one auth session a cluster reuses across every
// connection it dials for a given node (§4.4 Auth sessions).
type sharedSession struct {
	mu  sync.Mutex
	sess *Session
}

func (s *sharedSession) get() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

func (s *sharedSession) set(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
}

// parsePartitionGeneration parses the `partition-generation` info value.
func parsePartitionGeneration(value string) (int64, error) {
	gen, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, types.NewError(types.Truncated, "bad partition-generation %q: %v", value, err)
	}
	return gen, nil
}
