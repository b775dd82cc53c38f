package cluster_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/aerospike/aerospike-client-go/cluster"
	"github.com/aerospike/aerospike-client-go/policy"
	"github.com/aerospike/aerospike-client-go/types"
)

func namedNode(name string) *cluster.Node {
	return cluster.NewNode(name, "127.0.0.1", 3000, nil, nil)
}

func buildMap(ns string, master, replica1 *cluster.Node) *cluster.ClusterMap {
	nodes := cluster.NodeMap{master.Name(): master}
	if replica1 != nil {
		nodes[replica1.Name()] = replica1
	}
	np := &cluster.NamespacePartitions{Replicas: make([][types.PartitionCount]*cluster.Node, 2)}
	np.Replicas[0][0] = master
	if replica1 != nil {
		np.Replicas[1][0] = replica1
	}
	return &cluster.ClusterMap{Nodes: nodes, Partitions: map[string]*cluster.NamespacePartitions{ns: np}}
}

var _ = Describe("Partition-aware routing", func() {
	var master, replica *cluster.Node
	var cm *cluster.ClusterMap
	var digest [types.DigestSize]byte // partition 0

	BeforeEach(func() {
		master = namedNode("A")
		replica = namedNode("B")
		cm = buildMap("test", master, replica)
		digest = [types.DigestSize]byte{}
	})

	It("always routes writes to the master", func() {
		n, err := cluster.Route(cm, "test", digest, true, policy.ReadModeMaster, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(n.Equals(master)).To(BeTrue())
	})

	It("routes ReadModeMaster reads to the master", func() {
		n, err := cluster.Route(cm, "test", digest, false, policy.ReadModeMaster, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(n.Equals(master)).To(BeTrue())
	})

	It("advances ReadModeSequence reads to the next replica by attempt", func() {
		n0, err := cluster.Route(cm, "test", digest, false, policy.ReadModeSequence, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(n0.Equals(master)).To(BeTrue())

		n1, err := cluster.Route(cm, "test", digest, false, policy.ReadModeSequence, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(n1.Equals(replica)).To(BeTrue())
	})

	It("fails routing against an empty cluster map", func() {
		empty := &cluster.ClusterMap{Nodes: cluster.NodeMap{}}
		_, err := cluster.Route(empty, "test", digest, true, policy.ReadModeMaster, 0)
		Expect(err).To(HaveOccurred())
	})

	It("fails routing against a namespace with no partition table", func() {
		soloMap := buildMap("test", master, nil)
		_, err := cluster.Route(soloMap, "other-namespace", digest, true, policy.ReadModeMaster, 0)
		Expect(err).To(HaveOccurred())
	})
})
