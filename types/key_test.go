package types_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/aerospike/aerospike-client-go/types"
)

var _ = Describe("Key digest and partition", func() {
	It("hashes identical (namespace, set, key) triples to the same digest", func() {
		k1, err := types.NewKey("test", "myset", "abc")
		Expect(err).NotTo(HaveOccurred())
		k2, err := types.NewKey("test", "myset", "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(k1.Digest()).To(Equal(k2.Digest()))
	})

	It("hashes a string key and a blob key with identical bytes to different digests", func() {
		strKey, err := types.NewKey("test", "myset", "abc")
		Expect(err).NotTo(HaveOccurred())
		blobKey, err := types.NewBlobKey("test", "myset", []byte("abc"))
		Expect(err).NotTo(HaveOccurred())
		Expect(blobKey.Digest()).NotTo(Equal(strKey.Digest()))
	})

	// Known fixture: RIPEMD-160("demo" || 0x02 || "abc"), independently
	// computed (openssl dgst -ripemd160 and Python hashlib agree), which is
	// exactly ComputeDigest's documented input order (§6.1: set-name ||
	// key-type-byte || key-bytes) with KeyTypeString = 2. Pins the
	// algorithm to the real server wire format, not just internal
	// self-consistency.
	It("matches the known server digest fixture for set=demo, key=abc", func() {
		k, err := types.NewKey("demo", "demo", "abc")
		Expect(err).NotTo(HaveOccurred())
		want := [types.DigestSize]byte{
			0x95, 0x0e, 0x54, 0xa2, 0xb6, 0xd5, 0x8f, 0xc0, 0x59, 0xd0,
			0x8c, 0x5f, 0xf2, 0x55, 0x86, 0x94, 0xb4, 0xf1, 0x77, 0xed,
		}
		Expect(k.Digest()).To(Equal(want))
	})

	It("computes keys equal by namespace and digest, not by userKey identity", func() {
		k1, _ := types.NewKey("test", "myset", "abc")
		k2, _ := types.NewKey("test", "myset", "abc")
		k3, _ := types.NewKey("test", "myset", "xyz")
		Expect(k1.Equal(k2)).To(BeTrue())
		Expect(k1.Equal(k3)).To(BeFalse())
	})

	It("always maps to a partition in range", func() {
		for _, uk := range []string{"a", "b", "abcdefgh", "0123456789"} {
			k, err := types.NewKey("test", "", uk)
			Expect(err).NotTo(HaveOccurred())
			Expect(k.Partition()).To(BeNumerically("<", types.PartitionCount))
		}
	})

	It("preserves a digest supplied directly via NewKeyWithDigest", func() {
		var d [types.DigestSize]byte
		d[0] = 0xAB
		k := types.NewKeyWithDigest("test", "myset", d)
		Expect(k.Digest()).To(Equal(d))
	})

	It("rejects an empty namespace", func() {
		_, err := types.NewKey("", "myset", "abc")
		Expect(err).To(HaveOccurred())
	})
})
