package msgpack_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/aerospike/aerospike-client-go/msgpack"
	"github.com/aerospike/aerospike-client-go/types"
)

// roundTrip encodes v and decodes the result, asserting every byte of buf
// was consumed (the codec never leaves a dangling tail for a single value).
func roundTrip(v types.Value) types.Value {
	buf, err := msgpack.EncodeValue(nil, v)
	Expect(err).NotTo(HaveOccurred())

	out, rest, err := msgpack.DecodeValue(buf)
	Expect(err).NotTo(HaveOccurred())
	Expect(rest).To(BeEmpty())
	return out
}

var _ = Describe("Value codec", func() {
	It("round-trips nil", func() {
		Expect(roundTrip(types.NilValue()).Kind()).To(Equal(types.KindNil))
	})

	It("round-trips bool", func() {
		for _, b := range []bool{true, false} {
			out := roundTrip(types.BoolValue(b))
			Expect(out.Kind()).To(Equal(types.KindBool))
			Expect(out.Bool()).To(Equal(b))
		}
	})

	It("round-trips integers at every width", func() {
		for _, i := range []int64{0, 1, -1, 127, 128, -32, 1 << 16, -(1 << 20), 1<<40 - 1, -(1 << 40)} {
			out := roundTrip(types.IntegerValue(i))
			Expect(out.Kind()).To(Equal(types.KindInteger))
			Expect(out.Integer()).To(Equal(i))
		}
	})

	It("round-trips floats", func() {
		out := roundTrip(types.FloatValue(3.14159))
		Expect(out.Kind()).To(Equal(types.KindFloat))
		Expect(out.Float()).To(Equal(3.14159))
	})

	It("round-trips strings, including empty and non-ASCII", func() {
		for _, s := range []string{"", "hello", "héllo wörld", "日本語"} {
			out := roundTrip(types.StringValue(s))
			Expect(out.Kind()).To(Equal(types.KindString))
			Expect(out.String()).To(Equal(s))
		}
	})

	It("round-trips GeoJSON as a string-framed value", func() {
		geo := `{"type":"Point","coordinates":[0,0]}`
		out := roundTrip(types.GeoJSONValue(geo))
		// GeoJSON shares the string wire form; the particle tag (wire
		// package), not this codec, is what distinguishes the two kinds.
		Expect(out.Kind()).To(Equal(types.KindString))
		Expect(out.String()).To(Equal(geo))
	})

	It("round-trips a blob, including non-UTF-8 bytes", func() {
		blob := []byte{0xff, 0x00, 0xfe, 'x', 0x80}
		out := roundTrip(types.BlobValue(blob))
		Expect(out.Kind()).To(Equal(types.KindBlob))
		Expect(out.Blob()).To(Equal(blob))
	})

	It("round-trips an empty list and a flat list of mixed kinds", func() {
		Expect(roundTrip(types.ListValue(nil)).List()).To(BeEmpty())

		list := types.ListValue([]types.Value{
			types.IntegerValue(7),
			types.StringValue("x"),
			types.BoolValue(true),
			types.NilValue(),
		})
		out := roundTrip(list)
		Expect(out.Kind()).To(Equal(types.KindList))
		Expect(out.Equal(list)).To(BeTrue())
	})

	It("round-trips an empty map and a flat map", func() {
		Expect(roundTrip(types.MapValue(types.NewOrderedMap())).Map().Len()).To(Equal(0))

		m := types.NewOrderedMap()
		m.Set(types.StringValue("a"), types.IntegerValue(1))
		m.Set(types.StringValue("b"), types.FloatValue(2.5))
		mv := types.MapValue(m)
		out := roundTrip(mv)
		Expect(out.Kind()).To(Equal(types.KindMap))
		Expect(out.Equal(mv)).To(BeTrue())
	})

	Describe("nested blobs inside collections", func() {
		// A nested Blob is always framed as true MessagePack Bin (see
		// codec.go's BlobFamily doc comment): CDT support itself requires a
		// MsgPack-capable server, so there is no legacy peer a nested
		// collection value could ever reach, and framing it as Bin is what
		// lets decode tell a nested blob apart from a nested string.
		blob := []byte{0xff, 0x00, 0xfe, 'y', 0x81} // non-UTF-8 on purpose

		It("preserves blob identity nested in a list", func() {
			list := types.ListValue([]types.Value{
				types.BlobValue(blob),
				types.StringValue("y"),
			})
			out := roundTrip(list)
			Expect(out.List()).To(HaveLen(2))
			Expect(out.List()[0].Kind()).To(Equal(types.KindBlob))
			Expect(out.List()[0].Blob()).To(Equal(blob))
			Expect(out.List()[1].Kind()).To(Equal(types.KindString))
			Expect(out.List()[1].String()).To(Equal("y"))
		})

		It("preserves blob identity nested in a map, as both key and value", func() {
			m := types.NewOrderedMap()
			m.Set(types.StringValue("k"), types.BlobValue(blob))
			m.Set(types.BlobValue(blob), types.IntegerValue(9))
			mv := types.MapValue(m)

			out := roundTrip(mv)
			v, ok := out.Map().Get(types.StringValue("k"))
			Expect(ok).To(BeTrue())
			Expect(v.Kind()).To(Equal(types.KindBlob))
			Expect(v.Blob()).To(Equal(blob))

			v, ok = out.Map().Get(types.BlobValue(blob))
			Expect(ok).To(BeTrue())
			Expect(v.Kind()).To(Equal(types.KindInteger))
			Expect(v.Integer()).To(Equal(int64(9)))
		})

		It("preserves blob identity nested two levels deep (list-of-list, list-of-map)", func() {
			inner := types.ListValue([]types.Value{types.BlobValue(blob)})
			outer := types.ListValue([]types.Value{inner, types.StringValue("z")})
			out := roundTrip(outer)
			Expect(out.List()[0].List()[0].Kind()).To(Equal(types.KindBlob))
			Expect(out.List()[0].List()[0].Blob()).To(Equal(blob))

			m := types.NewOrderedMap()
			m.Set(types.StringValue("b"), types.BlobValue(blob))
			listOfMap := types.ListValue([]types.Value{types.MapValue(m)})
			out = roundTrip(listOfMap)
			v, ok := out.List()[0].Map().Get(types.StringValue("b"))
			Expect(ok).To(BeTrue())
			Expect(v.Kind()).To(Equal(types.KindBlob))
			Expect(v.Blob()).To(Equal(blob))
		})
	})

	It("rejects a bare non-UTF-8 string particle", func() {
		// A standalone (non-nested) value claiming to be a string but
		// carrying invalid UTF-8 bytes is a protocol violation, not a blob
		// in disguise — disambiguating the two is the particle tag's job
		// (wire package), not this codec's.
		bogus := []byte{0xa2, 0xff, 0xfe} // fixstr len=2, invalid UTF-8 payload
		_, _, err := msgpack.DecodeValue(bogus)
		Expect(err).To(HaveOccurred())
		Expect(types.ResultCodeOf(err)).To(Equal(types.Utf8Error))
	})

	It("rejects truncated input", func() {
		_, _, err := msgpack.DecodeValue(nil)
		Expect(err).To(HaveOccurred())
		Expect(types.ResultCodeOf(err)).To(Equal(types.Truncated))
	})
})
