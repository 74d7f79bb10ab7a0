package main

import "github.com/bptreedb/bptreedb/internal/page"

// driverKey pairs a string index's shortened hash with the caller's own
// value as a disambiguator, so distinct "insert index value" calls that
// share an index compose into distinct, ordinarily-comparable tree keys
// instead of colliding as duplicates.
type driverKey struct {
	hash int32
	disc int32
}

type driverKeyCodec struct{}

func (driverKeyCodec) Size() int { return 8 }

func (driverKeyCodec) Encode(k driverKey, buf []byte) {
	page.Int32Codec{}.Encode(k.hash, buf[:4])
	page.Int32Codec{}.Encode(k.disc, buf[4:])
}

func (driverKeyCodec) Decode(buf []byte) driverKey {
	return driverKey{
		hash: page.Int32Codec{}.Decode(buf[:4]),
		disc: page.Int32Codec{}.Decode(buf[4:]),
	}
}

func compareDriverKey(a, b driverKey) int {
	switch {
	case a.hash < b.hash:
		return -1
	case a.hash > b.hash:
		return 1
	case a.disc < b.disc:
		return -1
	case a.disc > b.disc:
		return 1
	default:
		return 0
	}
}
