// Package texthash shortens arbitrary strings into fixed-width int32
// keys, so a caller can compose a disambiguator onto a hashed string
// prefix instead of paying for a variable-width key codec.
package texthash

import "github.com/cespare/xxhash/v2"

// Hash returns the 64-bit xxhash digest of s.
func Hash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Fold32 shortens a 64-bit digest into an int32 key by folding the upper
// and lower halves together with XOR, keeping the result non-negative so
// it composes predictably with a signed disambiguator suffix.
func Fold32(h uint64) int32 {
	v := int32(uint32(h) ^ uint32(h>>32))
	if v < 0 {
		// the mask covers math.MinInt32, whose negation overflows to itself
		v = -v & 0x7fffffff
	}
	return v
}

// ShortenKey hashes and folds s in one step.
func ShortenKey(s string) int32 {
	return Fold32(Hash(s))
}
