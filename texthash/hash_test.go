package texthash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashDeterministic(t *testing.T) {
	a := Hash("hello world")
	b := Hash("hello world")
	assert.Equal(t, a, b)
}

func TestHashDistinguishesInputs(t *testing.T) {
	assert.NotEqual(t, Hash("alpha"), Hash("beta"))
}

func TestFold32NonNegative(t *testing.T) {
	for _, s := range []string{"", "a", "composite-key-disambiguator", "日本語"} {
		v := ShortenKey(s)
		assert.GreaterOrEqual(t, v, int32(0))
	}
}

func TestShortenKeyMatchesHashThenFold(t *testing.T) {
	s := "storage-engine"
	assert.Equal(t, Fold32(Hash(s)), ShortenKey(s))
}
