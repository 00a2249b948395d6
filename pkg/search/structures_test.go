package search

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitedSet(t *testing.T) {
	v := NewVisitedSet(0)
	assert.True(t, v.Insert("Bedford"))
	assert.False(t, v.Insert("Bedford"))
	assert.True(t, v.Insert("bedford"))
	assert.True(t, v.Contains("Bedford"))
	assert.False(t, v.Contains("Bedfordshire"))
	assert.Equal(t, 2, v.Len())
}

func TestVisitedSetCollision(t *testing.T) {
	v := NewVisitedSet(0)
	// Plant a different title under the hash of "B".
	v.primary[xxhash.Sum64String("B")] = "impostor"

	assert.False(t, v.Contains("B"))
	assert.True(t, v.Insert("B"))
	assert.False(t, v.Insert("B"))
	assert.True(t, v.Contains("B"))
	assert.Equal(t, 2, v.Len())
}

func TestFrontierOrder(t *testing.T) {
	var f frontier
	assert.Nil(t, f.Pop())

	next := 0
	pushed := 0
	// Interleave pushes and pops across several block boundaries.
	for round := 0; round < 5; round++ {
		for i := 0; i < frontierChunk+7; i++ {
			f.Push(Root(fmt.Sprint(pushed)))
			pushed++
		}
		for i := 0; i < frontierChunk/2; i++ {
			n := f.Pop()
			require.NotNil(t, n)
			require.Equal(t, fmt.Sprint(next), n.Title)
			next++
		}
	}
	for f.Len() > 0 {
		require.Equal(t, fmt.Sprint(next), f.Pop().Title)
		next++
	}
	assert.Equal(t, pushed, next)
	assert.Nil(t, f.Pop())

	f.Push(Root("again"))
	assert.Equal(t, "again", f.Pop().Title)
}

func TestPathSharing(t *testing.T) {
	root := Root("A")
	b := Extend(root, "B", HopRedirect)
	c1 := Extend(b, "C1", HopDirect)
	c2 := Extend(b, "C2", HopDirect)

	assert.Same(t, c1.Parent, c2.Parent)
	assert.Equal(t, int32(1), c1.Depth)
	assert.Equal(t, int32(0), b.Depth)

	assert.Equal(t, []Hop{
		{Title: "A", Kind: HopStart},
		{Title: "B", Kind: HopRedirect},
		{Title: "C2", Kind: HopDirect},
	}, c2.Path())
	assert.Equal(t, 1, DirectHops(c2.Path()))
}

func TestHopJSON(t *testing.T) {
	data, err := json.Marshal(Hop{Title: "B", Kind: HopRedirect})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"B","kind":"redirect"}`, string(data))

	var h Hop
	require.NoError(t, json.Unmarshal([]byte(`{"title":"X","kind":"normalized"}`), &h))
	assert.Equal(t, HopNormalized, h.Kind)
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"sideways"}`), &h))
}

func TestNormalizers(t *testing.T) {
	cases := []struct {
		in, first, word string
	}{
		{"paris", "Paris", "Paris"},
		{"paul singer (businessman)", "Paul singer (businessman)", "Paul Singer (Businessman)"},
		{"élan vital", "Élan vital", "Élan Vital"},
		{"iPhone", "IPhone", "IPhone"},
		{"Already Fine", "Already Fine", "Already Fine"},
		{"", "", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.first, FirstLetter(tc.in), "FirstLetter(%q)", tc.in)
		assert.Equal(t, tc.word, WordInitial(tc.in), "WordInitial(%q)", tc.in)
	}
}

func TestParseNormalizer(t *testing.T) {
	n, err := ParseNormalizer("none")
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = ParseNormalizer(" First-Letter ")
	require.NoError(t, err)
	assert.Equal(t, "Bedford", n("bedford"))

	n, err = ParseNormalizer(NormalizeWordInitial)
	require.NoError(t, err)
	assert.Equal(t, "New York", n("new york"))

	_, err = ParseNormalizer("shouty")
	assert.ErrorIs(t, err, ErrInvalidOption)
}
