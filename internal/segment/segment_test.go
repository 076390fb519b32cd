package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "terminator boundaries",
			text: "The cat sat. The dog barked! Did it rain?",
			want: []string{"The cat sat.", "The dog barked!", "Did it rain?"},
		},
		{
			name: "newline boundary without terminator",
			text: "first line\nsecond line",
			want: []string{"first line", "second line"},
		},
		{
			name: "trailing text without terminator",
			text: "Complete sentence. Dangling fragment",
			want: []string{"Complete sentence.", "Dangling fragment"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: "   \n  \n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestSegmenter_New(t *testing.T) {
	seg, err := New("cl100k_base")
	require.NoError(t, err)
	assert.Equal(t, "cl100k_base", seg.Encoding())

	_, err = New("no_such_encoding")
	assert.Error(t, err)
}

func TestSegmenter_Segment(t *testing.T) {
	seg, err := New("cl100k_base")
	require.NoError(t, err)

	doc := seg.Segment("The cat sat on the mat. The dog barked loudly.")

	require.Equal(t, 2, doc.NumUnits())
	require.Equal(t, len(doc.TokenIDs), len(doc.UnitIDs))
	assert.Positive(t, doc.Len())

	// Unit ids are non-decreasing and cover exactly units 0..NumUnits-1.
	prev := int32(0)
	for _, u := range doc.UnitIDs {
		assert.GreaterOrEqual(t, u, prev)
		assert.Less(t, u, int32(doc.NumUnits()))
		prev = u
	}
	assert.Equal(t, int32(0), doc.UnitIDs[0])
	assert.Equal(t, int32(1), doc.UnitIDs[len(doc.UnitIDs)-1])
}

func TestSegmenter_SegmentEmpty(t *testing.T) {
	seg, err := New("cl100k_base")
	require.NoError(t, err)

	doc := seg.Segment("")
	assert.Zero(t, doc.Len())
	assert.Zero(t, doc.NumUnits())
}

func TestSegmenter_DecodeRoundtrip(t *testing.T) {
	seg, err := New("cl100k_base")
	require.NoError(t, err)

	doc := seg.Segment("Hello, world!")
	assert.Equal(t, "Hello, world!", seg.Decode(doc.TokenIDs))
}

func TestPad(t *testing.T) {
	docs := []Document{
		{
			TokenIDs: []int32{10, 11, 12},
			UnitIDs:  []int32{0, 0, 1},
			Units:    []string{"a.", "b."},
		},
		{
			TokenIDs: []int32{20},
			UnitIDs:  []int32{0},
			Units:    []string{"c."},
		},
	}

	batch := Pad(docs)

	assert.Equal(t, 3, batch.MaxLen)
	assert.Equal(t, 2, batch.MaxUnits)
	assert.Equal(t, []int32{3, 1}, batch.Lengths)
	assert.Equal(t, []int32{10, 11, 12, 20, 0, 0}, batch.TokenIDs)

	// Padding positions carry unit 0, the convention the rescaler's
	// padded-position invariant depends on.
	assert.Equal(t, []int32{0, 0, 1, 0, 0, 0}, batch.UnitIDs)
}

func TestPadEmpty(t *testing.T) {
	batch := Pad(nil)
	assert.Zero(t, batch.MaxLen)
	assert.Empty(t, batch.TokenIDs)
	assert.Empty(t, batch.Lengths)
}
