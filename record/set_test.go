package record

import (
	"encoding/binary"
	"testing"

	"github.com/ridge/shale/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSet encodes one batch per records slice, all at the same magic,
// assigning consecutive offsets across batches
func buildSet(t *testing.T, magic byte, codec compress.Type, batches ...[]string) Set {
	t.Helper()
	var out []byte
	offset := int64(0)
	for _, values := range batches {
		timestampType := CreateTime
		if magic == MagicV0 {
			timestampType = NoTimestampType
		}
		builder := NewBuilder(BuilderConfig{
			Buffer:        out,
			Magic:         magic,
			Compression:   codec,
			TimestampType: timestampType,
			BaseOffset:    offset,
			LogAppendTime: NoTimestamp,
		})
		for _, v := range values {
			builder.Append(int64(1000+offset), nil, []byte(v))
			offset++
		}
		var err error
		out, err = builder.Close()
		require.NoError(t, err)
	}
	return NewSet(out)
}

func TestSetBatches(t *testing.T) {
	t.Parallel()

	set := buildSet(t, MagicNewest, compress.None, []string{"a", "b"}, []string{"c"})

	var bases []int64
	it := set.Batches()
	for it.Next() {
		bases = append(bases, it.Batch().BaseOffset())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int64{0, 2}, bases)

	// the iterator is exhausted after one pass
	assert.False(t, it.Next())
}

func TestSetRecords(t *testing.T) {
	t.Parallel()

	set := buildSet(t, MagicV1, compress.None, []string{"a", "b"}, []string{"c"})

	var values []string
	var offsets []int64
	it := set.Records()
	for it.Next() {
		values = append(values, string(it.Record().Value))
		offsets = append(offsets, it.Record().Offset)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"a", "b", "c"}, values)
	assert.Equal(t, []int64{0, 1, 2}, offsets)

	// a second traversal decodes again from scratch
	it = set.Records()
	require.True(t, it.Next())
	assert.Equal(t, "a", string(it.Record().Value))
}

func TestSetEmptyRegions(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, {}, {1, 2, 3}} {
		set := NewSet(data)
		it := set.Batches()
		assert.False(t, it.Next())
		assert.NoError(t, it.Err())

		records := set.Records()
		assert.False(t, records.Next())
		assert.NoError(t, records.Err())
	}
}

func TestSetTruncatedTail(t *testing.T) {
	t.Parallel()

	set := buildSet(t, MagicNewest, compress.None, []string{"a"}, []string{"b"})
	// cut into the second batch: iteration ends cleanly after the first
	data := set.Bytes()[:set.SizeInBytes()-5]

	it := NewSet(data).Batches()
	require.True(t, it.Next())
	assert.Equal(t, int64(0), it.Batch().BaseOffset())
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestHasMatchingMagic(t *testing.T) {
	t.Parallel()

	for _, magic := range []byte{MagicV0, MagicV1, MagicNewest} {
		set := buildSet(t, magic, compress.None, []string{"a"}, []string{"b"})
		for m := MagicV0; m <= MagicNewest; m++ {
			assert.Equal(t, m == magic, set.HasMatchingMagic(m))
		}
	}

	// vacuously true on an empty set, for every magic
	empty := NewSet(nil)
	for m := MagicV0; m <= MagicNewest; m++ {
		assert.True(t, empty.HasMatchingMagic(m))
	}
}

func TestHasCompatibleMagic(t *testing.T) {
	t.Parallel()

	for _, magic := range []byte{MagicV0, MagicV1, MagicNewest} {
		set := buildSet(t, magic, compress.None, []string{"a"})
		// monotonic in the argument
		for m := MagicV0; m <= MagicNewest; m++ {
			assert.Equal(t, magic <= m, set.HasCompatibleMagic(m))
		}
	}

	empty := NewSet(nil)
	for m := MagicV0; m <= MagicNewest; m++ {
		assert.True(t, empty.HasCompatibleMagic(m))
	}
}

func TestUnknownMagic(t *testing.T) {
	t.Parallel()

	data := make([]byte, LogOverhead+20)
	binary.BigEndian.PutUint32(data[sizeOffset:], 20)
	data[magicOffset] = 3

	it := NewSet(data).Batches()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrUnsupportedMagic)

	assert.False(t, NewSet(data).HasMatchingMagic(3))
	assert.False(t, NewSet(data).HasCompatibleMagic(MagicNewest))
}

func TestBatchSizeBelowMinimum(t *testing.T) {
	t.Parallel()

	data := make([]byte, LogOverhead+20)
	binary.BigEndian.PutUint32(data[sizeOffset:], 5)

	it := NewSet(data).Batches()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrCorrupt)
}
