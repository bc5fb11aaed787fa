package record

import (
	"math/rand"
	"testing"

	"github.com/ridge/shale/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triple struct {
	offset     int64
	key, value string
}

func collectTriples(t *testing.T, set Set) []triple {
	t.Helper()
	var out []triple
	it := set.Records()
	for it.Next() {
		r := it.Record()
		out = append(out, triple{offset: r.Offset, key: string(r.Key), value: string(r.Value)})
	}
	require.NoError(t, it.Err())
	return out
}

func TestDownConvertPassThrough(t *testing.T) {
	t.Parallel()

	for _, magic := range []byte{MagicV0, MagicV1, MagicNewest} {
		set := buildSet(t, magic, compress.None, []string{"a", "b"}, []string{"c"})
		for target := magic; target <= MagicNewest; target++ {
			converted, err := set.DownConvert(target)
			require.NoError(t, err)
			// compatible batches are copied verbatim
			assert.Equal(t, set.Bytes(), converted.Bytes())
		}
	}
}

func TestDownConvertAllocatesFreshRegion(t *testing.T) {
	t.Parallel()

	set := buildSet(t, MagicV1, compress.None, []string{"a"})
	converted, err := set.DownConvert(MagicV1)
	require.NoError(t, err)
	assert.Equal(t, set.Bytes(), converted.Bytes())
	assert.NotSame(t, &set.Bytes()[0], &converted.Bytes()[0])
}

func TestDownConvertRoundTrip(t *testing.T) {
	t.Parallel()

	records := []Record{
		{Offset: 100, Timestamp: 1000, Key: []byte("k0"), Value: []byte("v0"),
			Headers: []Header{{Key: "h", Value: []byte("x")}}},
		{Offset: 101, Timestamp: 1001, Value: []byte("v1")},
		{Offset: 103, Timestamp: 1003, Key: []byte("k2"), Value: []byte("v2")},
	}
	want := []triple{
		{offset: 100, key: "k0", value: "v0"},
		{offset: 101, key: "", value: "v1"},
		{offset: 103, key: "k2", value: "v2"},
	}

	for _, codec := range []compress.Type{compress.None, compress.Gzip, compress.Lz4} {
		codec := codec
		t.Run(codec.String(), func(t *testing.T) {
			t.Parallel()
			encoded := buildDefaultBatch(t, BuilderConfig{
				Compression:   codec,
				TimestampType: CreateTime,
				BaseOffset:    100,
			}, records)
			set := NewSet(encoded)

			for target := MagicV0; target <= MagicV1; target++ {
				converted, err := set.DownConvert(target)
				require.NoError(t, err)
				assert.True(t, converted.HasCompatibleMagic(target))
				assert.Equal(t, want, collectTriples(t, converted))

				it := converted.Records()
				for it.Next() {
					r := it.Record()
					// headers are always dropped, timestamps only for magic 0
					assert.Empty(t, r.Headers)
					if target == MagicV0 {
						assert.Equal(t, NoTimestamp, r.Timestamp)
					} else {
						assert.Equal(t, r.Offset+900, r.Timestamp)
					}
				}
				require.NoError(t, it.Err())
			}
		})
	}
}

func TestDownConvertControlRecords(t *testing.T) {
	t.Parallel()

	control := buildDefaultBatch(t, BuilderConfig{
		TimestampType: CreateTime,
		Control:       true,
	}, []Record{{Offset: 0, Timestamp: 1, Value: []byte("marker")}})
	normal := buildDefaultBatch(t, BuilderConfig{
		TimestampType: CreateTime,
		BaseOffset:    1,
	}, []Record{{Offset: 1, Timestamp: 2, Value: []byte("data")}})
	set := NewSet(append(append([]byte(nil), control...), normal...))

	// intact at magic 2
	same, err := set.DownConvert(MagicNewest)
	require.NoError(t, err)
	var values []string
	it := same.Records()
	for it.Next() {
		values = append(values, string(it.Record().Value))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"marker", "data"}, values)

	// silently dropped at magic 1: the legacy format cannot express them
	converted, err := set.DownConvert(MagicV1)
	require.NoError(t, err)
	values = nil
	it = converted.Records()
	for it.Next() {
		assert.False(t, it.Record().Control)
		values = append(values, string(it.Record().Value))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"data"}, values)
}

func TestDownConvertEmptySet(t *testing.T) {
	t.Parallel()

	// 3 bytes cannot hold a batch header: the set has zero batches and
	// conversion hands the region back untouched
	set := NewSet([]byte{1, 2, 3})
	converted, err := set.DownConvert(MagicV0)
	require.NoError(t, err)
	assert.Equal(t, set.Bytes(), converted.Bytes())

	it := converted.Batches()
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestDownConvertUnknownMagic(t *testing.T) {
	t.Parallel()

	set := buildSet(t, MagicNewest, compress.None, []string{"a"})
	data := append([]byte(nil), set.Bytes()...)
	data[magicOffset] = 5

	_, err := NewSet(data).DownConvert(MagicV1)
	assert.ErrorIs(t, err, ErrUnsupportedMagic)

	_, err = set.DownConvert(3)
	assert.ErrorIs(t, err, ErrUnsupportedMagic)
}

func TestDownConvertMixedSet(t *testing.T) {
	t.Parallel()

	legacy := buildSet(t, MagicV1, compress.None, []string{"old"})
	newer := buildDefaultBatch(t, BuilderConfig{
		TimestampType: CreateTime,
		BaseOffset:    1,
	}, []Record{{Offset: 1, Timestamp: 2, Value: []byte("new")}})
	set := NewSet(append(append([]byte(nil), legacy.Bytes()...), newer...))

	converted, err := set.DownConvert(MagicV1)
	require.NoError(t, err)
	assert.True(t, converted.HasMatchingMagic(MagicV1))
	assert.Equal(t, []triple{
		{offset: 0, value: "old"},
		{offset: 1, value: "new"},
	}, collectTriples(t, converted))

	// the pass-through prefix stays byte-identical
	assert.Equal(t, legacy.Bytes(), converted.Bytes()[:legacy.SizeInBytes()])
}

func TestDownConvertLogAppendTime(t *testing.T) {
	t.Parallel()

	encoded := buildDefaultBatch(t, BuilderConfig{
		TimestampType: LogAppendTime,
		LogAppendTime: 5555,
	}, []Record{
		{Offset: 0, Timestamp: 1, Value: []byte("a")},
		{Offset: 1, Timestamp: 2, Value: []byte("b")},
	})

	converted, err := NewSet(encoded).DownConvert(MagicV1)
	require.NoError(t, err)

	it := converted.Batches()
	require.True(t, it.Next())
	assert.Equal(t, LogAppendTime, it.Batch().TimestampType())

	records := converted.Records()
	for records.Next() {
		assert.Equal(t, int64(5555), records.Record().Timestamp)
	}
	require.NoError(t, records.Err())
}

func TestDownConvertLegacyCompressedToOlder(t *testing.T) {
	t.Parallel()

	// magic 1 compressed wrapper converted down to magic 0
	builder := NewBuilder(BuilderConfig{
		Magic:         MagicV1,
		Compression:   compress.Gzip,
		TimestampType: CreateTime,
		BaseOffset:    10,
		LogAppendTime: NoTimestamp,
	})
	builder.AppendWithOffset(10, 1000, []byte("a"), []byte("1"))
	builder.AppendWithOffset(11, 1001, []byte("b"), []byte("2"))
	encoded, err := builder.Close()
	require.NoError(t, err)

	converted, err := NewSet(encoded).DownConvert(MagicV0)
	require.NoError(t, err)
	assert.True(t, converted.HasMatchingMagic(MagicV0))
	assert.Equal(t, []triple{
		{offset: 10, key: "a", value: "1"},
		{offset: 11, key: "b", value: "2"},
	}, collectTriples(t, converted))
}

func TestDownConvertGrowsPastEstimate(t *testing.T) {
	t.Parallel()

	// ~200KB of incompressible data: the compressed-size heuristic caps at
	// 64KB, so the builder must grow the output region
	rnd := rand.New(rand.NewSource(1))
	records := make([]Record, 20)
	for i := range records {
		value := make([]byte, 10000)
		rnd.Read(value)
		records[i] = Record{Offset: int64(i), Timestamp: int64(i), Value: value}
	}
	encoded := buildDefaultBatch(t, BuilderConfig{
		Compression:   compress.Gzip,
		TimestampType: CreateTime,
	}, records)

	converted, err := NewSet(encoded).DownConvert(MagicV1)
	require.NoError(t, err)
	assert.Greater(t, converted.SizeInBytes(), 65536)

	got := collectTriples(t, converted)
	require.Len(t, got, len(records))
	for i, r := range records {
		assert.Equal(t, r.Offset, got[i].offset)
		assert.Equal(t, string(r.Value), got[i].value)
	}
}
