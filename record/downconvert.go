package record

import (
	"fmt"

	"github.com/ridge/shale/compress"
)

// DownConvert rewrites the set so that a reader limited to the target magic
// can parse every batch.
//
// Batches whose magic is already compatible are copied verbatim, without ever
// being decoded. Newer batches are decoded (decompressing if needed) and
// re-encoded at the target magic with their original compression. The
// re-encoding is lossy by design where the target format is less expressive:
// control records are dropped entirely for targets below magic 2, headers are
// dropped, and timestamps are dropped for magic 0 targets.
//
// A set with no decodable batches is returned unchanged: it means the
// supplied region is too small for even one batch, and the caller must
// propagate that condition rather than treat the result as converted.
//
// The returned set always owns a freshly allocated region; it never aliases
// the input's bytes.
func (s Set) DownConvert(target byte) (Set, error) {
	if target > MagicNewest {
		return Set{}, fmt.Errorf("%w: cannot convert to magic %d", ErrUnsupportedMagic, target)
	}

	// One forward pass: classify the batches and size the output. Batches
	// that need conversion are decoded here and the decoded records kept, so
	// that decompression happens only once.
	type pending struct {
		batch      Batch
		records    []Record // nil for batches passed through verbatim
		baseOffset int64
		size       int
	}
	var batches []pending
	total := 0

	it := s.Batches()
	for it.Next() {
		batch := *it.Batch()
		if batch.Magic() <= target {
			total += batch.SizeInBytes()
			batches = append(batches, pending{batch: batch})
			continue
		}

		records, err := batch.decode()
		if err != nil {
			return Set{}, err
		}
		if len(records) == 0 {
			// nothing a legacy batch could carry for an empty source batch
			continue
		}
		baseOffset := batch.BaseOffset()
		if batch.Magic() < MagicNewest {
			// legacy batches have no independent base offset field
			baseOffset = records[0].Offset
		}
		size := EstimateSize(target, baseOffset, batch.Compression(), records)
		total += size
		batches = append(batches, pending{batch: batch, records: records, baseOffset: baseOffset, size: size})
	}
	if err := it.Err(); err != nil {
		return Set{}, err
	}
	if len(batches) == 0 {
		return s, nil
	}

	// Second pass: write everything into one shared output region. Verbatim
	// copies land exactly; converted batches may end up shorter (dropped
	// records, dropped fields) or, when compressed, longer than the
	// heuristic estimate, in which case the builder grows the region.
	out := make([]byte, 0, total)
	for _, p := range batches {
		if p.records == nil {
			out = append(out, p.batch.data...)
			continue
		}
		before := len(out)
		var err error
		if out, err = convertBatch(out, target, &p.batch, p.records, p.baseOffset); err != nil {
			return Set{}, err
		}
		if target < MagicNewest && p.batch.Compression() == compress.None && len(out)-before > p.size {
			// legacy sizing is exact arithmetic; overrunning it means the
			// encoder is broken, not that the input was bad
			panic(fmt.Errorf("legacy batch encoding wrote %d bytes into %d", len(out)-before, p.size))
		}
	}
	return NewSet(out), nil
}

func convertBatch(out []byte, target byte, batch *Batch, records []Record, baseOffset int64) ([]byte, error) {
	timestampType := batch.TimestampType()
	logAppendTime := NoTimestamp
	if timestampType == LogAppendTime {
		logAppendTime = batch.MaxTimestamp()
	}

	builder := NewBuilder(BuilderConfig{
		Buffer:        out,
		Magic:         target,
		Compression:   batch.Compression(),
		TimestampType: timestampType,
		BaseOffset:    baseOffset,
		LogAppendTime: logAppendTime,
	})
	for _, r := range records {
		if target < MagicNewest {
			if r.Control {
				// older formats cannot represent control records
				continue
			}
			builder.AppendWithOffset(r.Offset, r.Timestamp, r.Key, r.Value)
		} else {
			builder.AppendRecord(r)
		}
	}
	return builder.Close()
}
