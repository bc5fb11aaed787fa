package record

import (
	"github.com/ridge/shale/compress"
)

// Bounds of the compressed size heuristic, see estimateCompressedSize
const (
	compressedSizeMin = 1024
	compressedSizeMax = 1 << 16
)

// maxRecordOverhead is the worst-case encoded size of everything in a magic 2
// record except the key, value and headers: length, attributes, and the
// timestamp and offset deltas at their maximum varint widths.
const maxRecordOverhead = 21

// EstimateSize computes the encoded size of the records at the given magic
// with the given compression.
//
// For uncompressed output the result is exact: for magic 0/1 it is a purely
// additive per-record sum with no shared header, for magic 2 the envelope
// header plus the variable-length record encodings with offsets and
// timestamps taken as deltas against baseOffset and the first record's
// timestamp.
//
// For compressed output the result is a heuristic that may undershoot;
// Builder tolerates that by growing its buffer.
func EstimateSize(magic byte, baseOffset int64, compression compress.Type, records []Record) int {
	var size int
	if magic < MagicNewest {
		for _, r := range records {
			size += LogOverhead + legacyRecordSize(magic, len(r.Key), len(r.Value))
		}
	} else {
		size = defaultBatchSize(baseOffset, records)
	}
	return estimateCompressedSize(size, compression)
}

// SizeUpperBound returns the worst-case encoded size of a single record with
// the given key and value, without any batch amortization: for magic 2 a
// whole envelope holding one record with maximum-width varints. Use it to
// decide whether a record fits a size limit before a batch is finalized.
func SizeUpperBound(magic byte, key, value []byte) int {
	if magic >= MagicNewest {
		return batchOverhead + maxRecordOverhead + varBytesSize(key) + varBytesSize(value) + varintSize(0)
	}
	return LogOverhead + legacyRecordSize(magic, len(key), len(value))
}

func defaultBatchSize(baseOffset int64, records []Record) int {
	size := batchOverhead
	firstTimestamp := int64(0)
	for i, r := range records {
		if i == 0 {
			firstTimestamp = r.Timestamp
		}
		size += defaultRecordSize(r.Offset-baseOffset, r.Timestamp-firstTimestamp, r)
	}
	return size
}

func defaultRecordSize(offsetDelta, timestampDelta int64, r Record) int {
	body := 1 + varintSize(timestampDelta) + varintSize(offsetDelta) +
		varBytesSize(r.Key) + varBytesSize(r.Value) + varintSize(int64(len(r.Headers)))
	for _, h := range r.Headers {
		body += varintSize(int64(len(h.Key))) + len(h.Key) + varBytesSize(h.Value)
	}
	return body + varintSize(int64(body))
}

// estimateCompressedSize replaces an exact uncompressed size with an estimate
// for compressed output: half the uncompressed size, clamped to
// [1024, 65536]. Running the real compressor just to size a scratch buffer
// would defeat the purpose; consumers depend on these exact bounds for their
// buffer-growth behavior, so they must be preserved as is.
func estimateCompressedSize(size int, compression compress.Type) int {
	if compression == compress.None {
		return size
	}
	size /= 2
	if size < compressedSizeMin {
		return compressedSizeMin
	}
	if size > compressedSizeMax {
		return compressedSizeMax
	}
	return size
}
