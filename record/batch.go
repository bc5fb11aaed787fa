package record

import (
	"github.com/ridge/shale/compress"
)

// Batch is a read-only view of one encoded batch, including its LogOverhead
// prefix. Header fields are read directly from the underlying bytes; the
// contained records are not decoded (and the payload not decompressed) until
// Records is traversed.
type Batch struct {
	data []byte
}

// Magic returns the format version of the batch
func (b *Batch) Magic() byte {
	return b.data[magicOffset]
}

// SizeInBytes returns the full encoded size of the batch, LogOverhead
// included
func (b *Batch) SizeInBytes() int {
	return len(b.data)
}

// Bytes returns the encoded bytes of the batch. The caller must not modify
// them.
func (b *Batch) Bytes() []byte {
	return b.data
}

func (b *Batch) attributes() int16 {
	if b.Magic() < MagicNewest {
		return int16(b.data[legacyAttributesOffset])
	}
	return readInt16(b.data, attributesOffset)
}

// Compression returns the compression codec of the batch payload
func (b *Batch) Compression() compress.Type {
	return compress.Type(b.attributes() & compressionMask)
}

// TimestampType tells how the timestamps of the batch were assigned.
// NoTimestampType for magic 0.
func (b *Batch) TimestampType() TimestampType {
	switch {
	case b.Magic() == MagicV0:
		return NoTimestampType
	case b.attributes()&timestampTypeMask != 0:
		return LogAppendTime
	default:
		return CreateTime
	}
}

// BaseOffset returns the first 8 bytes of the batch. For magic 2 this is the
// independent base offset that record offsets are deltas against. Legacy
// batches have no independent base: for them this is the offset of the
// single record, which for a compressed wrapper is the absolute offset of
// the last record inside.
func (b *Batch) BaseOffset() int64 {
	return readInt64(b.data, 0)
}

// MaxTimestamp returns the largest timestamp in the batch, or NoTimestamp
// for magic 0
func (b *Batch) MaxTimestamp() int64 {
	switch {
	case b.Magic() == MagicV0:
		return NoTimestamp
	case b.Magic() < MagicNewest:
		return readInt64(b.data, legacyTimestampOffset)
	default:
		return readInt64(b.data, maxTimestampOffset)
	}
}

// Control reports whether the batch holds control records (magic 2 only)
func (b *Batch) Control() bool {
	return b.Magic() == MagicNewest && b.attributes()&controlMask != 0
}

// Records returns an iterator over the decoded records of the batch,
// decompressing the payload if necessary. The result of the decoding is not
// cached: each call repeats the work.
func (b *Batch) Records() *RecordIterator {
	batch := *b
	return &RecordIterator{single: &batch}
}

func (b *Batch) decode() ([]Record, error) {
	if b.Magic() < MagicNewest {
		return b.decodeLegacy()
	}
	return b.decodeDefault()
}
