package record

import (
	"encoding/binary"
	"hash/crc32"
)

// LogOverhead is the size of the offset+size prefix before every encoded
// batch, used for sequential scanning.
const LogOverhead = 12

// Field positions within an encoded batch, counted from the start of the
// LogOverhead prefix. The magic byte is at the same position in every format
// version: after the prefix and a 4-byte field (CRC for legacy batches,
// partition leader epoch for magic 2).
const (
	sizeOffset  = 8
	magicOffset = 16
)

// Legacy batch (magic 0/1) layout: CRC, magic, attributes, timestamp (magic 1
// only), key length + key, value length + value.
const (
	legacyCRCOffset        = 12
	legacyAttributesOffset = 17
	legacyTimestampOffset  = 18

	legacyRecordOverheadV0 = 14 // CRC + magic + attributes + key and value lengths
	legacyRecordOverheadV1 = legacyRecordOverheadV0 + 8
)

// Magic 2 envelope layout
const (
	crcOffset             = 17
	attributesOffset      = 21
	lastOffsetDeltaOffset = 23
	firstTimestampOffset  = 27
	maxTimestampOffset    = 35
	producerIDOffset      = 43
	producerEpochOffset   = 51
	baseSequenceOffset    = 53
	recordCountOffset     = 57
	recordsOffset         = 61

	// batchOverhead is the size of the whole envelope header, LogOverhead
	// included.
	batchOverhead = 61
)

// Attribute bits. Attributes are one byte in legacy batches and two bytes in
// magic 2; the assignments below are shared between both.
const (
	compressionMask   = 0x07
	timestampTypeMask = 0x08
	transactionalMask = 0x10
	controlMask       = 0x20
)

// Legacy batches use CRC-32 (IEEE), magic 2 batches use CRC-32C.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func appendInt16(b []byte, v int16) []byte {
	return binary.BigEndian.AppendUint16(b, uint16(v))
}

func appendInt32(b []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(b, uint32(v))
}

func appendInt64(b []byte, v int64) []byte {
	return binary.BigEndian.AppendUint64(b, uint64(v))
}

func readInt16(b []byte, pos int) int16 {
	return int16(binary.BigEndian.Uint16(b[pos:]))
}

func readInt32(b []byte, pos int) int32 {
	return int32(binary.BigEndian.Uint32(b[pos:]))
}

func readInt64(b []byte, pos int) int64 {
	return int64(binary.BigEndian.Uint64(b[pos:]))
}

// varintSize returns the encoded size of a zigzag varint, the variable-length
// integer encoding used by magic 2 records.
func varintSize(v int64) int {
	ux := uint64(v)<<1 ^ uint64(v>>63)
	n := 1
	for ux >= 0x80 {
		ux >>= 7
		n++
	}
	return n
}

// varBytesSize returns the encoded size of a length-prefixed byte sequence;
// nil encodes as length -1 with no payload.
func varBytesSize(b []byte) int {
	if b == nil {
		return varintSize(-1)
	}
	return varintSize(int64(len(b))) + len(b)
}

func appendVarBytes(out []byte, b []byte) []byte {
	if b == nil {
		return binary.AppendVarint(out, -1)
	}
	out = binary.AppendVarint(out, int64(len(b)))
	return append(out, b...)
}
