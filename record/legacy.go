package record

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/ridge/shale/compress"
)

// legacyEntry is one offset+size-prefixed record of a magic 0/1 batch, either
// the outer (possibly wrapper) record or one of the records inside a
// compressed wrapper.
type legacyEntry struct {
	offset    int64
	magic     byte
	attr      byte
	timestamp int64 // NoTimestamp for magic 0
	key       []byte
	value     []byte
	size      int // encoded size including the LogOverhead prefix
}

// parseLegacyEntry decodes one entry at the start of data and verifies its
// CRC
func parseLegacyEntry(data []byte) (legacyEntry, error) {
	if len(data) < LogOverhead {
		return legacyEntry{}, fmt.Errorf("%w: %d bytes left for a record", ErrCorrupt, len(data))
	}
	size := int(readInt32(data, sizeOffset))
	if size < legacyRecordOverheadV0 {
		return legacyEntry{}, fmt.Errorf("%w: record size %d below minimum", ErrCorrupt, size)
	}
	if len(data) < LogOverhead+size {
		return legacyEntry{}, fmt.Errorf("%w: record of %d bytes truncated to %d", ErrCorrupt, size, len(data)-LogOverhead)
	}

	rec := data[LogOverhead : LogOverhead+size]
	if crc := crc32.ChecksumIEEE(rec[4:]); crc != binary.BigEndian.Uint32(rec) {
		return legacyEntry{}, fmt.Errorf("%w: CRC mismatch", ErrCorrupt)
	}

	entry := legacyEntry{
		offset:    readInt64(data, 0),
		magic:     rec[4],
		attr:      rec[5],
		timestamp: NoTimestamp,
		size:      LogOverhead + size,
	}
	if entry.magic > MagicV1 {
		return legacyEntry{}, fmt.Errorf("%w: magic %d in a legacy record", ErrUnsupportedMagic, entry.magic)
	}

	pos := 6
	if entry.magic >= MagicV1 {
		if size < legacyRecordOverheadV1 {
			return legacyEntry{}, fmt.Errorf("%w: record size %d below minimum", ErrCorrupt, size)
		}
		entry.timestamp = readInt64(rec, pos)
		pos += 8
	}

	var err error
	if entry.key, pos, err = readLegacyBytes(rec, pos); err != nil {
		return legacyEntry{}, err
	}
	if entry.value, pos, err = readLegacyBytes(rec, pos); err != nil {
		return legacyEntry{}, err
	}
	if pos != size {
		return legacyEntry{}, fmt.Errorf("%w: %d trailing bytes in a record", ErrCorrupt, size-pos)
	}
	return entry, nil
}

// readLegacyBytes reads an int32-length-prefixed byte sequence; length -1
// means nil
func readLegacyBytes(rec []byte, pos int) ([]byte, int, error) {
	if len(rec) < pos+4 {
		return nil, 0, fmt.Errorf("%w: record too short", ErrCorrupt)
	}
	n := int(readInt32(rec, pos))
	pos += 4
	if n == -1 {
		return nil, pos, nil
	}
	if n < 0 || len(rec) < pos+n {
		return nil, 0, fmt.Errorf("%w: bad byte sequence length %d", ErrCorrupt, n)
	}
	return rec[pos : pos+n : pos+n], pos + n, nil
}

func (b *Batch) decodeLegacy() ([]Record, error) {
	entry, err := parseLegacyEntry(b.data)
	if err != nil {
		return nil, err
	}

	codec := compress.Type(entry.attr & compressionMask)
	if codec == compress.None {
		return []Record{{
			Offset:    entry.offset,
			Timestamp: entry.timestamp,
			Key:       entry.key,
			Value:     entry.value,
			Size:      entry.size,
		}}, nil
	}

	// A compressed legacy batch is a wrapper record whose value holds the
	// compressed sequence of inner records. For magic 1, inner offsets are
	// relative and the wrapper carries the absolute offset of the last inner
	// record.
	inner, err := codec.Decompress(entry.value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, err)
	}

	var records []Record
	for pos := 0; pos < len(inner); {
		e, err := parseLegacyEntry(inner[pos:])
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			Offset:    e.offset,
			Timestamp: e.timestamp,
			Key:       e.key,
			Value:     e.value,
			Size:      e.size,
		})
		pos += e.size
	}

	if b.Magic() > MagicV0 && len(records) > 0 {
		base := entry.offset - records[len(records)-1].Offset
		for i := range records {
			records[i].Offset += base
		}
	}
	if b.TimestampType() == LogAppendTime {
		for i := range records {
			records[i].Timestamp = entry.timestamp
		}
	}
	return records, nil
}

// legacyRecordSize returns the encoded size of a magic 0/1 record without its
// LogOverhead prefix. The arithmetic is exact, never an estimate.
func legacyRecordSize(magic byte, keyLen, valueLen int) int {
	overhead := legacyRecordOverheadV0
	if magic >= MagicV1 {
		overhead = legacyRecordOverheadV1
	}
	return overhead + keyLen + valueLen
}

// appendLegacyEntry appends one offset+size-prefixed record, filling in its
// CRC
func appendLegacyEntry(out []byte, offset int64, magic, attr byte, timestamp int64, key, value []byte) []byte {
	out = appendInt64(out, offset)
	out = appendInt32(out, int32(legacyRecordSize(magic, len(key), len(value))))
	crcPos := len(out)
	out = append(out, 0, 0, 0, 0)
	out = append(out, magic, attr)
	if magic >= MagicV1 {
		out = appendInt64(out, timestamp)
	}
	out = appendLegacyBytes(out, key)
	out = appendLegacyBytes(out, value)
	binary.BigEndian.PutUint32(out[crcPos:], crc32.ChecksumIEEE(out[crcPos+4:]))
	return out
}

func appendLegacyBytes(out []byte, b []byte) []byte {
	if b == nil {
		return appendInt32(out, -1)
	}
	out = appendInt32(out, int32(len(b)))
	return append(out, b...)
}
