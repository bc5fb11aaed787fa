package record

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/ridge/shale/compress"
)

// BuilderConfig configures a Builder
type BuilderConfig struct {
	// Buffer is the initial backing storage. The encoded batch is appended
	// to it; the builder owns it until Close hands it back, possibly
	// reallocated.
	Buffer []byte

	Magic         byte
	Compression   compress.Type
	TimestampType TimestampType

	// BaseOffset is the offset of the first record. For magic 2 it is
	// written into the envelope; for compressed magic 1 batches it anchors
	// the relative offsets inside the wrapper.
	BaseOffset int64

	// LogAppendTime replaces the timestamps of all appended records when
	// TimestampType is LogAppendTime. NoTimestamp otherwise.
	LogAppendTime int64

	// Control marks the batch as a control batch. Magic 2 only.
	Control bool
}

// Builder encodes one batch record by record. Create it with NewBuilder,
// append records in increasing offset order, then call Close exactly once.
//
// The builder grows its backing storage as needed, so a caller sizing the
// initial buffer with EstimateSize never has to handle an undershooting
// compression estimate.
//
// Misuse (appending out of order, appending after Close, control records at
// a magic that cannot carry them) panics: these are programming errors, not
// runtime conditions.
type Builder struct {
	cfg    BuilderConfig
	recbuf []byte // staged record section, uncompressed

	count          int
	nextOffset     int64
	lastOffset     int64
	firstTimestamp int64
	maxTimestamp   int64
	closed         bool
}

// NewBuilder creates a batch builder
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.Magic > MagicNewest {
		panic(fmt.Errorf("cannot build a batch with magic %d", cfg.Magic))
	}
	if cfg.Control && cfg.Magic < MagicNewest {
		panic(fmt.Errorf("magic %d cannot carry control records", cfg.Magic))
	}
	return &Builder{
		cfg:            cfg,
		nextOffset:     cfg.BaseOffset,
		lastOffset:     cfg.BaseOffset,
		firstTimestamp: NoTimestamp,
		maxTimestamp:   NoTimestamp,
	}
}

// Append adds a record at the next sequential offset
func (b *Builder) Append(timestamp int64, key, value []byte) {
	b.AppendWithOffset(b.nextOffset, timestamp, key, value)
}

// AppendWithOffset adds a record with an explicit absolute offset. Offsets
// must increase from one record to the next.
func (b *Builder) AppendWithOffset(offset, timestamp int64, key, value []byte) {
	b.appendRecord(Record{Offset: offset, Timestamp: timestamp, Key: key, Value: value})
}

// AppendRecord adds a decoded record. Headers are kept when the target magic
// can carry them and dropped otherwise.
func (b *Builder) AppendRecord(r Record) {
	b.appendRecord(r)
}

func (b *Builder) appendRecord(r Record) {
	if b.closed {
		panic(fmt.Errorf("append to a closed batch builder"))
	}
	if b.count > 0 && r.Offset <= b.lastOffset {
		panic(fmt.Errorf("record offsets must increase: %d after %d", r.Offset, b.lastOffset))
	}
	if b.cfg.TimestampType == LogAppendTime {
		r.Timestamp = b.cfg.LogAppendTime
	}
	if b.count == 0 {
		b.firstTimestamp = r.Timestamp
	}
	if r.Timestamp > b.maxTimestamp {
		b.maxTimestamp = r.Timestamp
	}
	if b.cfg.Magic < MagicNewest {
		b.appendLegacy(r)
	} else {
		b.appendDefault(r)
	}
	b.lastOffset = r.Offset
	b.nextOffset = r.Offset + 1
	b.count++
}

func (b *Builder) appendLegacy(r Record) {
	offset := r.Offset
	if b.cfg.Compression != compress.None && b.cfg.Magic > MagicV0 {
		offset -= b.cfg.BaseOffset // relative offsets inside the compressed wrapper
	}
	var attr byte
	if b.cfg.Magic > MagicV0 && b.cfg.TimestampType == LogAppendTime {
		attr = timestampTypeMask
	}
	b.recbuf = appendLegacyEntry(b.recbuf, offset, b.cfg.Magic, attr, r.Timestamp, r.Key, r.Value)
}

func (b *Builder) appendDefault(r Record) {
	offsetDelta := r.Offset - b.cfg.BaseOffset
	timestampDelta := r.Timestamp - b.firstTimestamp

	body := 1 + varintSize(timestampDelta) + varintSize(offsetDelta) +
		varBytesSize(r.Key) + varBytesSize(r.Value) + varintSize(int64(len(r.Headers)))
	for _, h := range r.Headers {
		body += varintSize(int64(len(h.Key))) + len(h.Key) + varBytesSize(h.Value)
	}

	out := binary.AppendVarint(b.recbuf, int64(body))
	out = append(out, 0) // record-level attributes, unused
	out = binary.AppendVarint(out, timestampDelta)
	out = binary.AppendVarint(out, offsetDelta)
	out = appendVarBytes(out, r.Key)
	out = appendVarBytes(out, r.Value)
	out = binary.AppendVarint(out, int64(len(r.Headers)))
	for _, h := range r.Headers {
		out = binary.AppendVarint(out, int64(len(h.Key)))
		out = append(out, h.Key...)
		out = appendVarBytes(out, h.Value)
	}
	b.recbuf = out
}

// Close finalizes the batch, compressing the payload and filling in lengths
// and CRC, and returns the backing buffer extended with the encoded bytes.
// The builder must not be used afterwards.
//
// A magic 0/1 builder with no appended records writes nothing: the legacy
// format has no empty batch representation.
func (b *Builder) Close() ([]byte, error) {
	if b.closed {
		panic(fmt.Errorf("batch builder closed twice"))
	}
	b.closed = true
	if b.cfg.Magic < MagicNewest {
		return b.closeLegacy()
	}
	return b.closeDefault()
}

func (b *Builder) closeLegacy() ([]byte, error) {
	out := b.cfg.Buffer
	if b.cfg.Compression == compress.None {
		return append(out, b.recbuf...), nil
	}
	if b.count == 0 {
		return out, nil
	}

	compressed, err := b.cfg.Compression.Compress(b.recbuf)
	if err != nil {
		return nil, fmt.Errorf("compressing batch failed: %w", err)
	}

	timestamp := b.maxTimestamp
	attr := byte(b.cfg.Compression) & compressionMask
	if b.cfg.Magic > MagicV0 && b.cfg.TimestampType == LogAppendTime {
		timestamp = b.cfg.LogAppendTime
		attr |= timestampTypeMask
	}
	// The wrapper record carries the absolute offset of the last record
	return appendLegacyEntry(out, b.lastOffset, b.cfg.Magic, attr, timestamp, nil, compressed), nil
}

func (b *Builder) closeDefault() ([]byte, error) {
	payload := b.recbuf
	if b.cfg.Compression != compress.None {
		var err error
		if payload, err = b.cfg.Compression.Compress(b.recbuf); err != nil {
			return nil, fmt.Errorf("compressing batch failed: %w", err)
		}
	}

	attr := int16(b.cfg.Compression) & compressionMask
	if b.cfg.TimestampType == LogAppendTime {
		attr |= timestampTypeMask
	}
	if b.cfg.Control {
		attr |= controlMask
	}

	out := appendInt64(b.cfg.Buffer, b.cfg.BaseOffset)
	out = appendInt32(out, int32(batchOverhead-LogOverhead+len(payload)))
	out = appendInt32(out, -1) // partition leader epoch
	out = append(out, MagicNewest)
	crcPos := len(out)
	out = append(out, 0, 0, 0, 0)
	out = appendInt16(out, attr)
	out = appendInt32(out, int32(b.lastOffset-b.cfg.BaseOffset))
	out = appendInt64(out, b.firstTimestamp)
	out = appendInt64(out, b.maxTimestamp)
	out = appendInt64(out, -1) // producer ID
	out = appendInt16(out, -1) // producer epoch
	out = appendInt32(out, -1) // base sequence
	out = appendInt32(out, int32(b.count))
	out = append(out, payload...)
	binary.BigEndian.PutUint32(out[crcPos:], crc32.Checksum(out[crcPos+4:], castagnoli))
	return out, nil
}
