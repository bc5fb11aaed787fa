package record

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

func (b *Batch) decodeDefault() ([]Record, error) {
	if crc := crc32.Checksum(b.data[attributesOffset:], castagnoli); crc != binary.BigEndian.Uint32(b.data[crcOffset:]) {
		return nil, fmt.Errorf("%w: CRC mismatch", ErrCorrupt)
	}

	count := int(readInt32(b.data, recordCountOffset))
	if count < 0 {
		return nil, fmt.Errorf("%w: record count %d", ErrCorrupt, count)
	}

	payload, err := b.Compression().Decompress(b.data[recordsOffset:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, err)
	}

	baseOffset := b.BaseOffset()
	firstTimestamp := readInt64(b.data, firstTimestampOffset)
	control := b.Control()
	logAppendTime := NoTimestamp
	if b.TimestampType() == LogAppendTime {
		logAppendTime = b.MaxTimestamp()
	}

	records := make([]Record, 0, count)
	pos := 0
	for i := 0; i < count; i++ {
		r, n, err := parseDefaultRecord(payload[pos:])
		if err != nil {
			return nil, err
		}
		r.Offset += baseOffset
		switch {
		case logAppendTime != NoTimestamp:
			r.Timestamp = logAppendTime
		case firstTimestamp == NoTimestamp:
			r.Timestamp = NoTimestamp
		default:
			r.Timestamp += firstTimestamp
		}
		r.Control = control
		records = append(records, r)
		pos += n
	}
	if pos != len(payload) {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d records", ErrCorrupt, len(payload)-pos, count)
	}
	return records, nil
}

// parseDefaultRecord decodes one magic 2 record at the start of data. The
// returned record carries the offset and timestamp deltas; the caller adds
// the envelope bases.
func parseDefaultRecord(data []byte) (Record, int, error) {
	length, n := binary.Varint(data)
	if n <= 0 || length < 1 || len(data) < n+int(length) {
		return Record{}, 0, fmt.Errorf("%w: bad record length", ErrCorrupt)
	}
	body := recordBody(data[n : n+int(length)])
	pos := 1 // skip record-level attributes, unused in the current format

	timestampDelta, err := body.varint(&pos)
	if err != nil {
		return Record{}, 0, err
	}
	offsetDelta, err := body.varint(&pos)
	if err != nil {
		return Record{}, 0, err
	}
	key, err := body.varBytes(&pos)
	if err != nil {
		return Record{}, 0, err
	}
	value, err := body.varBytes(&pos)
	if err != nil {
		return Record{}, 0, err
	}

	headerCount, err := body.varint(&pos)
	if err != nil {
		return Record{}, 0, err
	}
	if headerCount < 0 || headerCount > int64(len(body)) {
		return Record{}, 0, fmt.Errorf("%w: header count %d", ErrCorrupt, headerCount)
	}
	var headers []Header
	for i := int64(0); i < headerCount; i++ {
		hkey, err := body.varBytes(&pos)
		if err != nil {
			return Record{}, 0, err
		}
		if hkey == nil {
			return Record{}, 0, fmt.Errorf("%w: nil header key", ErrCorrupt)
		}
		hvalue, err := body.varBytes(&pos)
		if err != nil {
			return Record{}, 0, err
		}
		headers = append(headers, Header{Key: string(hkey), Value: hvalue})
	}

	if pos != len(body) {
		return Record{}, 0, fmt.Errorf("%w: %d trailing bytes in a record", ErrCorrupt, len(body)-pos)
	}
	return Record{
		Offset:    offsetDelta,
		Timestamp: timestampDelta,
		Key:       key,
		Value:     value,
		Headers:   headers,
		Size:      n + int(length),
	}, n + int(length), nil
}

type recordBody []byte

func (b recordBody) varint(pos *int) (int64, error) {
	v, n := binary.Varint(b[*pos:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: bad varint", ErrCorrupt)
	}
	*pos += n
	return v, nil
}

func (b recordBody) varBytes(pos *int) ([]byte, error) {
	n, err := b.varint(pos)
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	if n < 0 || int64(len(b)-*pos) < n {
		return nil, fmt.Errorf("%w: bad byte sequence length %d", ErrCorrupt, n)
	}
	v := b[*pos : *pos+int(n) : *pos+int(n)]
	*pos += int(n)
	return v, nil
}
