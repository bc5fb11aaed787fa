package compress

import (
	"bytes"
	"fmt"
	"io"

	kafkacompress "github.com/segmentio/kafka-go/compress"
)

// Type is a batch compression codec id, stored in the low bits of the batch
// attributes field on the wire.
type Type int8

// Codec ids defined by the wire format
const (
	None Type = iota
	Gzip
	Snappy
	Lz4
	Zstd
)

// String implements fmt.Stringer
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Snappy:
		return "snappy"
	case Lz4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", int8(t))
	}
}

func (t Type) codec() (kafkacompress.Codec, error) {
	if t < Gzip || t > Zstd {
		return nil, fmt.Errorf("unknown compression codec %d", int8(t))
	}
	return kafkacompress.Compression(t).Codec(), nil
}

// Compress returns the payload compressed with the codec. The payload is
// returned as is for None.
func (t Type) Compress(payload []byte) ([]byte, error) {
	if t == None {
		return payload, nil
	}
	codec, err := t.codec()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := codec.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%s compression failed: %w", t, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s compression failed: %w", t, err)
	}
	return buf.Bytes(), nil
}

// Decompress returns the payload decompressed with the codec. The payload is
// returned as is for None.
func (t Type) Decompress(payload []byte) ([]byte, error) {
	if t == None {
		return payload, nil
	}
	codec, err := t.codec()
	if err != nil {
		return nil, err
	}
	r := codec.NewReader(bytes.NewReader(payload))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s decompression failed: %w", t, err)
	}
	return out, nil
}
