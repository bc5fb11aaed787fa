package record

import (
	"fmt"
)

// Set is an immutable ordered sequence of encoded batches over one contiguous
// byte region, in non-decreasing offset order.
//
// A region too short to hold even one full batch yields a Set with no
// batches. This is a valid degenerate state meaning "record larger than the
// supplied buffer", not corruption; see DownConvert for how it propagates.
type Set struct {
	data []byte
}

// NewSet wraps a byte region. The region is not copied; the caller must not
// modify it afterwards.
func NewSet(data []byte) Set {
	return Set{data: data}
}

// SizeInBytes returns the size of the underlying region
func (s Set) SizeInBytes() int {
	return len(s.data)
}

// Bytes returns the underlying region. The caller must not modify it.
func (s Set) Bytes() []byte {
	return s.data
}

// Batches returns an iterator over the batches of the set. The iterator is
// single-pass and exhausted after one traversal; call Batches again for
// another pass.
//
// Only batch headers are read during iteration; payloads are not
// decompressed.
func (s Set) Batches() *BatchIterator {
	return &BatchIterator{data: s.data}
}

// Records returns an iterator over the records of all batches of the set, in
// order. The iterator is single-pass; because decoded batches are not
// cached, every traversal repeats the decompression work. Callers needing
// multiple passes should materialize the records themselves.
func (s Set) Records() *RecordIterator {
	return &RecordIterator{batches: s.Batches()}
}

// HasMatchingMagic reports whether every batch of the set has exactly the
// given magic. Vacuously true for a set with no batches. Only batch headers
// are examined.
func (s Set) HasMatchingMagic(magic byte) bool {
	it := s.Batches()
	for it.Next() {
		if it.Batch().Magic() != magic {
			return false
		}
	}
	return it.Err() == nil
}

// HasCompatibleMagic reports whether every batch of the set has the given
// magic or an older one, i.e. whether a reader limited to the given magic can
// parse the whole set. Vacuously true for a set with no batches.
func (s Set) HasCompatibleMagic(magic byte) bool {
	it := s.Batches()
	for it.Next() {
		if it.Batch().Magic() > magic {
			return false
		}
	}
	return it.Err() == nil
}

// BatchIterator iterates over the batches of a Set. Use it like
// bufio.Scanner: Next advances and reports whether a batch is available, and
// Err must be checked after Next returns false.
type BatchIterator struct {
	data  []byte
	pos   int
	batch Batch
	err   error
}

// Next advances to the next batch. It returns false at the end of the
// region, on a trailing batch whose bytes are incomplete (a clean end of
// iteration, see Set) and on error.
func (it *BatchIterator) Next() bool {
	if it.err != nil {
		return false
	}
	rest := it.data[it.pos:]
	if len(rest) < LogOverhead {
		return false
	}
	size := int(readInt32(rest, sizeOffset))
	if size < legacyRecordOverheadV0 {
		it.err = fmt.Errorf("%w: batch size %d below minimum", ErrCorrupt, size)
		return false
	}
	total := LogOverhead + size
	if len(rest) < total {
		return false
	}
	magic := rest[magicOffset]
	if magic > MagicNewest {
		it.err = fmt.Errorf("%w: magic %d", ErrUnsupportedMagic, magic)
		return false
	}
	if magic == MagicNewest && total < batchOverhead {
		it.err = fmt.Errorf("%w: envelope batch of %d bytes", ErrCorrupt, total)
		return false
	}
	it.batch = Batch{data: rest[:total:total]}
	it.pos += total
	return true
}

// Batch returns the current batch. The returned view is only valid until the
// next call to Next.
func (it *BatchIterator) Batch() *Batch {
	return &it.batch
}

// Err returns the error that stopped the iteration, if any
func (it *BatchIterator) Err() error {
	return it.err
}

// RecordIterator iterates over decoded records, batch by batch. Like
// BatchIterator it is single-pass: Next advances, Err must be checked after
// Next returns false.
type RecordIterator struct {
	batches *BatchIterator
	single  *Batch // one-shot source when iterating a single batch
	records []Record
	next    int
	err     error
}

// Next advances to the next record, decoding (and decompressing) a batch
// whenever the previous one is exhausted
func (it *RecordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.next >= len(it.records) {
		var batch *Batch
		switch {
		case it.single != nil:
			batch, it.single = it.single, nil
		case it.batches != nil && it.batches.Next():
			batch = it.batches.Batch()
		default:
			if it.batches != nil {
				it.err = it.batches.Err()
			}
			return false
		}
		if it.records, it.err = batch.decode(); it.err != nil {
			return false
		}
		it.next = 0
	}
	it.next++
	return true
}

// Record returns the current record
func (it *RecordIterator) Record() Record {
	return it.records[it.next-1]
}

// Err returns the error that stopped the iteration, if any
func (it *RecordIterator) Err() error {
	return it.err
}
