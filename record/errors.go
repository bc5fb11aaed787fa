package record

import "errors"

// ErrCorrupt means that encoded batch data does not obey the wire format or
// fails its CRC check.
//
// Note that a region too short to hold even one full batch is not corrupt: it
// is a valid region with no decodable batches, produced when a record is
// larger than the reader's buffer.
var ErrCorrupt = errors.New("corrupt record batch")

// ErrUnsupportedMagic means that a batch declares a format version this
// package does not know. There is no partial recovery: the whole containing
// region is unusable past such a batch.
var ErrUnsupportedMagic = errors.New("unsupported batch magic")
