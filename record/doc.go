// Package record implements the Kafka record-batch wire and storage format
// and down-conversion between its versions.
//
// Three format versions exist, identified by a one-byte magic value. Magic 0
// and 1 encode a single record per batch (magic 1 adds a timestamp); when
// compressed, the compressed payload of several such records is carried as
// the value of a single wrapper record. Magic 2 encodes a batch envelope with
// a shared header followed by variable-length-encoded records whose offsets
// and timestamps are deltas against the envelope fields.
//
// A Set is a read-only view of a byte region holding a sequence of encoded
// batches. DownConvert rewrites a Set so that readers limited to an older
// magic can parse it, re-encoding only the batches that need it.
package record
