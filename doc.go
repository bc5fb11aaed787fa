// Package shale is a codec for the Kafka record-batch wire and storage
// format, together with a converter that rewrites batches of a newer format
// version into an older one for readers that cannot parse the newer
// encoding.
//
// The name comes from the Tectonic theme: shale is a sedimentary rock formed
// from compacted layers, the way a record set is compacted layers of record
// batches.
//
// The core lives in the record package: record.Set is a read-only view over
// a byte region of encoded batches, and Set.DownConvert produces a new
// region parseable at an older format version. The compress package maps the
// wire codec ids to concrete compressors. The batchcopy package is a
// command-line tool converting files of encoded batches in bulk.
package shale
