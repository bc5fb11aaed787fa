// Package compress maps the compression codec ids of the Kafka record-batch
// format to concrete compressor implementations.
//
// The implementations are the ones used by kafka-go, so the output is
// wire-compatible with what brokers and clients produce: in particular,
// snappy payloads use the xerial framing that Kafka expects.
package compress
