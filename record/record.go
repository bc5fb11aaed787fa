package record

// Magic values of the supported batch format versions
const (
	MagicV0     byte = 0 // single records, no timestamps
	MagicV1     byte = 1 // single records with timestamps
	MagicNewest byte = 2 // batch envelope with offset deltas, headers and control records
)

// NoTimestamp is the timestamp of records and batches that carry none
const NoTimestamp int64 = -1

// TimestampType tells how the timestamps of a batch were assigned
type TimestampType int8

// TimestampType values. Magic 0 batches have no timestamps at all
// (NoTimestampType).
const (
	NoTimestampType TimestampType = -1
	CreateTime      TimestampType = 0
	LogAppendTime   TimestampType = 1
)

// String implements fmt.Stringer
func (t TimestampType) String() string {
	switch t {
	case CreateTime:
		return "CreateTime"
	case LogAppendTime:
		return "LogAppendTime"
	default:
		return "NoTimestampType"
	}
}

// Header is a single record header. Headers are ordered and may repeat keys.
type Header struct {
	Key   string
	Value []byte
}

// Record is a single decoded message. It is immutable once decoded.
//
// Headers and Control are only representable in magic 2; down-conversion to
// older magics drops them.
type Record struct {
	// Offset is the absolute log position of the record.
	Offset int64

	// Timestamp is the record timestamp, or NoTimestamp for records decoded
	// from magic 0 batches.
	Timestamp int64

	// Key and Value are nil when the record has none.
	Key   []byte
	Value []byte

	Headers []Header

	// Control marks protocol-internal records such as transaction markers.
	Control bool

	// Size is the encoded size of the record in bytes, including the
	// offset+size prefix for records of legacy batches.
	Size int
}
