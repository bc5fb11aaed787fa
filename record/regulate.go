package record

// FetchRegulator is the contract of the consumer-side flow control that
// throttles per-partition fetching while decoded records are delivered
// downstream. Implementations live next to the consumer: pausing a partition
// is done by seeking it far ahead, resuming by seeking back to the saved
// position. This package only produces and converts the fetched bytes and
// never calls these methods itself.
type FetchRegulator interface {
	// Pause stops fetching from the partition
	Pause(partition int32)

	// Resume restarts fetching from the partition at the given offset
	Resume(partition int32, offset int64)
}
