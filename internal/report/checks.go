package report

import "time"

// RTSSample is one reading of the target's runtime allocation counters,
// as served by Hasura's RTS stats endpoint.
type RTSSample struct {
	Timestamp      time.Time `json:"timestamp"`
	AllocatedBytes int64     `json:"allocated_bytes"`
	LiveBytes      int64     `json:"live_bytes"`
	MemInUseBytes  int64     `json:"mem_in_use_bytes"`
}

// HasuraChecks pairs the before/after runtime samples with their deltas
// so a reader never has to subtract.
type HasuraChecks struct {
	Before              RTSSample `json:"before"`
	After               RTSSample `json:"after"`
	AllocatedBytesDelta int64     `json:"allocated_bytes_delta"`
	LiveBytesDelta      int64     `json:"live_bytes_delta"`
	MemInUseBytesDelta  int64     `json:"mem_in_use_bytes_delta"`
}

// NewHasuraChecks computes the deltas for a before/after pair.
func NewHasuraChecks(before, after RTSSample) *HasuraChecks {
	return &HasuraChecks{
		Before:              before,
		After:               after,
		AllocatedBytesDelta: after.AllocatedBytes - before.AllocatedBytes,
		LiveBytesDelta:      after.LiveBytes - before.LiveBytes,
		MemInUseBytesDelta:  after.MemInUseBytes - before.MemInUseBytes,
	}
}
