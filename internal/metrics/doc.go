// Package metrics implements the unified latency model every load
// generation backend is normalized into: a high-dynamic-range histogram
// for precise percentiles, an equal-width bucketed histogram with outlier
// and first-half tracking, and the statistics derived from both.
//
// Each benchmark run owns one Recorder. Producers feed it sample events;
// at stream end the recorder yields the precise histogram, the basic
// histogram, the percentile distribution table, and a Summary that
// includes drift statistics over the leading half, quarter, and eighth
// of the arrival-ordered stream.
package metrics
