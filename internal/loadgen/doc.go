// Package loadgen drives load generation backends and normalizes their
// heterogeneous output into one sample-event stream.
//
// Four adapters share the Adapter contract: builtin issues requests from
// this process with a paced worker pool, while autocannon, k6, and wrk2
// wrap the external tools. Adapters that observe individual requests
// emit arrival-ordered events (FidelitySamples); adapters limited to a
// tool's percentile table replay it as weighted events
// (FidelityDistribution), which keeps percentiles comparable across
// tools even though arrival order is lost.
package loadgen
