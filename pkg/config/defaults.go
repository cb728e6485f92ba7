package config

// Built-in defaults applied when the YAML document omits a field, mirroring
// the teacher's pkg/config/builtin.go role of supplying fallbacks before
// validation runs.
const (
	DefaultRequestTimeoutSecs = 120
	DefaultRoundLimit         = 3
	DefaultRPMLimit           = 60
	DefaultTPMLimit           = 90000
	DefaultPreLineCounts      = 3
	DefaultReviewThreshold    = 0.7
	DefaultOutputSuffix       = "_translated"
	DefaultBilingualOrder     = "source_first"
)
