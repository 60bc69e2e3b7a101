package compactor

// Config holds the per-table small-file thresholds the Compactor uses
// both for the explicit COMPACT operation's force-bypass check and
// (via the opportunistic counts already reported by internal/writer)
// the non-blocking recommendation (§4.7).
type Config struct {
	SmallFileThresholdMB int
	MinFilesToCompact    int
	MaxRetries           uint
}

// DefaultConfig returns the §4.7 dev-tier defaults.
func DefaultConfig() Config {
	return Config{
		SmallFileThresholdMB: 64,
		MinFilesToCompact:    3,
		MaxRetries:           3,
	}
}
