package writer

import "github.com/tansive/tablelake/internal/storage"

// Config mirrors the "table.write.*" / "performance.*" properties of
// §6 that govern the Writer's behavior. Defaults match §4.4/§4.7.
type Config struct {
	TargetFileSizeMB int
	CompressionCodec storage.CompressionCodec
	MaxRetries       uint

	// OpportunisticCheckInterval is "every Nth successful write" (§4.7).
	// Defaults differ by deployment tier (5/75/100 for dev/staging/prod);
	// the caller selects the right value from the loaded table
	// properties before constructing a Writer.
	OpportunisticCheckInterval int
	SmallFileThresholdMB       int
	MinFilesToCompact          int
}

// DefaultConfig returns the §4.4/§4.7 defaults for a dev-tier table.
func DefaultConfig() Config {
	return Config{
		TargetFileSizeMB:           128,
		CompressionCodec:           storage.CodecZstd,
		MaxRetries:                 3,
		OpportunisticCheckInterval: 5,
		SmallFileThresholdMB:       64,
		MinFilesToCompact:          3,
	}
}
