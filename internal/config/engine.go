package config

import (
	"github.com/tansive/tablelake/internal/compactor"
	"github.com/tansive/tablelake/internal/writer"
)

// ToWriterConfig translates the "table.write.*"/"table.compaction.*"/
// "performance.*" options into a writer.Config, falling back to
// writer.DefaultConfig() for anything left unset.
func (c *ConfigParam) ToWriterConfig() writer.Config {
	out := writer.DefaultConfig()
	if c.Table.Write.TargetFileSizeMB > 0 {
		out.TargetFileSizeMB = c.Table.Write.TargetFileSizeMB
	}
	out.CompressionCodec = c.CompressionCodec()
	if c.Performance.MaxRetries > 0 {
		out.MaxRetries = uint(c.Performance.MaxRetries)
	}
	if c.Table.Compaction.OpportunisticCheckInterval > 0 {
		out.OpportunisticCheckInterval = c.Table.Compaction.OpportunisticCheckInterval
	}
	if c.Table.Compaction.SmallFileThresholdMB > 0 {
		out.SmallFileThresholdMB = c.Table.Compaction.SmallFileThresholdMB
	}
	if c.Table.Compaction.MinFilesToCompact > 0 {
		out.MinFilesToCompact = c.Table.Compaction.MinFilesToCompact
	}
	return out
}

// ToCompactorConfig translates the "table.compaction.*"/"performance.*"
// options into a compactor.Config.
func (c *ConfigParam) ToCompactorConfig() compactor.Config {
	out := compactor.DefaultConfig()
	if c.Table.Compaction.SmallFileThresholdMB > 0 {
		out.SmallFileThresholdMB = c.Table.Compaction.SmallFileThresholdMB
	}
	if c.Table.Compaction.MinFilesToCompact > 0 {
		out.MinFilesToCompact = c.Table.Compaction.MinFilesToCompact
	}
	if c.Performance.MaxRetries > 0 {
		out.MaxRetries = uint(c.Performance.MaxRetries)
	}
	return out
}
