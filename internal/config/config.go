// Package config loads the engine's configuration (§6 "Configuration
// (recognized options)"): a TOML file of defaults, optionally overlaid
// by a named YAML environment profile selected by the "environment"
// option itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tansive/tablelake/internal/storage"
)

// CurrentFormatVersion is the only config file format this engine reads.
const CurrentFormatVersion = "1"

// S3Config covers the "s3.*" options: physical root and endpoint.
type S3Config struct {
	BucketName      string `toml:"bucket_name" yaml:"bucket_name"`
	WarehousePath   string `toml:"warehouse_path" yaml:"warehouse_path"`
	Endpoint        string `toml:"endpoint" yaml:"endpoint"`
	UseSSL          bool   `toml:"use_ssl" yaml:"use_ssl"`
	PathStyleAccess bool   `toml:"path_style_access" yaml:"path_style_access"`
}

// CatalogConfig covers the "catalog.*" options.
type CatalogConfig struct {
	Type   string `toml:"type" yaml:"type"` // "rest" | "managed"
	URI    string `toml:"uri" yaml:"uri"`
	Region string `toml:"region" yaml:"region"`
}

// EngineConfig covers the "engine.*" scan-executor limits.
type EngineConfig struct {
	MemoryLimit string `toml:"memory_limit" yaml:"memory_limit"`
	Threads     int    `toml:"threads" yaml:"threads"`
}

// PerformanceConfig covers the "performance.*" retry/batching options.
type PerformanceConfig struct {
	MaxRetries     int `toml:"max_retries" yaml:"max_retries"`
	QueryTimeoutMS int `toml:"query_timeout_ms" yaml:"query_timeout_ms"`
	BatchSize      int `toml:"batch_size" yaml:"batch_size"`
}

// WriteConfig covers the "table.write.*" writer-tuning options.
type WriteConfig struct {
	TargetFileSizeMB int    `toml:"target_file_size_mb" yaml:"target_file_size_mb"`
	CompressionCodec string `toml:"compression_codec" yaml:"compression_codec"`
	RowGroupSize     int    `toml:"row_group_size" yaml:"row_group_size"`
}

// CompactionConfig covers the "table.compaction.*" policy options.
type CompactionConfig struct {
	SmallFileThresholdMB       int    `toml:"small_file_threshold_mb" yaml:"small_file_threshold_mb"`
	MinFilesToCompact          int    `toml:"min_files_to_compact" yaml:"min_files_to_compact"`
	OpportunisticCheckInterval int    `toml:"opportunistic_check_interval" yaml:"opportunistic_check_interval"`
	MaxFilesPerCompaction      int    `toml:"max_files_per_compaction" yaml:"max_files_per_compaction"`
}

// TableConfig groups the two "table.*" sub-sections.
type TableConfig struct {
	Write      WriteConfig      `toml:"write" yaml:"write"`
	Compaction CompactionConfig `toml:"compaction" yaml:"compaction"`
}

// CacheConfig is not a named §6 option directly; it carries the Hot
// Metadata Cache's (§4.8) freshness window as a duration string so an
// environment profile can tune it the same way the teacher's
// SessionConfig/AuthConfig carry duration-string fields parsed with
// ParseDuration.
type CacheConfig struct {
	TTL string `toml:"ttl" yaml:"ttl"`
}

// ConfigParam holds every recognized configuration option (§6).
type ConfigParam struct {
	FormatVersion string `toml:"format_version"`
	Environment   string `toml:"environment"`

	S3          S3Config          `toml:"s3"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Engine      EngineConfig      `toml:"engine"`
	Performance PerformanceConfig `toml:"performance"`
	Table       TableConfig       `toml:"table"`
	Cache       CacheConfig       `toml:"cache"`
}

var cfg *ConfigParam

// Config returns the currently loaded configuration, or nil if none has
// been loaded yet.
func Config() *ConfigParam {
	return cfg
}

// CacheTTL returns the configured Hot Metadata Cache freshness window,
// falling back to the caller-supplied default when unset or unparsable.
func (c *ConfigParam) CacheTTL(fallback time.Duration) time.Duration {
	if c.Cache.TTL == "" {
		return fallback
	}
	d, err := ParseDuration(c.Cache.TTL)
	if err != nil {
		return fallback
	}
	return d
}

// CompressionCodec resolves the configured "table.write.compression_codec"
// string to a storage.CompressionCodec, defaulting to zstd for an unset
// or unrecognized value.
func (c *ConfigParam) CompressionCodec() storage.CompressionCodec {
	switch storage.CompressionCodec(c.Table.Write.CompressionCodec) {
	case storage.CodecZstd, storage.CodecSnappy, storage.CodecNone:
		return storage.CompressionCodec(c.Table.Write.CompressionCodec)
	default:
		return storage.CodecZstd
	}
}

// ParseDuration parses a "<number><unit>" duration string where unit is
// one of y (years), d (days), h (hours), m (minutes), or s (seconds).
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid duration %q", input)
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value in %q: %w", input, err)
	}

	switch unit {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	case "y":
		return time.Duration(value) * 365 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit %q in %q", unit, input)
	}
}

// ValidateConfig checks the invariants LoadConfig can't express through
// TOML decoding alone.
func ValidateConfig(c *ConfigParam) error {
	if c.FormatVersion != CurrentFormatVersion {
		return fmt.Errorf("unsupported config format_version: %q (want %q)", c.FormatVersion, CurrentFormatVersion)
	}
	if c.Catalog.Type != "rest" && c.Catalog.Type != "managed" {
		return fmt.Errorf("catalog.type must be \"rest\" or \"managed\", got %q", c.Catalog.Type)
	}
	if c.S3.BucketName == "" {
		return fmt.Errorf("s3.bucket_name is required")
	}
	if c.Table.Write.TargetFileSizeMB <= 0 {
		return fmt.Errorf("table.write.target_file_size_mb must be positive")
	}
	if c.Table.Compaction.MinFilesToCompact <= 0 {
		return fmt.Errorf("table.compaction.min_files_to_compact must be positive")
	}
	return nil
}

// LoadConfig reads filename as TOML defaults, then — when the decoded
// "environment" option names one — overlays a YAML profile document
// from profileDir/<environment>.yaml on top of it (§6 "environment:
// Selects a named config profile"). profileDir may be empty to skip
// profile overlay entirely.
func LoadConfig(filename, profileDir string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	loaded := &ConfigParam{}
	if _, err := toml.Decode(string(content), loaded); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if loaded.Environment != "" && profileDir != "" {
		if err := applyProfile(loaded, profileDir, loaded.Environment); err != nil {
			return fmt.Errorf("applying environment profile %q: %w", loaded.Environment, err)
		}
	}

	if err := ValidateConfig(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = loaded
	return nil
}

// applyProfile reads <profileDir>/<environment>.yaml and merges its
// present fields over base. A missing profile file is not an error —
// an environment name with no matching profile simply falls back to
// the TOML defaults unchanged.
func applyProfile(base *ConfigParam, profileDir, environment string) error {
	path := filepath.Join(profileDir, environment+".yaml")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var overlay ConfigParam
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parsing profile %s: %w", path, err)
	}

	mergeNonZero(base, &overlay)
	return nil
}

// mergeNonZero overlays every non-zero scalar field of overlay onto
// base, section by section. A profile YAML document only needs to set
// the handful of fields it wants to override; everything else stays at
// the TOML default.
func mergeNonZero(base, overlay *ConfigParam) {
	if overlay.S3.BucketName != "" {
		base.S3.BucketName = overlay.S3.BucketName
	}
	if overlay.S3.WarehousePath != "" {
		base.S3.WarehousePath = overlay.S3.WarehousePath
	}
	if overlay.S3.Endpoint != "" {
		base.S3.Endpoint = overlay.S3.Endpoint
		base.S3.UseSSL = overlay.S3.UseSSL
		base.S3.PathStyleAccess = overlay.S3.PathStyleAccess
	}
	if overlay.Catalog.Type != "" {
		base.Catalog.Type = overlay.Catalog.Type
	}
	if overlay.Catalog.URI != "" {
		base.Catalog.URI = overlay.Catalog.URI
	}
	if overlay.Catalog.Region != "" {
		base.Catalog.Region = overlay.Catalog.Region
	}
	if overlay.Engine.MemoryLimit != "" {
		base.Engine.MemoryLimit = overlay.Engine.MemoryLimit
	}
	if overlay.Engine.Threads != 0 {
		base.Engine.Threads = overlay.Engine.Threads
	}
	if overlay.Performance.MaxRetries != 0 {
		base.Performance.MaxRetries = overlay.Performance.MaxRetries
	}
	if overlay.Performance.QueryTimeoutMS != 0 {
		base.Performance.QueryTimeoutMS = overlay.Performance.QueryTimeoutMS
	}
	if overlay.Performance.BatchSize != 0 {
		base.Performance.BatchSize = overlay.Performance.BatchSize
	}
	if overlay.Table.Write.TargetFileSizeMB != 0 {
		base.Table.Write.TargetFileSizeMB = overlay.Table.Write.TargetFileSizeMB
	}
	if overlay.Table.Write.CompressionCodec != "" {
		base.Table.Write.CompressionCodec = overlay.Table.Write.CompressionCodec
	}
	if overlay.Table.Write.RowGroupSize != 0 {
		base.Table.Write.RowGroupSize = overlay.Table.Write.RowGroupSize
	}
	if overlay.Table.Compaction.SmallFileThresholdMB != 0 {
		base.Table.Compaction.SmallFileThresholdMB = overlay.Table.Compaction.SmallFileThresholdMB
	}
	if overlay.Table.Compaction.MinFilesToCompact != 0 {
		base.Table.Compaction.MinFilesToCompact = overlay.Table.Compaction.MinFilesToCompact
	}
	if overlay.Table.Compaction.OpportunisticCheckInterval != 0 {
		base.Table.Compaction.OpportunisticCheckInterval = overlay.Table.Compaction.OpportunisticCheckInterval
	}
	if overlay.Table.Compaction.MaxFilesPerCompaction != 0 {
		base.Table.Compaction.MaxFilesPerCompaction = overlay.Table.Compaction.MaxFilesPerCompaction
	}
	if overlay.Cache.TTL != "" {
		base.Cache.TTL = overlay.Cache.TTL
	}
}
