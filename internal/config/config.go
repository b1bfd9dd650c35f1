package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds engine configuration.
type Config struct {
	// MaxWorkers bounds concurrent assembly jobs per staged batch wave.
	MaxWorkers int `json:"max_workers"`

	// SmallBatchJobs is the job count at or below which a batch dispatches
	// fully concurrently instead of in bounded waves.
	SmallBatchJobs int `json:"small_batch_jobs"`

	// ComplexityThreshold is the placeholder count above which a template is
	// considered complex; any complex job forces staged execution.
	ComplexityThreshold int `json:"complexity_threshold"`

	// CacheMaxEntries bounds the descriptor cache before LRU eviction.
	CacheMaxEntries int `json:"cache_max_entries"`

	// FreeEditQuota is the number of free field changes per document lineage
	// per billing cycle.
	FreeEditQuota int `json:"free_edit_quota"`

	// EditFeeCents is the flat fee charged once per paid edit operation,
	// in minor currency units.
	EditFeeCents int `json:"edit_fee_cents"`

	// Synonyms maps placeholder name stems to canonical keys. Entries here
	// overlay the built-in table.
	Synonyms map[string]string `json:"synonyms,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers:          4,
		SmallBatchJobs:      3,
		ComplexityThreshold: 32,
		CacheMaxEntries:     128,
		FreeEditQuota:       3,
		EditFeeCents:        10000,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.stencil.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; maps and arrays are merged.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.MaxWorkers = pick(overlay.MaxWorkers, base.MaxWorkers)
	result.SmallBatchJobs = pick(overlay.SmallBatchJobs, base.SmallBatchJobs)
	result.ComplexityThreshold = pick(overlay.ComplexityThreshold, base.ComplexityThreshold)
	result.CacheMaxEntries = pick(overlay.CacheMaxEntries, base.CacheMaxEntries)
	result.FreeEditQuota = pick(overlay.FreeEditQuota, base.FreeEditQuota)
	result.EditFeeCents = pick(overlay.EditFeeCents, base.EditFeeCents)
	result.DBMaxOpenConns = pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.Synonyms = mergeStringMap(base.Synonyms, overlay.Synonyms)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay if non-zero, else base.
func pick(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringMap combines two maps; overlay entries win.
func mergeStringMap(base, overlay map[string]string) map[string]string {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	result := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		result[k] = v
	}
	return result
}

// mergeStringSlice combines two slices and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
