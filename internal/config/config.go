// Package config implements Sharc's ambient YAML-loadable configuration:
// page size, cache budget, AEAD enablement, and a default graph
// traversal policy.
//
// What: Config mirrors a handful of scalar settings from across spec.md
// (§4.3 page size, §4.11 cache budget/AEAD, §4.9 traversal defaults)
// that a host application wants to set once from a file rather than
// threading through constructor arguments at every call site.
//
// How: grounded on the teacher's YAML-fixture convention
// (internal/testhelper/examples_test.go: os.ReadFile + yaml.Unmarshal
// into a tagged struct) — the teacher has no config loader of its own,
// but gopkg.in/yaml.v3 is already a declared dependency used the same
// "describe settings in YAML, unmarshal into a struct" way.
//
// Why: every other new package (cache, graph, pagesource) takes its
// tunables as constructor arguments; Config is the one place a host
// assembles them from a file instead of hardcoding them.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/revred/sharc/internal/graph"
)

// CacheConfig configures internal/cache's size/TTL/AEAD behavior.
type CacheConfig struct {
	MaxSizeBytes  int64  `yaml:"max_size_bytes"`
	MaxEntries    int    `yaml:"max_entries"`
	SweepCron     string `yaml:"sweep_cron"`      // e.g. "@every 30s"
	AEADEnabled   bool   `yaml:"aead_enabled"`
	MasterKeyHex  string `yaml:"master_key_hex"` // 32+ raw bytes, hex-encoded
}

// TraversalConfig configures the default graph.TraversalPolicy applied
// when a caller doesn't specify one explicitly.
type TraversalConfig struct {
	Direction    string        `yaml:"direction"` // "outgoing", "incoming", "both"
	Kind         int32         `yaml:"kind"`       // 0 = any relation kind
	MaxDepth     int           `yaml:"max_depth"`
	MaxFanOut    int           `yaml:"max_fan_out"`
	MinWeight    float32       `yaml:"min_weight"`
	MaxTokens    int64         `yaml:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout"`
	IncludePaths bool          `yaml:"include_paths"`
	IncludeData  bool          `yaml:"include_data"`
}

// Config is Sharc's top-level ambient configuration.
type Config struct {
	PageSize  int             `yaml:"page_size"`
	Cache     CacheConfig     `yaml:"cache"`
	Traversal TraversalConfig `yaml:"traversal"`
}

// Default returns the configuration Sharc uses when no file is supplied:
// a 4096-byte page, a 64MiB/10000-entry cache swept every 30 seconds with
// AEAD disabled, and an outgoing-only traversal with no depth, fan-out,
// weight or token limit and a 5-second timeout.
func Default() Config {
	return Config{
		PageSize: 4096,
		Cache: CacheConfig{
			MaxSizeBytes: 64 * 1024 * 1024,
			MaxEntries:   10000,
			SweepCron:    "@every 30s",
			AEADEnabled:  false,
		},
		Traversal: TraversalConfig{
			Direction: "outgoing",
			Timeout:   5 * time.Second,
		},
	}
}

// Load reads and parses a YAML configuration file at path, starting from
// Default() so a file only needs to override the settings it cares
// about.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the structural invariants Load and direct callers both
// need: a positive power-of-two page size and a recognized traversal
// direction.
func (c Config) Validate() error {
	if c.PageSize <= 0 || c.PageSize&(c.PageSize-1) != 0 {
		return fmt.Errorf("page_size must be a positive power of two, got %d", c.PageSize)
	}
	switch c.Traversal.Direction {
	case "outgoing", "incoming", "both":
	default:
		return fmt.Errorf("traversal.direction must be outgoing, incoming, or both, got %q", c.Traversal.Direction)
	}
	return nil
}

// TraversalPolicy converts the configured defaults into a
// graph.TraversalPolicy ready to pass to graph.Store.Prepare.
func (c Config) TraversalPolicy() graph.TraversalPolicy {
	dir := graph.Outgoing
	switch c.Traversal.Direction {
	case "incoming":
		dir = graph.Incoming
	case "both":
		dir = graph.Both
	}
	var kind *graph.EdgeKind
	if c.Traversal.Kind != 0 {
		k := graph.EdgeKind(c.Traversal.Kind)
		kind = &k
	}
	return graph.TraversalPolicy{
		Direction:    dir,
		Kind:         kind,
		MaxDepth:     c.Traversal.MaxDepth,
		MaxFanOut:    c.Traversal.MaxFanOut,
		MinWeight:    c.Traversal.MinWeight,
		MaxTokens:    c.Traversal.MaxTokens,
		Timeout:      c.Traversal.Timeout,
		IncludePaths: c.Traversal.IncludePaths,
		IncludeData:  c.Traversal.IncludeData,
	}
}
