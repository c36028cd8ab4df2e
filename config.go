package tiercache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/discochess/tiercache/internal/policy"
)

// LevelConfig describes one cache level.
type LevelConfig struct {
	Capacity int    `yaml:"capacity"`
	Policy   string `yaml:"policy"`
}

// String returns the CAPACITY:POLICY form accepted by ParseLevelFlag.
func (lc LevelConfig) String() string {
	return strconv.Itoa(lc.Capacity) + ":" + strings.ToUpper(strings.TrimSpace(lc.Policy))
}

// Validate checks the capacity and policy without building a level.
func (lc LevelConfig) Validate() error {
	if lc.Capacity < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, lc.Capacity)
	}
	if _, err := policy.ParseKind(lc.Policy); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedPolicy, err)
	}
	return nil
}

// Config is a level stack, level 0 first.
type Config struct {
	Levels []LevelConfig `yaml:"levels"`

	// Demotion enables WithDemotion.
	Demotion bool `yaml:"demotion"`
}

// Options returns the cache options described by c.
func (c Config) Options() []Option {
	opts := []Option{WithLevels(c.Levels...)}
	if c.Demotion {
		opts = append(opts, WithDemotion())
	}
	return opts
}

// Validate checks every level.
func (c Config) Validate() error {
	for i, lc := range c.Levels {
		if err := lc.Validate(); err != nil {
			return fmt.Errorf("level %d: %w", i, err)
		}
	}
	return nil
}

// LoadConfig reads and validates a YAML config file:
//
//	demotion: true
//	levels:
//	  - capacity: 128
//	    policy: LRU
//	  - capacity: 1024
//	    policy: LFU
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates YAML config data. Unknown fields are
// rejected. Empty input yields an empty stack.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseLevelFlag parses the CAPACITY:POLICY form, e.g. "128:LRU".
func ParseLevelFlag(s string) (LevelConfig, error) {
	capStr, pol, ok := strings.Cut(s, ":")
	if !ok {
		return LevelConfig{}, fmt.Errorf("level %q: want CAPACITY:POLICY", s)
	}
	capacity, err := strconv.Atoi(strings.TrimSpace(capStr))
	if err != nil {
		return LevelConfig{}, fmt.Errorf("level %q: parsing capacity: %w", s, err)
	}

	lc := LevelConfig{Capacity: capacity, Policy: strings.TrimSpace(pol)}
	if err := lc.Validate(); err != nil {
		return LevelConfig{}, fmt.Errorf("level %q: %w", s, err)
	}
	return lc, nil
}
