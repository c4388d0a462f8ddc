// Package config loads the tunables that parameterize an allocator
// instance -- the same role a kernel's boot-time configuration struct
// plays, externalized here as a YAML document so the allocator can be
// tuned without a rebuild.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"kalloc/buddy"
	"kalloc/page"
)

// Config holds every knob the allocator exposes. Load starts from
// Default, so fields a YAML document omits keep their default values;
// Validate fills in nothing and rejects zero-valued fields.
type Config struct {
	// NumFrames is the total number of page.Size frames to manage.
	NumFrames int `yaml:"num_frames"`
	// MaxOrder bounds the largest buddy block, in powers of two. It
	// must not exceed buddy.MaxOrder.
	MaxOrder int `yaml:"max_order"`
	// CacheNameMax bounds how long a registered cache's name may be.
	CacheNameMax int `yaml:"cache_name_max"`
}

// Default returns the configuration this module ships with out of the
// box: enough frames for a modest address space, the allocator's full
// order range, and a generous name length.
func Default() Config {
	return Config{
		NumFrames:    buddy.MaxNormalPFN,
		MaxOrder:     buddy.MaxOrder,
		CacheNameMax: 64,
	}
}

// Load reads a YAML document from path and overlays it onto Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: read")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: parse")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether cfg describes a configuration the allocator
// can actually be built from.
func (c Config) Validate() error {
	if c.NumFrames <= 0 {
		return errors.New("config: num_frames must be positive")
	}
	if c.MaxOrder <= 0 || c.MaxOrder > buddy.MaxOrder {
		return errors.Errorf("config: max_order must be in (0, %d]", buddy.MaxOrder)
	}
	if c.CacheNameMax <= 0 {
		return errors.New("config: cache_name_max must be positive")
	}
	return nil
}

// PageSize is re-exported for config consumers that want it without
// importing the page package directly.
const PageSize = page.Size
