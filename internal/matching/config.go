package matching

import (
	"errors"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Default tuning values. These are knobs, not truths: the cutoffs were
// tuned on Moroccan COD order sheets and other tenants may need different
// values, which is why they load from configuration.
const (
	// DefaultSuggestionCutoff is the minimum similarity for a product to
	// appear in the suggestion list of an unresolved row.
	DefaultSuggestionCutoff = 0.6

	// DefaultFlagThreshold is the cross-field score above which a fuzzy
	// candidate marks the row as a potential duplicate.
	DefaultFlagThreshold = 0.85

	// DefaultDateWindowDays is how far (in days, each direction) the
	// extended fuzzy search widens beyond the order's own day.
	DefaultDateWindowDays = 1

	// DefaultMaxProductCandidates bounds the catalog scan for fuzzy
	// product resolution.
	DefaultMaxProductCandidates = 50

	// DefaultMaxSuggestions bounds the suggestion list returned for an
	// unresolved product.
	DefaultMaxSuggestions = 5

	// DefaultConflictThreshold is the per-field similarity below which a
	// name or address counts as conflicting between a row and a matched
	// order.
	DefaultConflictThreshold = 0.7
)

// DefaultConfigPath is the default tuning file location, next to the
// process working directory like other dotfile configs.
const DefaultConfigPath = ".gridsync.yaml"

const weightSumTolerance = 1e-9

// ErrInvalidWeights is returned when similarity weights do not sum to 1 or
// the phone weight is not the largest.
var ErrInvalidWeights = errors.New("invalid similarity weights")

type (
	// Weights are the per-field contributions to the cross-field order
	// similarity score. They must sum to 1, and Phone must carry the
	// largest single weight: the phone number is the most discriminative
	// field on cash-on-delivery orders.
	Weights struct {
		Phone        float64 `yaml:"phone"`
		CustomerName float64 `yaml:"customer_name"`
		Product      float64 `yaml:"product"`
		Price        float64 `yaml:"price"`
		Address      float64 `yaml:"address"`
	}

	// Config holds the fuzzy matching tuning knobs.
	Config struct {
		SuggestionCutoff     float64 `yaml:"suggestion_cutoff"`
		FlagThreshold        float64 `yaml:"flag_threshold"`
		DateWindowDays       int     `yaml:"date_window_days"`
		MaxProductCandidates int     `yaml:"max_product_candidates"`
		MaxSuggestions       int     `yaml:"max_suggestions"`
		ConflictThreshold    float64 `yaml:"conflict_threshold"`
		Weights              Weights `yaml:"weights"`
	}

	// configFile is the on-disk shape of the tuning file; matching knobs
	// live under a top-level key so the file can grow other sections.
	configFile struct {
		Matching Config `yaml:"matching"`
	}
)

// DefaultWeights returns the standard field weights:
// phone 0.35, customer name 0.20, product 0.20, price 0.15, address 0.10.
func DefaultWeights() Weights {
	return Weights{
		Phone:        0.35,
		CustomerName: 0.20,
		Product:      0.20,
		Price:        0.15,
		Address:      0.10,
	}
}

// DefaultConfig returns the standard tuning configuration.
func DefaultConfig() Config {
	return Config{
		SuggestionCutoff:     DefaultSuggestionCutoff,
		FlagThreshold:        DefaultFlagThreshold,
		DateWindowDays:       DefaultDateWindowDays,
		MaxProductCandidates: DefaultMaxProductCandidates,
		MaxSuggestions:       DefaultMaxSuggestions,
		ConflictThreshold:    DefaultConflictThreshold,
		Weights:              DefaultWeights(),
	}
}

// Validate checks the weight invariants.
func (w Weights) Validate() error {
	sum := w.Phone + w.CustomerName + w.Product + w.Price + w.Address
	if math.Abs(sum-1) > weightSumTolerance {
		return ErrInvalidWeights
	}

	largest := math.Max(math.Max(w.CustomerName, w.Product), math.Max(w.Price, w.Address))
	if w.Phone < largest {
		return ErrInvalidWeights
	}

	return nil
}

// LoadConfig loads tuning configuration from a YAML file, falling back to
// defaults for anything missing or invalid.
//
// Behavior mirrors the rest of the service's optional config files:
//   - Missing file returns defaults (tuning overrides are optional)
//   - Unreadable or malformed YAML logs a warning and returns defaults
//   - Partially specified files keep defaults for omitted knobs
//   - Invalid weights log a warning and fall back to DefaultWeights
func LoadConfig(path string) Config {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to read matching config, using defaults",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}

		return cfg
	}

	if len(data) == 0 {
		return cfg
	}

	file := configFile{Matching: cfg}
	if err := yaml.Unmarshal(data, &file); err != nil {
		slog.Warn("Failed to parse matching config, using defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return DefaultConfig()
	}

	loaded := file.Matching
	loaded.applyDefaults()

	if err := loaded.Weights.Validate(); err != nil {
		slog.Warn("Configured similarity weights are invalid, using defaults",
			slog.String("path", path))

		loaded.Weights = DefaultWeights()
	}

	return loaded
}

// applyDefaults fills zero values left by a partially specified file.
func (c *Config) applyDefaults() {
	if c.SuggestionCutoff <= 0 {
		c.SuggestionCutoff = DefaultSuggestionCutoff
	}

	if c.FlagThreshold <= 0 {
		c.FlagThreshold = DefaultFlagThreshold
	}

	if c.DateWindowDays <= 0 {
		c.DateWindowDays = DefaultDateWindowDays
	}

	if c.MaxProductCandidates <= 0 {
		c.MaxProductCandidates = DefaultMaxProductCandidates
	}

	if c.MaxSuggestions <= 0 {
		c.MaxSuggestions = DefaultMaxSuggestions
	}

	if c.ConflictThreshold <= 0 {
		c.ConflictThreshold = DefaultConflictThreshold
	}

	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights()
	}
}
