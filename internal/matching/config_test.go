package matching

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".gridsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestWeightsValidate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())

	t.Run("sum must be one", func(t *testing.T) {
		w := DefaultWeights()
		w.Address = 0.2

		assert.ErrorIs(t, w.Validate(), ErrInvalidWeights)
	})

	t.Run("phone must carry the largest weight", func(t *testing.T) {
		w := Weights{
			Phone:        0.10,
			CustomerName: 0.45,
			Product:      0.20,
			Price:        0.15,
			Address:      0.10,
		}

		assert.ErrorIs(t, w.Validate(), ErrInvalidWeights)
	})

	t.Run("phone tied for largest is allowed", func(t *testing.T) {
		w := Weights{
			Phone:        0.30,
			CustomerName: 0.30,
			Product:      0.20,
			Price:        0.10,
			Address:      0.10,
		}

		assert.NoError(t, w.Validate())
	})
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFullFile(t *testing.T) {
	path := writeConfigFile(t, `
matching:
  suggestion_cutoff: 0.7
  flag_threshold: 0.9
  date_window_days: 2
  max_product_candidates: 100
  max_suggestions: 3
  conflict_threshold: 0.8
  weights:
    phone: 0.40
    customer_name: 0.20
    product: 0.20
    price: 0.10
    address: 0.10
`)

	cfg := LoadConfig(path)

	assert.InDelta(t, 0.7, cfg.SuggestionCutoff, 1e-9)
	assert.InDelta(t, 0.9, cfg.FlagThreshold, 1e-9)
	assert.Equal(t, 2, cfg.DateWindowDays)
	assert.Equal(t, 100, cfg.MaxProductCandidates)
	assert.Equal(t, 3, cfg.MaxSuggestions)
	assert.InDelta(t, 0.40, cfg.Weights.Phone, 1e-9)
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
matching:
  flag_threshold: 0.95
`)

	cfg := LoadConfig(path)

	assert.InDelta(t, 0.95, cfg.FlagThreshold, 1e-9)
	assert.InDelta(t, DefaultSuggestionCutoff, cfg.SuggestionCutoff, 1e-9)
	assert.Equal(t, DefaultDateWindowDays, cfg.DateWindowDays)
	assert.Equal(t, DefaultWeights(), cfg.Weights)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := writeConfigFile(t, "matching: [not a map")

	assert.Equal(t, DefaultConfig(), LoadConfig(path))
}

func TestLoadConfigInvalidWeightsFallBack(t *testing.T) {
	path := writeConfigFile(t, `
matching:
  weights:
    phone: 0.10
    customer_name: 0.80
    product: 0.05
    price: 0.03
    address: 0.02
`)

	cfg := LoadConfig(path)

	assert.Equal(t, DefaultWeights(), cfg.Weights)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	path := writeConfigFile(t, "")

	assert.Equal(t, DefaultConfig(), LoadConfig(path))
}
