package matcher

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-transfer-reconciler/internal/models"
)

func TestMatchingConfigFactories(t *testing.T) {
	factories := map[string]func() *MatchingConfig{
		"default": DefaultMatchingConfig,
		"strict":  StrictMatchingConfig,
		"relaxed": RelaxedMatchingConfig,
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			config := factory()
			require.NoError(t, config.Validate())
			assert.NotEmpty(t, config.Patterns)
			assert.NotEmpty(t, config.ConversionExtractors)
			assert.NotEmpty(t, config.TransferKeywords)
		})
	}

	def := DefaultMatchingConfig()
	assert.Equal(t, 72, def.DateToleranceHours)
	assert.True(t, def.AmountEpsilon.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, def.LargeAmountThreshold.Equal(decimal.NewFromInt(10000)))
	assert.InDelta(t, 0.7, def.MinConfidence, 1e-9)
	assert.InDelta(t, 1.0, def.NameAmountTolerance, 1e-9)

	assert.Less(t, StrictMatchingConfig().DateToleranceHours, def.DateToleranceHours)
	assert.Greater(t, RelaxedMatchingConfig().DateToleranceHours, def.DateToleranceHours)
}

func TestMatchingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *MatchingConfig)
		errPart string
	}{
		{"negative tolerance", func(c *MatchingConfig) { c.DateToleranceHours = -1 }, "date tolerance"},
		{"zero epsilon", func(c *MatchingConfig) { c.AmountEpsilon = decimal.Zero }, "epsilon"},
		{"negative threshold", func(c *MatchingConfig) { c.LargeAmountThreshold = decimal.NewFromInt(-1) }, "large amount"},
		{"confidence above one", func(c *MatchingConfig) { c.MinConfidence = 1.5 }, "minimum confidence"},
		{"zero name tolerance", func(c *MatchingConfig) { c.NameAmountTolerance = 0 }, "name amount tolerance"},
		{"duplicate pattern id", func(c *MatchingConfig) { c.Patterns = append(c.Patterns, c.Patterns[0]) }, "duplicate pattern id"},
		{"invalid kind", func(c *MatchingConfig) { c.Patterns[0].Kind = "fuzzy" }, "invalid kind"},
		{"invalid direction", func(c *MatchingConfig) { c.Patterns[0].Direction = "sideways" }, "invalid direction"},
		{"named without placeholder", func(c *MatchingConfig) {
			c.Patterns = append(c.Patterns, TransferPattern{ID: "x", Kind: models.PatternKindNamed, Direction: DirectionOut, Regex: "sent to bob"})
		}, "must contain {name}"},
		{"empty extractor", func(c *MatchingConfig) { c.ConversionExtractors = []string{" "} }, "extractor"},
		{"name base not below exact", func(c *MatchingConfig) { c.Weights.NameBase = 0.6 }, "name base"},
		{"weight out of range", func(c *MatchingConfig) { c.Weights.SameDayBonus = 1.5 }, "same_day_bonus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultMatchingConfig()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestMatchingConfigClone(t *testing.T) {
	original := namedConfig()
	original.Patterns[0].Banks = []models.BankTag{models.BankWise}

	clone := original.Clone()
	require.NotNil(t, clone)

	clone.Patterns[0].ID = "changed"
	clone.Patterns[0].Banks[0] = models.BankErste
	clone.TransferKeywords[0] = "changed"
	clone.DisplayName = "Someone Else"

	assert.NotEqual(t, "changed", original.Patterns[0].ID)
	assert.Equal(t, models.BankWise, original.Patterns[0].Banks[0])
	assert.NotEqual(t, "changed", original.TransferKeywords[0])
	assert.Equal(t, "Ammar Qazi", original.DisplayName)

	var nilConfig *MatchingConfig
	assert.Nil(t, nilConfig.Clone())
}

func TestMatchingConfigString(t *testing.T) {
	s := namedConfig().String()
	assert.True(t, strings.HasPrefix(s, "MatchingConfig{"))
	assert.Contains(t, s, "Ammar Qazi")
	assert.Contains(t, s, "72h")

	assert.Contains(t, DefaultMatchingConfig().String(), "<none>")
}
