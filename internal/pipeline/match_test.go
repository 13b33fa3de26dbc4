package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gyscontrol/internal"
	"gyscontrol/internal/config"
)

func verified(lineNo int, code, description string) internal.VerifiedRow {
	return internal.VerifiedRow{
		ImportRow: internal.ImportRow{LineNo: lineNo, Code: code, Description: description, Quantity: 1},
		State:     internal.StateNew,
	}
}

func matcherOptions() []internal.QuotedItemOption {
	return FlattenQuotedItems([]internal.EquipmentGroup{
		{ID: "g-1", Name: "Accionamientos", Items: []internal.QuotedItem{
			{ID: "q-1", Code: "EQ001", Description: "Variador 5kW"},
			{ID: "q-2", Code: "EQ002", Description: "Motor 10HP"},
			{ID: "q-3", Description: "Variador 5kW trifásico"},
		}},
		{ID: "g-2", Name: "Tableros", Items: []internal.QuotedItem{
			{ID: "q-4", Code: "X1", Description: "Tablero TAB-0042 400A"},
			{ID: "q-5", Code: "EQ500", Description: "Bomba sumergible"},
			{ID: "q-6", Code: "eq500", Description: "Bomba de achique"},
			{ID: "q-7", Code: "EQ600", Description: "Bomba"},
		}},
	})
}

func TestFlattenQuotedItems(t *testing.T) {
	opts := matcherOptions()
	require.Len(t, opts, 7)
	assert.Equal(t, "g-1", opts[0].GroupID)
	assert.Equal(t, "Tableros", opts[3].GroupName)
	assert.Empty(t, FlattenQuotedItems(nil))
}

func TestMatchExactCodeWinsOverDescription(t *testing.T) {
	m := NewQuotedMatcher(config.Default(), matcherOptions())

	res := m.Match(verified(1, " eq001 ", "Variador 5kW"))
	assert.Equal(t, "q-1", res.Target)
	assert.Equal(t, StrategyCode, res.Strategy)
	assert.Equal(t, 1.0, res.Confidence)
	assert.True(t, res.Accepted)
	assert.Empty(t, res.Suggestions)
}

func TestMatchAmbiguousCodeLeavesRowUnmapped(t *testing.T) {
	m := NewQuotedMatcher(config.Default(), matcherOptions())

	res := m.Match(verified(1, "EQ500", "Bomba"))
	assert.False(t, res.Mapped())
	assert.Equal(t, StrategyCode, res.Strategy)
	assert.ElementsMatch(t, []string{"q-5", "q-6"}, res.Candidates)
}

func TestMatchDescriptionContainment(t *testing.T) {
	m := NewQuotedMatcher(config.Default(), matcherOptions())

	res := m.Match(verified(1, "ZZ9", "motor 10hp"))
	assert.Equal(t, "q-2", res.Target)
	assert.Equal(t, StrategyDescription, res.Strategy)
	assert.Equal(t, 1.0, res.Confidence)

	res = m.Match(verified(2, "ZZ9", "Motor 10HP con base"))
	assert.Equal(t, "q-2", res.Target)
	assert.Less(t, res.Confidence, 1.0)

	tied := m.Match(verified(3, "ZZ8", "variador"))
	assert.False(t, tied.Mapped())
	assert.Equal(t, StrategyDescription, tied.Strategy)
	assert.ElementsMatch(t, []string{"q-1", "q-3"}, tied.Candidates)
}

func TestMatchEmbeddedCodeRequiresMinimumLength(t *testing.T) {
	m := NewQuotedMatcher(config.Default(), matcherOptions())

	res := m.Match(verified(1, "TAB-0042", "Tablero principal"))
	assert.Equal(t, "q-4", res.Target)
	assert.Equal(t, StrategyEmbeddedCode, res.Strategy)

	short := m.Match(verified(2, "TAB", "Otro"))
	assert.False(t, short.Mapped())
	assert.Equal(t, StrategyNone, short.Strategy)
}

func TestMatchAmbiguousEmbeddedCodeLeavesRowUnmapped(t *testing.T) {
	m := NewQuotedMatcher(config.Default(), []internal.QuotedItemOption{
		{ID: "q-10", Code: "B1", Description: "Bomba PMP-0710 principal", GroupID: "g-1"},
		{ID: "q-11", Code: "B2", Description: "Sello mecánico PMP-0710", GroupID: "g-1"},
		{ID: "q-12", Code: "B3", Description: "Tablero de bombas", GroupID: "g-1"},
	})

	res := m.Match(verified(1, "PMP-0710", "Equipo centrífugo"))
	assert.False(t, res.Mapped())
	assert.Equal(t, StrategyEmbeddedCode, res.Strategy)
	assert.ElementsMatch(t, []string{"q-10", "q-11"}, res.Candidates)
}

func TestMatchMinimumFuzzyLengthGuard(t *testing.T) {
	opts := []internal.QuotedItemOption{{ID: "q-kit", Code: "K1", Description: "Kit"}}
	row := verified(1, "ZZ7", "Kit de montaje")

	cfg := config.Default()
	assert.Equal(t, "q-kit", NewQuotedMatcher(cfg, opts).Match(row).Target)

	cfg.MatchMinFuzzyLen = 5
	assert.False(t, NewQuotedMatcher(cfg, opts).Match(row).Mapped())
}

func TestSuggestionsAreNeverApplied(t *testing.T) {
	m := NewQuotedMatcher(config.Default(), matcherOptions())

	res := m.Match(verified(1, "NOPE-1", "Variador trifásico"))
	assert.False(t, res.Mapped())
	require.NotEmpty(t, res.Suggestions)
	assert.LessOrEqual(t, len(res.Suggestions), 3)
	assert.Equal(t, "q-3", res.Suggestions[0].QuotedItemID)

	cfg := config.Default()
	cfg.MatchSuggestionLimit = 0
	assert.Empty(t, NewQuotedMatcher(cfg, matcherOptions()).Match(verified(1, "NOPE-1", "Variador trifásico")).Suggestions)
}

func TestDefaultMappings(t *testing.T) {
	m := NewQuotedMatcher(config.Default(), matcherOptions())

	mappings := m.DefaultMappings([]internal.VerifiedRow{
		verified(1, "EQ001", "Variador 5kW"),
		verified(2, "EQ500", "Bomba"),
		verified(3, "ZZ9", "Motor 10HP"),
	})
	assert.Equal(t, map[int]string{1: "q-1", 3: "q-2"}, mappings)
}
