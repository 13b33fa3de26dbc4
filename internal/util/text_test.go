package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "eq001", NormalizeKey("  EQ001 "))
	assert.Equal(t, "", NormalizeKey("   "))
}

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, "VALVULA DE BOLA 1/2", NormalizeDescription("Válvula  de bola, 1/2\""))
	assert.Equal(t, "BOMBA CAÑERIA 3X2", NormalizeDescription("bomba cañería 3×2"))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Variador 5kW", "variador 5KW trifásico"))
	assert.True(t, ContainsFold("VARIADOR 5KW TRIFÁSICO", "variador"))
	assert.False(t, ContainsFold("Motor", "Bomba"))
	assert.False(t, ContainsFold("", "Bomba"))
}

func TestDiceCoefficient(t *testing.T) {
	assert.Equal(t, 1.0, DiceCoefficient("abc", "abc"))
	assert.Equal(t, 0.0, DiceCoefficient("", "abc"))
	assert.InDelta(t, 0.5, DiceCoefficient("abcd", "abxy"), 0.2)
}

func TestLooksLikeCode(t *testing.T) {
	assert.True(t, LooksLikeCode("EQ001"))
	assert.False(t, LooksLikeCode("Variador"))
	assert.False(t, LooksLikeCode("A1"))
}
