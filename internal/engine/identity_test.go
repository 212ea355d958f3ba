package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dxbdata/server/internal/models"
)

func TestResolveUnit(t *testing.T) {
	tx := models.Transaction{BuildingName: "Marina Heights", Size: 85.4, Bedrooms: "2 B/R"}

	key, ok := ResolveUnit(&tx)
	assert.True(t, ok)
	assert.Equal(t, UnitKey{Building: "Marina Heights", SizeSqm: 85, Bedrooms: "2 B/R"}, key)

	// Sizes round to the nearest whole square meter
	tx.Size = 85.6
	key, _ = ResolveUnit(&tx)
	assert.Equal(t, 86, key.SizeSqm)
}

func TestResolveUnit_Exclusions(t *testing.T) {
	// No building name: no identity
	_, ok := ResolveUnit(&models.Transaction{Size: 85})
	assert.False(t, ok)

	// Non-positive size: no identity
	_, ok = ResolveUnit(&models.Transaction{BuildingName: "Tower", Size: 0})
	assert.False(t, ok)
	_, ok = ResolveUnit(&models.Transaction{BuildingName: "Tower", Size: -3})
	assert.False(t, ok)

	// Missing bedrooms is tolerated: still a usable key component
	key, ok := ResolveUnit(&models.Transaction{BuildingName: "Tower", Size: 120})
	assert.True(t, ok)
	assert.Equal(t, "", key.Bedrooms)
}

func TestResolveUnit_NoiseTolerance(t *testing.T) {
	// Two registrations of the same unit with measurement noise within
	// half a square meter resolve to the same identity.
	a := models.Transaction{BuildingName: "Tower", Size: 85.2, Bedrooms: "1 B/R"}
	b := models.Transaction{BuildingName: "Tower", Size: 84.9, Bedrooms: "1 B/R"}

	keyA, _ := ResolveUnit(&a)
	keyB, _ := ResolveUnit(&b)
	assert.Equal(t, keyA, keyB)
}
