package engine

import (
	"math"

	"dxbdata/server/internal/models"
)

// SizeRoundingStepSqm controls how coarsely unit sizes are bucketed
// when deriving a unit identity. Rounding to the nearest whole square
// meter tolerates measurement noise between registrations of the same
// unit, at the cost of occasionally merging two genuinely different
// units of near-identical size. Renovated or remeasured units can
// likewise split into two identities. Both failure modes are accepted.
const SizeRoundingStepSqm = 1.0

// UnitKey is a heuristic identity for a physical unit. The ledger has
// no real foreign key for units, so two sales sharing a key within the
// same area are treated as the same unit.
type UnitKey struct {
	Building string
	SizeSqm  int
	Bedrooms string
}

// ResolveUnit derives the unit identity for a transaction. It returns
// false when the record cannot carry an identity (missing building
// name or a non-positive size); such records are excluded from flip
// analysis entirely.
func ResolveUnit(tx *models.Transaction) (UnitKey, bool) {
	if tx.BuildingName == "" || tx.Size <= 0 {
		return UnitKey{}, false
	}
	return UnitKey{
		Building: tx.BuildingName,
		SizeSqm:  int(math.Round(tx.Size / SizeRoundingStepSqm)),
		Bedrooms: tx.Bedrooms,
	}, true
}
