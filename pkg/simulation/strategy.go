package simulation

import (
	"math/rand/v2"
	"slices"

	"github.com/mpapenbr/racesim-core-go/pkg/model"
)

// generatePlan draws a pit strategy for one entity. The stop count is
// uniform in [minStops, maxStops], the pit laps uniform without
// replacement from [2, raceLength-1]. Short races cap the count at the
// number of available laps (a 2 lap race pits never).
func generatePlan(
	rng *rand.Rand,
	entityID string,
	raceLength, minStops, maxStops int,
) *model.StrategyPlan {
	ret := &model.StrategyPlan{EntityID: entityID}
	available := raceLength - 2
	if available <= 0 {
		return ret
	}
	count := minStops
	if maxStops > minStops {
		count = minStops + rng.IntN(maxStops-minStops+1)
	}
	if count > available {
		count = available
	}
	if count <= 0 {
		return ret
	}
	laps := make([]int, 0, count)
	for _, idx := range rng.Perm(available)[:count] {
		laps = append(laps, idx+2)
	}
	slices.Sort(laps)
	ret.PitLaps = laps
	return ret
}
