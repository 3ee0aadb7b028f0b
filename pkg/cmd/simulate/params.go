package simulate

import (
	"maps"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/archive"
	"github.com/mpapenbr/racesim-core-go/pkg/config"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
)

// simParams holds the effective simulation inputs after merging CLI
// values with the scenario file. Scenario values win when set.
type simParams struct {
	runs         int
	seed         uint64
	raceLength   int
	minValidLaps int
	minLapTime   float64
	pitStopsMin  int
	pitStopsMax  int
	entities     []string
	plans        []*model.StrategyPlan
}

//nolint:cyclop // sequential overrides
func collectParams(session *archive.Session) (*simParams, error) {
	ret := &simParams{
		runs:         config.Runs,
		raceLength:   config.RaceLength,
		minValidLaps: config.MinValidLaps,
		minLapTime:   config.MinLapTime,
		pitStopsMin:  config.PitStopsMin,
		pitStopsMax:  config.PitStopsMax,
	}
	seed := config.Seed
	var scenario *archive.Scenario
	if config.Scenario != "" {
		var err error
		if scenario, err = archive.LoadScenario(config.Scenario); err != nil {
			return nil, err
		}
		log.Info("scenario loaded", log.String("path", config.Scenario))
	}
	if scenario != nil {
		if scenario.Runs > 0 {
			ret.runs = scenario.Runs
		}
		if scenario.RaceLength > 0 {
			ret.raceLength = scenario.RaceLength
		}
		if scenario.Seed != 0 {
			seed = scenario.Seed
		}
		if scenario.PitStopsMin > 0 {
			ret.pitStopsMin = scenario.PitStopsMin
		}
		if scenario.PitStopsMax > 0 {
			ret.pitStopsMax = scenario.PitStopsMax
		}
		if scenario.MinValidLaps > 0 {
			ret.minValidLaps = scenario.MinValidLaps
		}
		if scenario.MinLapTime > 0 {
			ret.minLapTime = scenario.MinLapTime
		}
		ret.plans = scenario.StrategyPlans()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
		log.Info("picked random seed", log.Int64("seed", seed))
	}
	ret.seed = uint64(seed) //nolint:gosec // two's complement roundtrip is fine here
	ret.entities = resolveEntities(session, scenario)
	if ret.raceLength == 0 {
		ret.raceLength = maxLapNumber(session.Laps)
	}
	return ret, nil
}

// resolveEntities prefers the scenario roster, then the archive
// metadata, then the distinct entities of the lap history.
func resolveEntities(session *archive.Session, scenario *archive.Scenario) []string {
	if scenario != nil && len(scenario.Entities) > 0 {
		return scenario.Entities
	}
	if len(session.Entities) > 0 {
		return slices.Sorted(maps.Keys(session.Entities))
	}
	ids := lo.Uniq(lo.Map(session.Laps,
		func(r model.LapRecord, _ int) string { return r.EntityID }))
	slices.Sort(ids)
	return ids
}

func maxLapNumber(laps []model.LapRecord) int {
	ret := 0
	for i := range laps {
		ret = max(ret, laps[i].LapNumber)
	}
	return ret
}
