package basedata

import (
	"fmt"
	"math"

	"github.com/mpapenbr/racesim-core-go/pkg/model"
)

// PointsPerLap is the synthetic telemetry resolution per lap.
const PointsPerLap = 100

var (
	sampleCodes = []string{
		"VER", "HAM", "LEC", "NOR", "PER",
		"SAI", "RUS", "ALO", "OCO", "GAS",
	}
	sampleNames = []string{
		"Verstappen", "Hamilton", "Leclerc", "Norris", "Perez",
		"Sainz", "Russell", "Alonso", "Ocon", "Gasly",
	}
	sampleTeams = []string{
		"Red Bull", "Mercedes", "Ferrari", "McLaren", "Red Bull",
		"Ferrari", "Mercedes", "Aston Martin", "Alpine", "Alpine",
	}
	sampleColors = []string{
		"#0600EF", "#00D2BE", "#DC0000", "#FF8700", "#0600EF",
		"#DC0000", "#00D2BE", "#006F62", "#0090FF", "#0090FF",
	}
)

func SampleEntityInfos(num int) map[string]model.EntityInfo {
	num = min(num, len(sampleCodes))
	ret := make(map[string]model.EntityInfo, num)
	for i := range num {
		id := fmt.Sprintf("%d", i+1)
		ret[id] = model.EntityInfo{
			ID:    id,
			Code:  sampleCodes[i],
			Name:  sampleNames[i],
			Team:  sampleTeams[i],
			Color: sampleColors[i],
		}
	}
	return ret
}

func SampleProfile() *model.LapProfile {
	return &model.LapProfile{
		BaselineDuration:  90.0,
		DegradationPerLap: 0.05,
		DurationStddev:    0.8,
		PitLossMean:       24.0,
		PitLossStddev:     1.5,
		ValidLaps:         50,
	}
}

// SyntheticTelemetry moves entities around a circular track centered at
// (500,500) with radius 400, each entity phase-shifted so they do not
// overlap. Speed varies between 150 and 250. Lap numbers start at 1 and
// advance every PointsPerLap samples.
func SyntheticTelemetry(numEntities, numLaps int) map[string][]model.RawTelemetrySample {
	numEntities = min(numEntities, len(sampleCodes))
	totalPoints := PointsPerLap * numLaps
	ret := make(map[string][]model.RawTelemetrySample, numEntities)
	for i := range numEntities {
		id := fmt.Sprintf("%d", i+1)
		phase := float64(i) * 0.2
		samples := make([]model.RawTelemetrySample, totalPoints)
		for idx := range totalPoints {
			angle := (float64(idx)/PointsPerLap + phase) * 2 * math.Pi
			samples[idx] = model.RawTelemetrySample{
				EntityID:  id,
				Idx:       idx,
				X:         500 + 400*math.Cos(angle),
				Y:         500 + 400*math.Sin(angle),
				Speed:     200 + 50*math.Sin(angle*3),
				LapNumber: idx/PointsPerLap + 1,
			}
		}
		ret[id] = samples
	}
	return ret
}

// SampleOutline is a closed circular loop matching SyntheticTelemetry.
func SampleOutline(numPoints int) *model.TrackOutline {
	points := make([]model.OutlinePoint, numPoints)
	for i := range numPoints {
		angle := float64(i) / float64(numPoints) * 2 * math.Pi
		points[i] = model.OutlinePoint{
			X: 500 + 400*math.Cos(angle),
			Y: 500 + 400*math.Sin(angle),
		}
	}
	return &model.TrackOutline{VenueID: "testring", Points: points}
}

// SampleLaps produces plausible race laps for one entity: a linear
// degradation trend plus a deterministic zig-zag residual, with pit
// stops at the given laps.
func SampleLaps(entityID string, numLaps int, pitLaps ...int) []model.LapRecord {
	ret := make([]model.LapRecord, 0, numLaps)
	for lap := 1; lap <= numLaps; lap++ {
		dur := 90.0 + 0.05*float64(lap)
		if lap%2 == 0 {
			dur += 0.25
		} else {
			dur -= 0.25
		}
		rec := model.LapRecord{
			EntityID:    entityID,
			LapNumber:   lap,
			LapDuration: dur,
			IsValid:     true,
		}
		for _, pitLap := range pitLaps {
			if lap == pitLap {
				rec.PitFlag = true
				rec.LapDuration += 24.0
			}
		}
		ret = append(ret, rec)
	}
	return ret
}
