package model

// LapRecord is one historical lap as supplied by the data collaborator.
// Records are read-only input; lap numbers are strictly increasing per
// entity within a session.
type LapRecord struct {
	EntityID    string  `json:"entityId"`
	LapNumber   int     `json:"lapNumber"`
	LapDuration float64 `json:"lapDuration"` // unit: s
	IsValid     bool    `json:"isValid"`
	PitFlag     bool    `json:"pitFlag"`
}

// LapProfile is the statistical summary of expected lap-time behavior
// for a venue. Immutable after construction.
type LapProfile struct {
	BaselineDuration  float64 `json:"baselineDuration"`  // unit: s
	DegradationPerLap float64 `json:"degradationPerLap"` // unit: s/lap
	DurationStddev    float64 `json:"durationStddev"`    // unit: s
	PitLossMean       float64 `json:"pitLossMean"`       // unit: s
	PitLossStddev     float64 `json:"pitLossStddev"`     // unit: s

	// diagnostics
	ValidLaps   int `json:"validLaps"`
	DroppedLaps int `json:"droppedLaps"`
	PitLaps     int `json:"pitLaps"`
}

// StrategyPlan holds the pit laps for one entity in a single run.
// PitLaps are strictly increasing within [1, raceLength].
type StrategyPlan struct {
	EntityID string `json:"entityId"`
	PitLaps  []int  `json:"pitLaps"`
}

type (
	// TrajectoryPoint is the state of one entity after completing a lap.
	TrajectoryPoint struct {
		LapNumber      int     `json:"lapNumber"`
		CumulativeTime float64 `json:"cumulativeTime"` // unit: s
		Position       int     `json:"position"`
	}

	// SimulatedTrajectory is the output of a single simulation run.
	// Immutable once produced.
	SimulatedTrajectory struct {
		RunID    string                       `json:"runId"`
		Seed     uint64                       `json:"seed"`
		Entities map[string][]TrajectoryPoint `json:"entities"`
	}

	// Ensemble collects N independent runs of the same configuration.
	// It only exists to be aggregated and is discarded afterwards.
	Ensemble struct {
		ID   string                 `json:"id"`
		Runs []*SimulatedTrajectory `json:"runs"`
	}
)

// FinalPosition returns the finish position of an entity in this run
// and false when the entity is not part of the trajectory.
func (t *SimulatedTrajectory) FinalPosition(entityID string) (int, bool) {
	points, ok := t.Entities[entityID]
	if !ok || len(points) == 0 {
		return 0, false
	}
	return points[len(points)-1].Position, true
}
