//nolint:funlen // readability
package podium

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/racesim-core-go/pkg/model"
	"github.com/mpapenbr/racesim-core-go/pkg/simulation"
)

func sampleEnsemble(t *testing.T, runs int) *model.Ensemble {
	t.Helper()
	prof := &model.LapProfile{
		BaselineDuration:  90.0,
		DegradationPerLap: 0.05,
		DurationStddev:    1.2,
		PitLossMean:       24.0,
		PitLossStddev:     2.0,
	}
	s := simulation.NewSimulator(prof, []string{"1", "16", "44", "55", "63"}, 25)
	ensemble, err := simulation.NewEnsembleRunner(s, runs, 4711).Run(context.Background())
	assert.NoError(t, err)
	return ensemble
}

func TestPredictor_Aggregate_distributionsSumToOne(t *testing.T) {
	const runs = 200
	pred, err := NewPredictor().Aggregate(sampleEnsemble(t, runs))
	assert.NoError(t, err)
	assert.Equal(t, runs, pred.Runs)
	assert.Len(t, pred.Distributions, 5)

	// one finish position per entity per run
	totalAssignments := 0.0
	for id, dist := range pred.Distributions {
		assert.Len(t, dist, 5)
		sum := 0.0
		for _, p := range dist {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "distribution of %s", id)
		totalAssignments += sum * float64(runs)
	}
	assert.InDelta(t, float64(5*runs), totalAssignments, 1e-6)
}

func TestPredictor_Aggregate_degenerateEnsemble(t *testing.T) {
	// zero variance and no pit stops: finish order is the entity id
	// tie-break, identical in every run
	prof := &model.LapProfile{BaselineDuration: 90.0}
	plans := []*model.StrategyPlan{{EntityID: "1"}, {EntityID: "2"}, {EntityID: "3"}}
	s := simulation.NewSimulator(prof, []string{"1", "2", "3"}, 10,
		simulation.WithPlans(plans))
	ensemble, err := simulation.NewEnsembleRunner(s, 50, 1).Run(context.Background())
	assert.NoError(t, err)

	pred, err := NewPredictor().Aggregate(ensemble)
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, pred.WinProbability("1"), 1e-9)
	assert.InDelta(t, 0.0, pred.WinProbability("2"), 1e-9)
	assert.Equal(t, []float64{0, 1, 0}, pred.Distributions["2"])
	assert.Equal(t, []float64{0, 0, 1}, pred.Distributions["3"])
}

func TestPrediction_PodiumProbability(t *testing.T) {
	pred := &Prediction{
		Runs: 100,
		Distributions: map[string][]float64{
			"1":  {0.5, 0.2, 0.1, 0.15, 0.05},
			"44": {0.1, 0.1, 0.1, 0.3, 0.4},
		},
	}
	assert.InDelta(t, 0.8, pred.PodiumProbability("1"), 1e-9)
	assert.InDelta(t, 0.3, pred.PodiumProbability("44"), 1e-9)
	assert.InDelta(t, 0.0, pred.PodiumProbability("99"), 1e-9)
	assert.InDelta(t, 0.5, pred.WinProbability("1"), 1e-9)
}

func TestPredictor_Aggregate_errors(t *testing.T) {
	tests := []struct {
		name     string
		ensemble *model.Ensemble
	}{
		{name: "nil ensemble", ensemble: nil},
		{name: "no runs", ensemble: &model.Ensemble{ID: "x"}},
		{
			name: "mismatched entity sets",
			ensemble: &model.Ensemble{
				ID: "x",
				Runs: []*model.SimulatedTrajectory{
					{RunID: "a", Entities: map[string][]model.TrajectoryPoint{
						"1": {{LapNumber: 1, CumulativeTime: 90, Position: 1}},
					}},
					{RunID: "b", Entities: map[string][]model.TrajectoryPoint{
						"2": {{LapNumber: 1, CumulativeTime: 90, Position: 1}},
					}},
				},
			},
		},
		{
			name: "missing finish position",
			ensemble: &model.Ensemble{
				ID: "x",
				Runs: []*model.SimulatedTrajectory{
					{RunID: "a", Entities: map[string][]model.TrajectoryPoint{
						"1": {},
					}},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPredictor().Aggregate(tt.ensemble)
			var invalid *simulation.InvalidConfigurationError
			assert.True(t, errors.As(err, &invalid))
		})
	}
}
