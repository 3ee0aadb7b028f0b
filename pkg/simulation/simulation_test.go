//nolint:funlen,lll // readability
package simulation

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/racesim-core-go/pkg/model"
)

func sampleProfile() *model.LapProfile {
	return &model.LapProfile{
		BaselineDuration:  90.0,
		DegradationPerLap: 0.05,
		DurationStddev:    0.8,
		PitLossMean:       24.0,
		PitLossStddev:     1.5,
	}
}

// profile without any randomness, for exact expectations
func flatProfile() *model.LapProfile {
	return &model.LapProfile{
		BaselineDuration:  90.0,
		DegradationPerLap: 0.1,
		DurationStddev:    0,
		PitLossMean:       24.0,
		PitLossStddev:     0,
	}
}

func TestSimulator_Run_deterministic(t *testing.T) {
	s := NewSimulator(sampleProfile(), []string{"1", "16", "44", "55"}, 20)
	first, err := s.Run(42)
	assert.NoError(t, err)
	second, err := s.Run(42)
	assert.NoError(t, err)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same seed must reproduce the identical trajectory")
	}

	other, err := s.Run(43)
	assert.NoError(t, err)
	if reflect.DeepEqual(first.Entities, other.Entities) {
		t.Errorf("different seeds should not produce identical trajectories")
	}
}

func TestSimulator_Run_rankingIsTotalOrder(t *testing.T) {
	entities := []string{"1", "4", "11", "16", "44", "55", "63", "81"}
	s := NewSimulator(sampleProfile(), entities, 30)
	traj, err := s.Run(7)
	assert.NoError(t, err)

	for lap := 1; lap <= 30; lap++ {
		seen := make(map[int]string)
		for id, points := range traj.Entities {
			pos := points[lap-1].Position
			if other, dup := seen[pos]; dup {
				t.Errorf("lap %d: position %d assigned to %s and %s", lap, pos, other, id)
			}
			seen[pos] = id
			assert.GreaterOrEqual(t, pos, 1)
			assert.LessOrEqual(t, pos, len(entities))
		}
	}
}

func TestSimulator_Run_tieBrokenByEntityID(t *testing.T) {
	// no variance and no pit stops: every entity posts identical times
	prof := flatProfile()
	noPits := []*model.StrategyPlan{
		{EntityID: "44"}, {EntityID: "1"}, {EntityID: "16"},
	}
	s := NewSimulator(prof, []string{"44", "1", "16"}, 5, WithPlans(noPits))
	traj, err := s.Run(1)
	assert.NoError(t, err)

	for lap := 1; lap <= 5; lap++ {
		assert.Equal(t, 1, traj.Entities["1"][lap-1].Position)
		assert.Equal(t, 2, traj.Entities["16"][lap-1].Position)
		assert.Equal(t, 3, traj.Entities["44"][lap-1].Position)
	}
}

func TestSimulator_Run_pitLossApplied(t *testing.T) {
	plans := []*model.StrategyPlan{
		{EntityID: "1"},
		{EntityID: "2", PitLaps: []int{2}},
	}
	s := NewSimulator(flatProfile(), []string{"1", "2"}, 3, WithPlans(plans))
	traj, err := s.Run(99)
	assert.NoError(t, err)

	// lap means: 90.1, 90.2, 90.3
	assert.InDelta(t, 270.6, traj.Entities["1"][2].CumulativeTime, 1e-9)
	assert.InDelta(t, 294.6, traj.Entities["2"][2].CumulativeTime, 1e-9)
	assert.Equal(t, 1, traj.Entities["1"][2].Position)
	assert.Equal(t, 2, traj.Entities["2"][2].Position)
}

func TestSimulator_Run_durationsNeverNegative(t *testing.T) {
	prof := &model.LapProfile{
		BaselineDuration:  0.5,
		DegradationPerLap: 0,
		DurationStddev:    10.0, // draws would often go negative without the floor
		PitLossMean:       0.1,
		PitLossStddev:     5.0,
	}
	s := NewSimulator(prof, []string{"1", "2"}, 50)
	traj, err := s.Run(3)
	assert.NoError(t, err)

	for id, points := range traj.Entities {
		prev := 0.0
		for _, p := range points {
			if p.CumulativeTime < prev {
				t.Errorf("entity %s: cumulative time decreased at lap %d", id, p.LapNumber)
			}
			prev = p.CumulativeTime
		}
	}
}

func TestSimulator_Run_invalidConfiguration(t *testing.T) {
	prof := sampleProfile()
	tests := []struct {
		name  string
		sim   *Simulator
		field string
	}{
		{
			name:  "race length zero",
			sim:   NewSimulator(prof, []string{"1"}, 0),
			field: "raceLength",
		},
		{
			name:  "no entities",
			sim:   NewSimulator(prof, []string{}, 10),
			field: "entities",
		},
		{
			name:  "nil profile",
			sim:   NewSimulator(nil, []string{"1"}, 10),
			field: "profile",
		},
		{
			name: "pit lap beyond race length",
			sim: NewSimulator(prof, []string{"1"}, 10,
				WithPlans([]*model.StrategyPlan{{EntityID: "1", PitLaps: []int{11}}})),
			field: "plans",
		},
		{
			name: "pit lap zero",
			sim: NewSimulator(prof, []string{"1"}, 10,
				WithPlans([]*model.StrategyPlan{{EntityID: "1", PitLaps: []int{0}}})),
			field: "plans",
		},
		{
			name: "pit laps not increasing",
			sim: NewSimulator(prof, []string{"1"}, 10,
				WithPlans([]*model.StrategyPlan{{EntityID: "1", PitLaps: []int{5, 5}}})),
			field: "plans",
		},
		{
			name: "plan for unknown entity",
			sim: NewSimulator(prof, []string{"1"}, 10,
				WithPlans([]*model.StrategyPlan{{EntityID: "99", PitLaps: []int{5}}})),
			field: "plans",
		},
		{
			name:  "bad pit bounds",
			sim:   NewSimulator(prof, []string{"1"}, 10, WithPitStopBounds(3, 1)),
			field: "pitStopBounds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sim.Run(1)
			var invalid *InvalidConfigurationError
			if !errors.As(err, &invalid) {
				t.Errorf("want InvalidConfigurationError, got %v", err)
				return
			}
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestSimulator_Run_stableRunID(t *testing.T) {
	s := NewSimulator(sampleProfile(), []string{"1"}, 2)
	a, err := s.Run(5)
	assert.NoError(t, err)
	b, err := s.Run(5)
	assert.NoError(t, err)
	assert.Equal(t, a.RunID, b.RunID)
	c, err := s.Run(6)
	assert.NoError(t, err)
	assert.NotEqual(t, a.RunID, c.RunID)
}
