package archive

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/racesim-core-go/pkg/model"
)

type (
	// PlanSpec pins the pit strategy for one entity instead of having
	// the simulator draw one.
	PlanSpec struct {
		EntityID string `yaml:"entity_id"`
		PitLaps  []int  `yaml:"pit_laps"`
	}

	// Scenario overrides simulation inputs derived from the archive.
	// Zero values mean "use the configured default".
	Scenario struct {
		Entities     []string   `yaml:"entities,omitempty"`
		RaceLength   int        `yaml:"race_length,omitempty"`
		Runs         int        `yaml:"runs,omitempty"`
		Seed         int64      `yaml:"seed,omitempty"`
		PitStopsMin  int        `yaml:"pit_stops_min,omitempty"`
		PitStopsMax  int        `yaml:"pit_stops_max,omitempty"`
		MinValidLaps int        `yaml:"min_valid_laps,omitempty"`
		MinLapTime   float64    `yaml:"min_lap_time,omitempty"`
		Plans        []PlanSpec `yaml:"plans,omitempty"`
	}
)

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ret := &Scenario{}
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	return ret, nil
}

// StrategyPlans converts the fixed plans into simulator input.
func (s *Scenario) StrategyPlans() []*model.StrategyPlan {
	ret := make([]*model.StrategyPlan, 0, len(s.Plans))
	for i := range s.Plans {
		p := &s.Plans[i]
		ret = append(ret, &model.StrategyPlan{
			EntityID: p.EntityID,
			PitLaps:  p.PitLaps,
		})
	}
	return ret
}
