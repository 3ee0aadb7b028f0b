package podium

import (
	"fmt"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
	"github.com/mpapenbr/racesim-core-go/pkg/simulation"
)

type (
	// Prediction holds the empirical finish position distribution per
	// entity. Distributions[id][p] is the frequency of finishing in
	// position p+1 across the ensemble.
	Prediction struct {
		Runs          int                  `json:"runs"`
		Distributions map[string][]float64 `json:"distributions"`
	}

	Predictor struct {
		l *log.Logger
	}
	Option func(*Predictor)
)

func WithLogger(logger *log.Logger) Option {
	return func(p *Predictor) { p.l = logger }
}

func NewPredictor(opts ...Option) *Predictor {
	ret := &Predictor{l: log.Default().Named("podium")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Aggregate turns an ensemble into per-entity finish position
// frequencies. At least one run is required; 100+ runs are recommended
// for stable estimates. No resampling happens here, the caller decides
// how many runs are worth their cost.
//
//nolint:cyclop // sequential validation
func (p *Predictor) Aggregate(ensemble *model.Ensemble) (*Prediction, error) {
	if ensemble == nil || len(ensemble.Runs) < 1 {
		return nil, &simulation.InvalidConfigurationError{
			Field:  "ensemble",
			Detail: "at least one run required",
		}
	}
	numRuns := len(ensemble.Runs)
	numEntities := len(ensemble.Runs[0].Entities)

	counts := make(map[string][]int, numEntities)
	for id := range ensemble.Runs[0].Entities {
		counts[id] = make([]int, numEntities)
	}
	for _, run := range ensemble.Runs {
		if len(run.Entities) != numEntities {
			return nil, &simulation.InvalidConfigurationError{
				Field:  "ensemble",
				Detail: fmt.Sprintf("run %s has a different entity set", run.RunID),
			}
		}
		for id := range run.Entities {
			positions, known := counts[id]
			if !known {
				return nil, &simulation.InvalidConfigurationError{
					Field:  "ensemble",
					Detail: fmt.Sprintf("run %s has a different entity set", run.RunID),
				}
			}
			pos, ok := run.FinalPosition(id)
			if !ok || pos < 1 || pos > numEntities {
				return nil, &simulation.InvalidConfigurationError{
					Field:  "ensemble",
					Detail: fmt.Sprintf("run %s: entity %s has no valid finish position", run.RunID, id),
				}
			}
			positions[pos-1]++
		}
	}

	ret := &Prediction{
		Runs:          numRuns,
		Distributions: make(map[string][]float64, numEntities),
	}
	for id, positions := range counts {
		dist := make([]float64, numEntities)
		for i, c := range positions {
			dist[i] = float64(c) / float64(numRuns)
		}
		ret.Distributions[id] = dist
	}
	p.l.Debug("aggregated ensemble",
		log.String("id", ensemble.ID),
		log.Int("runs", numRuns),
		log.Int("entities", numEntities))
	return ret, nil
}

// WinProbability is the frequency of finishing first.
func (p *Prediction) WinProbability(entityID string) float64 {
	dist, ok := p.Distributions[entityID]
	if !ok || len(dist) == 0 {
		return 0
	}
	return dist[0]
}

// PodiumProbability is the summed frequency of the top three positions.
func (p *Prediction) PodiumProbability(entityID string) float64 {
	dist, ok := p.Distributions[entityID]
	if !ok {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(dist) && i < 3; i++ {
		sum += dist[i]
	}
	return sum
}
