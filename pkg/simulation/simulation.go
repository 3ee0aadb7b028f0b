package simulation

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
)

const (
	// DefaultPitStopsMin and DefaultPitStopsMax bound the pit stop count
	// drawn for entities without a supplied strategy plan.
	DefaultPitStopsMin = 1
	DefaultPitStopsMax = 3
)

// InvalidConfigurationError signals malformed simulation parameters.
type InvalidConfigurationError struct {
	Field  string
	Detail string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Detail)
}

type (
	// Simulator produces one simulated race trajectory per Run call.
	// A Simulator is immutable after construction; concurrent Run calls
	// are safe because every run owns its seeded generator.
	Simulator struct {
		profile     *model.LapProfile
		entities    []string
		raceLength  int
		plans       map[string]*model.StrategyPlan
		pitStopsMin int
		pitStopsMax int
		l           *log.Logger
	}
	Option func(*Simulator)
)

// WithPlans supplies fixed strategy plans. Entities without a plan get
// one generated per run.
func WithPlans(plans []*model.StrategyPlan) Option {
	return func(s *Simulator) {
		for _, p := range plans {
			s.plans[p.EntityID] = p
		}
	}
}

func WithPitStopBounds(minStops, maxStops int) Option {
	return func(s *Simulator) {
		s.pitStopsMin = minStops
		s.pitStopsMax = maxStops
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Simulator) { s.l = logger }
}

func NewSimulator(
	profile *model.LapProfile,
	entities []string,
	raceLength int,
	opts ...Option,
) *Simulator {
	ret := &Simulator{
		profile:     profile,
		entities:    slices.Clone(entities),
		raceLength:  raceLength,
		plans:       make(map[string]*model.StrategyPlan),
		pitStopsMin: DefaultPitStopsMin,
		pitStopsMax: DefaultPitStopsMax,
		l:           log.Default().Named("simulation"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

//nolint:cyclop // sequential checks
func (s *Simulator) validate() error {
	if s.profile == nil {
		return &InvalidConfigurationError{Field: "profile", Detail: "must not be nil"}
	}
	if s.raceLength < 1 {
		return &InvalidConfigurationError{
			Field:  "raceLength",
			Detail: fmt.Sprintf("must be >= 1 (got %d)", s.raceLength),
		}
	}
	if len(s.entities) < 1 {
		return &InvalidConfigurationError{
			Field:  "entities",
			Detail: "at least one entity required",
		}
	}
	if s.pitStopsMin < 0 || s.pitStopsMax < s.pitStopsMin {
		return &InvalidConfigurationError{
			Field: "pitStopBounds",
			Detail: fmt.Sprintf("need 0 <= min <= max (got %d..%d)",
				s.pitStopsMin, s.pitStopsMax),
		}
	}
	for id, plan := range s.plans {
		if !slices.Contains(s.entities, id) {
			return &InvalidConfigurationError{
				Field:  "plans",
				Detail: fmt.Sprintf("plan for unknown entity %s", id),
			}
		}
		for i, lap := range plan.PitLaps {
			if lap < 1 || lap > s.raceLength {
				return &InvalidConfigurationError{
					Field: "plans",
					Detail: fmt.Sprintf("entity %s: pit lap %d outside [1,%d]",
						id, lap, s.raceLength),
				}
			}
			if i > 0 && plan.PitLaps[i] <= plan.PitLaps[i-1] {
				return &InvalidConfigurationError{
					Field:  "plans",
					Detail: fmt.Sprintf("entity %s: pit laps not strictly increasing", id),
				}
			}
		}
	}
	return nil
}

// Run executes one simulation with its own generator seeded from seed.
// Identical seed, profile and plans produce identical output. Draw
// order is fixed: missing plans are generated first, then one duration
// draw per (entity, lap) plus one pit loss draw on pit laps.
func (s *Simulator) Run(seed uint64) (*model.SimulatedTrajectory, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	src := rand.NewPCG(seed, seed)
	rng := rand.New(src)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	plans := s.runPlans(rng)

	cumTimes := make([][]float64, len(s.entities))
	for eIdx, id := range s.entities {
		cumTimes[eIdx] = make([]float64, s.raceLength)
		cum := 0.0
		for lap := 1; lap <= s.raceLength; lap++ {
			mean := s.profile.BaselineDuration +
				s.profile.DegradationPerLap*float64(lap)
			dur := mean + s.profile.DurationStddev*norm.Rand()
			if dur < 0 {
				dur = 0
			}
			if slices.Contains(plans[id].PitLaps, lap) {
				loss := s.profile.PitLossMean + s.profile.PitLossStddev*norm.Rand()
				if loss < 0 {
					loss = 0
				}
				dur += loss
			}
			cum += dur
			cumTimes[eIdx][lap-1] = cum
		}
	}

	ret := &model.SimulatedTrajectory{
		RunID:    runID(seed),
		Seed:     seed,
		Entities: make(map[string][]model.TrajectoryPoint, len(s.entities)),
	}
	for eIdx, id := range s.entities {
		points := make([]model.TrajectoryPoint, s.raceLength)
		for lap := 1; lap <= s.raceLength; lap++ {
			points[lap-1] = model.TrajectoryPoint{
				LapNumber:      lap,
				CumulativeTime: cumTimes[eIdx][lap-1],
			}
		}
		ret.Entities[id] = points
	}
	for lap := 1; lap <= s.raceLength; lap++ {
		ranked := rankByCumulativeTime(s.entities, cumTimes, lap)
		for pos, eIdx := range ranked {
			ret.Entities[s.entities[eIdx]][lap-1].Position = pos + 1
		}
	}
	return ret, nil
}

// runPlans combines supplied plans with generated ones for this run.
func (s *Simulator) runPlans(rng *rand.Rand) map[string]*model.StrategyPlan {
	ret := make(map[string]*model.StrategyPlan, len(s.entities))
	for _, id := range s.entities {
		if plan, ok := s.plans[id]; ok {
			ret[id] = plan
			continue
		}
		ret[id] = generatePlan(rng, id, s.raceLength, s.pitStopsMin, s.pitStopsMax)
	}
	return ret
}

// rankByCumulativeTime orders entity indices by cumulative time after
// the given lap. Exact ties are broken by entity id so that rankings
// stay a deterministic total order.
func rankByCumulativeTime(entities []string, cumTimes [][]float64, lap int) []int {
	ranked := make([]int, len(entities))
	for i := range ranked {
		ranked[i] = i
	}
	slices.SortStableFunc(ranked, func(a, b int) int {
		if c := cmp.Compare(cumTimes[a][lap-1], cumTimes[b][lap-1]); c != 0 {
			return c
		}
		return cmp.Compare(entities[a], entities[b])
	})
	return ranked
}

// runID derives a stable id from the seed so that reruns with the same
// seed are byte identical.
func runID(seed uint64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "racesim-run-%d", seed)).String()
}
