package simulation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
)

type (
	// EnsembleRunner executes N independent simulation runs in parallel.
	// Member seeds are derived from the base seed so the whole ensemble
	// is reproducible.
	EnsembleRunner struct {
		sim      *Simulator
		runs     int
		seed     uint64
		workers  int
		onResult func(*model.SimulatedTrajectory)
		l        *log.Logger
	}
	RunnerOption func(*EnsembleRunner)
)

func WithWorkers(num int) RunnerOption {
	return func(r *EnsembleRunner) { r.workers = num }
}

// WithResultListener registers a callback invoked after each completed
// run. Callbacks may run concurrently.
func WithResultListener(cb func(*model.SimulatedTrajectory)) RunnerOption {
	return func(r *EnsembleRunner) { r.onResult = cb }
}

func WithRunnerLogger(logger *log.Logger) RunnerOption {
	return func(r *EnsembleRunner) { r.l = logger }
}

func NewEnsembleRunner(
	sim *Simulator,
	runs int,
	seed uint64,
	opts ...RunnerOption,
) *EnsembleRunner {
	ret := &EnsembleRunner{
		sim:     sim,
		runs:    runs,
		seed:    seed,
		workers: runtime.GOMAXPROCS(0),
		l:       log.Default().Named("simulation.ensemble"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Run executes the ensemble. Cancelling ctx stops pending members;
// already finished members are unaffected but the partial ensemble is
// not returned.
func (r *EnsembleRunner) Run(ctx context.Context) (*model.Ensemble, error) {
	if r.runs < 1 {
		return nil, &InvalidConfigurationError{
			Field:  "runs",
			Detail: fmt.Sprintf("must be >= 1 (got %d)", r.runs),
		}
	}
	ensembleID := uuid.NewString()
	r.l.Debug("starting ensemble",
		log.String("id", ensembleID),
		log.Int("runs", r.runs),
		log.Uint64("seed", r.seed),
		log.Int("workers", r.workers))

	results := make([]*model.SimulatedTrajectory, r.runs)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range r.runs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			traj, err := r.sim.Run(r.seed + uint64(i))
			if err != nil {
				return err
			}
			results[i] = traj
			if r.onResult != nil {
				r.onResult(traj)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &model.Ensemble{ID: ensembleID, Runs: results}, nil
}
