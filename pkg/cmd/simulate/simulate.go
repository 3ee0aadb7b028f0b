package simulate

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"time"

	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/archive"
	"github.com/mpapenbr/racesim-core-go/pkg/config"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
	"github.com/mpapenbr/racesim-core-go/pkg/profile"
	"github.com/mpapenbr/racesim-core-go/pkg/simulation"
	"github.com/mpapenbr/racesim-core-go/pkg/simulation/podium"
	"github.com/mpapenbr/racesim-core-go/pkg/utils/cache/loadercache"
)

//nolint:funlen // by design
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "runs a Monte Carlo race simulation on a recorded session",
		Long: `runs a Monte Carlo race simulation on a recorded session
The lap profile is computed from the lap history of the archive.
A scenario file may override entities, race length and pit strategies.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startSimulation(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&config.Runs,
		"runs",
		200,
		"number of simulation runs in the ensemble")
	cmd.Flags().Int64Var(&config.Seed,
		"seed",
		0,
		"random seed for the ensemble (0 picks one)")
	cmd.Flags().IntVar(&config.RaceLength,
		"race-length",
		0,
		"race length in laps (0 uses the scenario or the recorded session)")
	cmd.Flags().IntVar(&config.MinValidLaps,
		"min-valid-laps",
		profile.DefaultMinValidLaps,
		"minimum number of valid laps required to build a profile")
	cmd.Flags().Float64Var(&config.MinLapTime,
		"min-lap-time",
		profile.DefaultMinLapTime,
		"plausibility floor for lap durations in seconds")
	cmd.Flags().IntVar(&config.PitStopsMin,
		"pit-stops-min",
		simulation.DefaultPitStopsMin,
		"lower bound for generated pit stop counts")
	cmd.Flags().IntVar(&config.PitStopsMax,
		"pit-stops-max",
		simulation.DefaultPitStopsMax,
		"upper bound for generated pit stop counts")
	cmd.Flags().IntVar(&config.Workers,
		"workers",
		0,
		"parallel simulation workers (0 uses the number of CPUs)")
	cmd.Flags().StringVar(&config.OutputFormat,
		"output-format",
		"text",
		"controls the report output format (text, json)")

	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	cmd.Flags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"zapfilter rules applied to text format logs")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"",
		"endpoint that receives open telemetry data (empty: stdout)")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		if config.LogFilter != "" {
			logger = log.DevLoggerWithFilter(
				os.Stderr,
				parseLogLevel(config.LogLevel, log.DebugLevel),
				config.LogFilter,
				log.WithCaller(true),
				log.AddCallerSkip(1))
		} else {
			logger = log.DevLogger(
				os.Stderr,
				parseLogLevel(config.LogLevel, log.DebugLevel),
				log.WithCaller(true),
				log.AddCallerSkip(1))
		}
	}
	log.ResetDefault(logger)
}

//nolint:funlen,cyclop // by design
func startSimulation(ctx context.Context) error {
	setupLogger()
	var telemetry *config.Telemetry

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	if config.Archive == "" {
		return fmt.Errorf("no archive given (use --archive)")
	}
	session, err := archive.NewLoader().Load(ctx, config.Archive)
	if err != nil {
		return err
	}
	params, err := collectParams(session)
	if err != nil {
		return err
	}
	log.Debug("simulation parameters",
		log.Int("runs", params.runs),
		log.Uint64("seed", params.seed),
		log.Int("raceLength", params.raceLength),
		log.Int("entities", len(params.entities)))

	profileCache := loadercache.New(
		loadercache.WithLoader(
			func(_ context.Context, key profileKey) (*model.LapProfile, error) {
				return profile.NewBuilder(
					profile.WithMinValidLaps(key.MinValidLaps),
					profile.WithMinLapTime(key.MinLapTime),
				).Build(session.Laps)
			}))
	prof, err := profileCache.Get(ctx, profileKey{
		Fingerprint:  session.Fingerprint,
		MinValidLaps: params.minValidLaps,
		MinLapTime:   params.minLapTime,
	})
	if err != nil {
		return err
	}
	log.Info("lap profile ready",
		log.Float64("baseline", prof.BaselineDuration),
		log.Float64("degradation", prof.DegradationPerLap),
		log.Int("validLaps", prof.ValidLaps),
		log.Int("droppedLaps", prof.DroppedLaps))

	simOpts := []simulation.Option{
		simulation.WithPitStopBounds(params.pitStopsMin, params.pitStopsMax),
	}
	if len(params.plans) > 0 {
		simOpts = append(simOpts, simulation.WithPlans(params.plans))
	}
	sim := simulation.NewSimulator(prof, params.entities, params.raceLength, simOpts...)

	runnerOpts := []simulation.RunnerOption{}
	if config.Workers > 0 {
		runnerOpts = append(runnerOpts, simulation.WithWorkers(config.Workers))
	}
	runner := simulation.NewEnsembleRunner(sim, params.runs, params.seed, runnerOpts...)
	log.Info("Starting ensemble")
	ensemble, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	prediction, err := podium.NewPredictor().Aggregate(ensemble)
	if err != nil {
		return err
	}
	if err := writeReport(os.Stdout, newReport(session, params, prediction)); err != nil {
		return err
	}

	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Simulation done")
	return nil
}

// profileKey makes a changed archive or changed build parameters a
// different cache entry.
type profileKey struct {
	Fingerprint  string
	MinValidLaps int
	MinLapTime   float64
}
