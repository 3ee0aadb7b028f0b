package replay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/archive"
	"github.com/mpapenbr/racesim-core-go/pkg/config"
	"github.com/mpapenbr/racesim-core-go/pkg/processing/frames"
)

var appConfig config.Config // holds processed config values

//nolint:funlen // by design
func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "replays the telemetry frames of a recorded session",
		Long: `replays the telemetry frames of a recorded session
The archive telemetry is decimated into synchronized frames which are
then played back at a fixed rate and fanned out to the subscribers.
With --watch the archive file is reloaded on change and the playback
loops until interrupted.
`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			appConfig = config.Config{}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return startReplay(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&config.SampleRate,
		"sample-rate",
		frames.DefaultSampleRate,
		"decimation stride for frame preprocessing")
	cmd.Flags().IntVar(&config.FPS,
		"fps",
		10,
		"playback rate in frames per second")
	cmd.Flags().BoolVar(&config.WatchArchive,
		"watch",
		false,
		"reload the archive when the file changes and loop the playback")
	cmd.Flags().BoolVar(&appConfig.PrintFrames,
		"print-frames",
		false,
		"if true and log level is debug, the frame payload will be printed")
	cmd.Flags().StringVar(&config.StaleDuration,
		"stale-duration",
		"1m",
		"loaded session is evicted if unused for this duration")

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
func startReplay(mainCtx context.Context) error {
	setupLogger()
	var telemetry *config.Telemetry
	defer func() {
		if telemetry != nil {
			telemetry.Shutdown()
		}
	}()

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
		if telemetry, err = config.SetupTelemetry(mainCtx); err != nil {
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
	if config.FPS < 1 {
		return fmt.Errorf("fps must be >= 1 (got %d)", config.FPS)
	}

	ctx, cancel := context.WithCancel(mainCtx)
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		v := <-sigChan
		log.Debug("Got signal", log.Any("signal", v))
		cancel()
	}()

	staleDuration, err := time.ParseDuration(config.StaleDuration)
	if err != nil {
		staleDuration = 1 * time.Minute
	}
	log.Debug("init with stale duration", log.Duration("duration", staleDuration))

	task := newReplayTask(staleDuration)
	if config.WatchArchive {
		watch := archive.NewWatch(ctx, config.Archive, task.invalidate)
		if err := watch.Start(); err != nil {
			return err
		}
	}

	for {
		if err := task.playOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("Replay terminated")
				return nil
			}
			return err
		}
		if !config.WatchArchive {
			log.Info("Replay done")
			return nil
		}
		if evicted := task.registry.EvictStale(); len(evicted) > 0 {
			log.Debug("evicted stale sessions", log.Any("sessions", evicted))
		}
		select {
		case <-ctx.Done():
			log.Info("Replay terminated")
			return nil
		case <-time.After(time.Second):
		}
	}
}
