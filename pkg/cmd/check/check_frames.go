package check

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/archive"
	"github.com/mpapenbr/racesim-core-go/pkg/config"
	"github.com/mpapenbr/racesim-core-go/pkg/processing/frames"
)

func NewCheckFramesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frames [archive]",
		Short: "validate the frame pipeline of a session archive (dev only)",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 0 {
				config.Archive = args[0]
			}
			checkFrames(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&config.SampleRate, "sample-rate",
		frames.DefaultSampleRate,
		"decimation stride for frame preprocessing")

	return cmd
}

func checkFrames(ctx context.Context) {
	logger := log.GetFromContext(ctx).Named("check")
	logger.Info("checking frames", log.String("archive", config.Archive))
	session, err := archive.NewLoader().Load(ctx, config.Archive)
	if err != nil {
		logger.Fatal("error loading archive", log.ErrorField(err))
	}
	for _, id := range slices.Sorted(maps.Keys(session.Telemetry)) {
		samples := len(session.Telemetry[id])
		logger.Info("entity telemetry",
			log.String("entity", id),
			log.Int("samples", samples),
			log.Int("frames", frames.FrameCount(samples, config.SampleRate)))
	}
	ret, err := frames.NewPreprocessor(
		frames.WithSampleRate(config.SampleRate),
	).Process(session.Telemetry, session.Entities)
	if err != nil {
		var validationErr *frames.FrameValidationError
		if errors.As(err, &validationErr) {
			logger.Fatal("frame validation failed",
				log.Int("frame", validationErr.FrameIndex),
				log.String("entity", validationErr.EntityID),
				log.String("field", validationErr.Field),
				log.String("detail", validationErr.Detail))
		}
		logger.Fatal("could not build frames", log.ErrorField(err))
	}
	logger.Info("frames ok",
		log.Int("frames", len(ret)),
		log.Int("entities", len(session.Entities)),
		log.Int("sampleRate", config.SampleRate))
}
