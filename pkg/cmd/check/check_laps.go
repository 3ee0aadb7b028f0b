package check

import (
	"context"
	"maps"
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/archive"
	"github.com/mpapenbr/racesim-core-go/pkg/config"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
	"github.com/mpapenbr/racesim-core-go/pkg/profile"
)

func NewCheckLapsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "laps [archive]",
		Short: "display lap statistics of a session archive (dev only)",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 0 {
				config.Archive = args[0]
			}
			checkLaps(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&config.MinValidLaps, "min-valid-laps",
		profile.DefaultMinValidLaps,
		"minimum number of valid laps required to build a profile")
	cmd.Flags().Float64Var(&config.MinLapTime, "min-lap-time",
		profile.DefaultMinLapTime,
		"plausibility floor for lap durations in seconds")

	return cmd
}

func checkLaps(ctx context.Context) {
	logger := log.GetFromContext(ctx).Named("check")
	logger.Info("checking laps", log.String("archive", config.Archive))
	session, err := archive.NewLoader().Load(ctx, config.Archive)
	if err != nil {
		logger.Fatal("error loading archive", log.ErrorField(err))
	}
	byEntity := lo.GroupBy(session.Laps,
		func(r model.LapRecord) string { return r.EntityID })
	for _, id := range slices.Sorted(maps.Keys(byEntity)) {
		laps := byEntity[id]
		valid := lo.CountBy(laps, func(r model.LapRecord) bool { return r.IsValid })
		pit := lo.CountBy(laps, func(r model.LapRecord) bool { return r.PitFlag })
		logger.Info("entity laps",
			log.String("entity", id),
			log.Int("laps", len(laps)),
			log.Int("valid", valid),
			log.Int("pit", pit))
	}
	prof, err := profile.NewBuilder(
		profile.WithMinValidLaps(config.MinValidLaps),
		profile.WithMinLapTime(config.MinLapTime),
	).Build(session.Laps)
	if err != nil {
		logger.Fatal("could not build lap profile", log.ErrorField(err))
	}
	logger.Info("lap profile",
		log.Float64("baseline", prof.BaselineDuration),
		log.Float64("degradationPerLap", prof.DegradationPerLap),
		log.Float64("durationStddev", prof.DurationStddev),
		log.Float64("pitLossMean", prof.PitLossMean),
		log.Float64("pitLossStddev", prof.PitLossStddev),
		log.Int("validLaps", prof.ValidLaps),
		log.Int("droppedLaps", prof.DroppedLaps),
		log.Int("pitLaps", prof.PitLaps))
}
