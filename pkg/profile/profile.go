package profile

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
)

const (
	// DefaultMinValidLaps is the minimum number of usable racing laps
	// required to build a profile.
	DefaultMinValidLaps = 5
	// DefaultMinLapTime is the plausibility floor for lap durations.
	// Anything below is treated as a data glitch and dropped.
	DefaultMinLapTime = 20.0
)

// InsufficientDataError signals that too few valid laps remained after
// filtering. Callers fall back to a default profile or abort.
type InsufficientDataError struct {
	Valid    int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient lap data: %d valid laps, %d required",
		e.Valid, e.Required)
}

type (
	Builder struct {
		minValidLaps int
		minLapTime   float64
		l            *log.Logger
	}
	Option func(*Builder)
)

func WithMinValidLaps(num int) Option {
	return func(b *Builder) { b.minValidLaps = num }
}

func WithMinLapTime(seconds float64) Option {
	return func(b *Builder) { b.minLapTime = seconds }
}

func WithLogger(logger *log.Logger) Option {
	return func(b *Builder) { b.l = logger }
}

func NewBuilder(opts ...Option) *Builder {
	ret := &Builder{
		minValidLaps: DefaultMinValidLaps,
		minLapTime:   DefaultMinLapTime,
		l:            log.Default().Named("profile"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Build derives a LapProfile from historical lap records of one venue.
// Records flagged invalid or with implausible durations (below the
// configured minimum, above twice the session median) are dropped and
// counted. The baseline is the median of the remaining racing laps,
// degradation comes from a linear fit of duration against lap number,
// the stddev from the fit residuals. Pit loss is estimated from pit
// laps against the expected racing duration at that lap.
func (b *Builder) Build(records []model.LapRecord) (*model.LapProfile, error) {
	candidates := lo.Filter(records, func(r model.LapRecord, _ int) bool {
		return r.IsValid && r.LapDuration > 0
	})
	if len(candidates) == 0 {
		return nil, &InsufficientDataError{Valid: 0, Required: b.minValidLaps}
	}

	sessionMedian := median(lo.Map(candidates,
		func(r model.LapRecord, _ int) float64 { return r.LapDuration }))
	valid := lo.Filter(candidates, func(r model.LapRecord, _ int) bool {
		return r.LapDuration >= b.minLapTime && r.LapDuration <= 2*sessionMedian
	})
	dropped := len(records) - len(valid)

	racing := lo.Filter(valid, func(r model.LapRecord, _ int) bool {
		return !r.PitFlag
	})
	pit := lo.Filter(valid, func(r model.LapRecord, _ int) bool {
		return r.PitFlag
	})
	b.l.Debug("filtered laps",
		log.Int("total", len(records)),
		log.Int("dropped", dropped),
		log.Int("racing", len(racing)),
		log.Int("pit", len(pit)))

	required := max(b.minValidLaps, 1)
	if len(racing) < required {
		return nil, &InsufficientDataError{Valid: len(racing), Required: required}
	}

	lapNums := lo.Map(racing, func(r model.LapRecord, _ int) float64 {
		return float64(r.LapNumber)
	})
	durations := lo.Map(racing, func(r model.LapRecord, _ int) float64 {
		return r.LapDuration
	})

	intercept, slope := fitDurations(lapNums, durations)
	residuals := make([]float64, len(durations))
	for i := range durations {
		residuals[i] = durations[i] - (intercept + slope*lapNums[i])
	}

	ret := &model.LapProfile{
		BaselineDuration:  median(durations),
		DegradationPerLap: slope,
		DurationStddev:    sampleStddev(residuals),
		ValidLaps:         len(racing),
		DroppedLaps:       dropped,
		PitLaps:           len(pit),
	}

	if len(pit) > 0 {
		losses := lo.Map(pit, func(r model.LapRecord, _ int) float64 {
			return r.LapDuration - (intercept + slope*float64(r.LapNumber))
		})
		ret.PitLossMean = stat.Mean(losses, nil)
		ret.PitLossStddev = sampleStddev(losses)
	}

	b.l.Debug("profile built",
		log.Float64("baseline", ret.BaselineDuration),
		log.Float64("degradation", ret.DegradationPerLap),
		log.Float64("stddev", ret.DurationStddev),
		log.Float64("pitLossMean", ret.PitLossMean))
	return ret, nil
}

// fitDurations is a least squares fit of duration against lap number.
// With all laps on the same lap number the slope is undefined and
// reported as zero.
func fitDurations(lapNums, durations []float64) (intercept, slope float64) {
	allSame := true
	for i := 1; i < len(lapNums); i++ {
		if lapNums[i] != lapNums[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return stat.Mean(durations, nil), 0
	}
	intercept, slope = stat.LinearRegression(lapNums, durations, nil, false)
	return intercept, slope
}

// median is computed by hand: gonum's Quantile kinds interpolate and
// disagree with the conventional median on small samples.
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return 0.5 * (sorted[mid-1] + sorted[mid])
}

func sampleStddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}
