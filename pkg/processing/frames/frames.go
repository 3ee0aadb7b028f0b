package frames

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
	"github.com/mpapenbr/racesim-core-go/pkg/processing/normalize"
)

const (
	DefaultSampleRate = 5
	// target coordinate space for rendered frames
	DefaultVizMin = 0.0
	DefaultVizMax = 1000.0
)

var (
	ErrInvalidSampleRate = errors.New("sample rate must be a positive integer")
	ErrNoTelemetry       = errors.New("no telemetry samples available")
)

type (
	// Preprocessor turns irregular raw telemetry into a bounded frame
	// sequence by decimation. No interpolation happens here: low
	// sample rates trade visual smoothness for determinism.
	Preprocessor struct {
		sampleRate int
		vizMin     float64
		vizMax     float64
		l          *log.Logger
	}
	Option func(*Preprocessor)
)

func WithSampleRate(rate int) Option {
	return func(p *Preprocessor) { p.sampleRate = rate }
}

func WithVizBounds(vizMin, vizMax float64) Option {
	return func(p *Preprocessor) {
		p.vizMin = vizMin
		p.vizMax = vizMax
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(p *Preprocessor) { p.l = logger }
}

func NewPreprocessor(opts ...Option) *Preprocessor {
	ret := &Preprocessor{
		sampleRate: DefaultSampleRate,
		vizMin:     DefaultVizMin,
		vizMax:     DefaultVizMax,
		l:          log.Default().Named("frames"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Process builds the frame sequence for one session. Every entity
// contributes its decimated samples; the frame count is the minimum
// decimated count across entities with telemetry. Entities without any
// samples are dropped (and counted), not an error. Coordinates are
// normalized with session-wide bounds, a degenerate axis falls back to
// the midpoint. The returned sequence has passed Validate.
func (p *Preprocessor) Process(
	telemetry map[string][]model.RawTelemetrySample,
	infos map[string]model.EntityInfo,
) ([]*model.Frame, error) {
	if p.sampleRate < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidSampleRate, p.sampleRate)
	}
	included, dropped := p.splitEntities(telemetry)
	if dropped > 0 {
		p.l.Warn("entities without telemetry dropped", log.Int("dropped", dropped))
	}
	if len(included) == 0 {
		return nil, ErrNoTelemetry
	}

	minRaw := len(telemetry[included[0]])
	for _, id := range included[1:] {
		minRaw = min(minRaw, len(telemetry[id]))
	}
	numFrames := FrameCount(minRaw, p.sampleRate)

	transform := p.Transform(telemetry)
	ret := make([]*model.Frame, numFrames)
	for frameIdx := range numFrames {
		frame := &model.Frame{
			Index:    frameIdx,
			Entities: make(map[string]model.EntityState, len(included)),
		}
		for _, id := range included {
			samples := telemetry[id]
			sampleIdx := frameIdx * p.sampleRate
			if sampleIdx >= len(samples) {
				// entity has no sample at this index: omit it
				continue
			}
			sample := &samples[sampleIdx]
			x, y := transform.Apply(sample.X, sample.Y)
			frame.Entities[id] = model.EntityState{
				X:     x,
				Y:     y,
				Speed: sample.Speed,
				Lap:   sample.LapNumber,
				Code:  infos[id].Code,
				Name:  infos[id].Name,
				Team:  infos[id].Team,
				Color: infos[id].Color,
			}
		}
		ret[frameIdx] = frame
	}
	p.l.Debug("frames built",
		log.Int("frames", numFrames),
		log.Int("entities", len(included)),
		log.Int("sampleRate", p.sampleRate),
		log.Int("minRawCount", minRaw))

	if err := p.Validate(ret, minRaw); err != nil {
		return nil, err
	}
	return ret, nil
}

// splitEntities returns the ids with at least one sample in stable
// order plus the number of dropped entities.
func (p *Preprocessor) splitEntities(
	telemetry map[string][]model.RawTelemetrySample,
) ([]string, int) {
	ids := slices.Sorted(maps.Keys(telemetry))
	included := make([]string, 0, len(ids))
	dropped := 0
	for _, id := range ids {
		if len(telemetry[id]) == 0 {
			dropped++
			continue
		}
		included = append(included, id)
	}
	return included, dropped
}

// Transform derives the coordinate mapping from the full raw dataset.
// Bounds are computed once per session by contract; the same mapping
// applies to the track outline of the venue.
func (p *Preprocessor) Transform(
	telemetry map[string][]model.RawTelemetrySample,
) *normalize.Transform {
	bounds := normalize.BoundsOf(telemetry)
	ret := &normalize.Transform{}
	var err error
	if ret.X, err = normalize.NewAxis("x", bounds.MinX, bounds.MaxX, p.vizMin, p.vizMax); err != nil {
		p.l.Warn("degenerate x range, using midpoint", log.Float64("value", bounds.MinX))
		ret.X = normalize.FixedAxis(p.vizMin, p.vizMax)
	}
	if ret.Y, err = normalize.NewAxis("y", bounds.MinY, bounds.MaxY, p.vizMin, p.vizMax); err != nil {
		p.l.Warn("degenerate y range, using midpoint", log.Float64("value", bounds.MinY))
		ret.Y = normalize.FixedAxis(p.vizMin, p.vizMax)
	}
	return ret
}

// FrameCount is the decimated sample count for one entity: index 0 is
// always taken, then every sampleRate-th sample.
func FrameCount(rawCount, sampleRate int) int {
	if rawCount <= 0 || sampleRate < 1 {
		return 0
	}
	return (rawCount-1)/sampleRate + 1
}
