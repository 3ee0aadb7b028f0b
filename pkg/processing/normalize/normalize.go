package normalize

import (
	"fmt"

	"github.com/mpapenbr/racesim-core-go/pkg/model"
)

// DegenerateRangeError signals a zero width raw range on an axis.
// Callers decide the fallback (typically FixedAxis) instead of
// dividing by zero.
type DegenerateRangeError struct {
	Axis  string
	Value float64
}

func (e *DegenerateRangeError) Error() string {
	return fmt.Sprintf("degenerate range on axis %s: min == max == %g", e.Axis, e.Value)
}

// Bounds are the raw coordinate extremes observed across the complete
// session. The same bounds must be used for every sample so relative
// geometry is preserved; recomputing bounds per frame would distort
// the track shape.
type Bounds struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
}

// BoundsOf scans all samples of all entities.
func BoundsOf(telemetry map[string][]model.RawTelemetrySample) Bounds {
	first := true
	var ret Bounds
	for _, samples := range telemetry {
		for i := range samples {
			s := &samples[i]
			if first {
				ret = Bounds{MinX: s.X, MaxX: s.X, MinY: s.Y, MaxY: s.Y}
				first = false
				continue
			}
			ret.MinX = min(ret.MinX, s.X)
			ret.MaxX = max(ret.MaxX, s.X)
			ret.MinY = min(ret.MinY, s.Y)
			ret.MaxY = max(ret.MaxY, s.Y)
		}
	}
	return ret
}

type (
	// Axis maps one raw coordinate axis into the target space via
	// viz = vizMin + (raw-rawMin)/(rawMax-rawMin)*(vizMax-vizMin).
	Axis struct {
		rawMin float64
		rawMax float64
		vizMin float64
		vizMax float64
		fixed  bool
	}

	// Transform combines both axes of a session.
	Transform struct {
		X *Axis
		Y *Axis
	}
)

// NewAxis builds the affine mapping for one axis.
func NewAxis(axis string, rawMin, rawMax, vizMin, vizMax float64) (*Axis, error) {
	if rawMin == rawMax {
		return nil, &DegenerateRangeError{Axis: axis, Value: rawMin}
	}
	return &Axis{rawMin: rawMin, rawMax: rawMax, vizMin: vizMin, vizMax: vizMax}, nil
}

// FixedAxis maps every raw value to the midpoint of the target range,
// the documented fallback for a degenerate axis.
func FixedAxis(vizMin, vizMax float64) *Axis {
	return &Axis{vizMin: vizMin, vizMax: vizMax, fixed: true}
}

func (a *Axis) Apply(raw float64) float64 {
	if a.fixed {
		return a.vizMin + (a.vizMax-a.vizMin)/2
	}
	return a.vizMin + (raw-a.rawMin)/(a.rawMax-a.rawMin)*(a.vizMax-a.vizMin)
}

// NewTransform builds both axes from session bounds. The error names
// the first degenerate axis.
func NewTransform(bounds Bounds, vizMin, vizMax float64) (*Transform, error) {
	x, err := NewAxis("x", bounds.MinX, bounds.MaxX, vizMin, vizMax)
	if err != nil {
		return nil, err
	}
	y, err := NewAxis("y", bounds.MinY, bounds.MaxY, vizMin, vizMax)
	if err != nil {
		return nil, err
	}
	return &Transform{X: x, Y: y}, nil
}

func (t *Transform) Apply(x, y float64) (float64, float64) {
	return t.X.Apply(x), t.Y.Apply(y)
}

// ApplyOutline maps raw outline points into the target space.
func (t *Transform) ApplyOutline(outline *model.TrackOutline) *model.TrackOutline {
	ret := &model.TrackOutline{
		VenueID: outline.VenueID,
		Points:  make([]model.OutlinePoint, len(outline.Points)),
	}
	for i, p := range outline.Points {
		x, y := t.Apply(p.X, p.Y)
		ret.Points[i] = model.OutlinePoint{X: x, Y: y}
	}
	return ret
}
