package frames

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/mpapenbr/racesim-core-go/pkg/model"
)

// FrameValidationError describes the first offending frame found
// during the post-construction check.
type FrameValidationError struct {
	FrameIndex int
	EntityID   string
	Field      string
	Detail     string
}

func (e *FrameValidationError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("invalid frame %d: %s (%s)",
			e.FrameIndex, e.Field, e.Detail)
	}
	return fmt.Sprintf("invalid frame %d: entity %s field %s (%s)",
		e.FrameIndex, e.EntityID, e.Field, e.Detail)
}

// Validate re-checks a built frame sequence: the count matches the
// expectation for minRawCount and the configured sample rate, indices
// are consecutive, no frame has an empty entity set, all metadata
// fields are present and all numeric values are finite.
func (p *Preprocessor) Validate(ret []*model.Frame, minRawCount int) error {
	if want := FrameCount(minRawCount, p.sampleRate); len(ret) != want {
		return &FrameValidationError{
			FrameIndex: -1,
			Field:      "frameCount",
			Detail:     fmt.Sprintf("got %d, want %d", len(ret), want),
		}
	}
	for i, frame := range ret {
		if frame == nil {
			return &FrameValidationError{
				FrameIndex: i, Field: "frame", Detail: "nil frame",
			}
		}
		if frame.Index != i {
			return &FrameValidationError{
				FrameIndex: i,
				Field:      "index",
				Detail:     fmt.Sprintf("got %d, want %d", frame.Index, i),
			}
		}
		if len(frame.Entities) == 0 {
			return &FrameValidationError{
				FrameIndex: i, Field: "entities", Detail: "empty entity set",
			}
		}
		for _, id := range slices.Sorted(maps.Keys(frame.Entities)) {
			if err := validateState(i, id, frame.Entities[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

//nolint:gocognit // readability
func validateState(frameIdx int, id string, state model.EntityState) error {
	offense := func(field, detail string) *FrameValidationError {
		return &FrameValidationError{
			FrameIndex: frameIdx, EntityID: id, Field: field, Detail: detail,
		}
	}
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	switch {
	case !finite(state.X):
		return offense("x", fmt.Sprintf("not finite: %f", state.X))
	case !finite(state.Y):
		return offense("y", fmt.Sprintf("not finite: %f", state.Y))
	case !finite(state.Speed):
		return offense("speed", fmt.Sprintf("not finite: %f", state.Speed))
	case state.Lap < 1:
		return offense("lap", fmt.Sprintf("got %d, want >= 1", state.Lap))
	case state.Code == "":
		return offense("code", "missing")
	case state.Name == "":
		return offense("name", "missing")
	case state.Team == "":
		return offense("team", "missing")
	case state.Color == "":
		return offense("color", "missing")
	}
	return nil
}
